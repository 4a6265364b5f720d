package service

import (
	"strings"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

// DefaultStaffMembers is the built-in team roster.
var DefaultStaffMembers = []models.StaffMember{
	{ID: "TM001", Name: "John Smith", Role: models.RoleSales},
	{ID: "TM002", Name: "Jane Doe", Role: models.RoleSales},
	{ID: "TM003", Name: "Alex Wong", Role: models.RoleSales},
	{ID: "TM004", Name: "Sarah Johnson", Role: models.RoleSales},
	{ID: "ADMIN", Name: "Administrator", Role: models.RoleAdmin},
}

// StaffDirectory is a read-only lookup over the staff roster.
type StaffDirectory struct {
	members []models.StaffMember
	byID    map[string]models.StaffMember
}

// NewStaffDirectory indexes the provided members. Ids are matched case-insensitively.
func NewStaffDirectory(members []models.StaffMember) *StaffDirectory {
	d := &StaffDirectory{
		members: make([]models.StaffMember, 0, len(members)),
		byID:    make(map[string]models.StaffMember, len(members)),
	}
	for _, m := range members {
		key := strings.ToUpper(strings.TrimSpace(m.ID))
		if key == "" {
			continue
		}
		if _, dup := d.byID[key]; dup {
			continue
		}
		d.byID[key] = m
		d.members = append(d.members, m)
	}
	return d
}

// DefaultStaffDirectory returns the built-in roster.
func DefaultStaffDirectory() *StaffDirectory {
	return NewStaffDirectory(DefaultStaffMembers)
}

// List returns every staff member in roster order.
func (d *StaffDirectory) List() []models.StaffMember {
	out := make([]models.StaffMember, len(d.members))
	copy(out, d.members)
	return out
}

// Lookup finds a member by id.
func (d *StaffDirectory) Lookup(id string) (models.StaffMember, bool) {
	m, ok := d.byID[strings.ToUpper(strings.TrimSpace(id))]
	return m, ok
}

// ResolveAssignee maps id onto a canonical assignee. The unassigned sentinel and
// sales staff resolve; anything else reports false.
func (d *StaffDirectory) ResolveAssignee(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, models.Unassigned) {
		return models.Unassigned, true
	}
	m, ok := d.Lookup(id)
	if !ok || m.Role != models.RoleSales {
		return "", false
	}
	return m.ID, true
}

// DisplayName renders an assignee for humans, falling back to Unassigned.
func (d *StaffDirectory) DisplayName(id string) string {
	if m, ok := d.Lookup(id); ok {
		return m.Name
	}
	return models.UnassignedName
}
