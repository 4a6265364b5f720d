package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleSales UserRole = "sales"
)

// StaffMember is an entry of the static staff directory.
type StaffMember struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// UnassignedName is the display name used for the unassigned sentinel and unknown ids.
const UnassignedName = "Unassigned"

// ViewerScope identifies who is looking at the submission set.
// Admin scopes see everything; staff scopes see their own and unassigned records.
type ViewerScope struct {
	StaffID string
	Admin   bool
}

// AdminScope returns a scope that bypasses assignment filtering.
func AdminScope() *ViewerScope {
	return &ViewerScope{Admin: true}
}

// StaffScope returns a scope limited to the given staff member.
func StaffScope(staffID string) *ViewerScope {
	return &ViewerScope{StaffID: staffID}
}

// Allows reports whether the scope includes a record assigned to assignedTo.
func (v *ViewerScope) Allows(assignedTo string) bool {
	if v == nil || v.Admin {
		return true
	}
	return assignedTo == v.StaffID || assignedTo == Unassigned
}
