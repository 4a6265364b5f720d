package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

// Candidate keys per logical field, display label first and canonical key last.
var (
	keysID               = []string{"ID", "id"}
	keysTimestamp        = []string{"Timestamp", "timestamp"}
	keysProgramme        = []string{"Programme", "Program", "programme"}
	keysOrganisation     = []string{"Organisation", "Organization", "organisation"}
	keysAddress          = []string{"Address", "address"}
	keysPIC              = []string{"PIC", "Person In Charge", "pic"}
	keysPhone            = []string{"Phone", "phone"}
	keysEmail            = []string{"Email", "email"}
	keysParticipantCount = []string{"Participant Number", "Participant Count", "participantCount"}
	keysMeal             = []string{"Meal", "meal"}
	keysMember           = []string{"Member", "member"}
	keysMemberID         = []string{"Member ID", "memberId"}
	keysClaim            = []string{"Claim", "claim"}
	keysVoucher          = []string{"Voucher", "voucher"}
	keysStatus           = []string{"JobStatus", "Job Status", "Status", "status"}
	keysTrainer          = []string{"Trainer", "trainer"}
	keysAssignedTo       = []string{"AssignedTo", "Assigned To", "assignedTo"}
	keysRemark           = []string{"Remarks", "Remark", "remarks", "remark"}

	keysParticipants = [models.MaxParticipants]participantKeys{
		{
			name:        []string{"Participant Name", "Participant 1 Name", "participant1Name"},
			phone:       []string{"Participant Phone", "Participant 1 Phone", "participant1Phone"},
			email:       []string{"Participant Email", "Participant 1 Email", "participant1Email"},
			designation: []string{"Participant Designation", "Participant 1 Designation", "participant1Designation"},
		},
		{
			name:        []string{"Participant Name2", "Participant Name 2", "Participant 2 Name", "participant2Name"},
			phone:       []string{"Participant Phone2", "Participant Phone 2", "Participant 2 Phone", "participant2Phone"},
			email:       []string{"Participant Email2", "Participant Email 2", "Participant 2 Email", "participant2Email"},
			designation: []string{"Participant Designation2", "Participant Designation 2", "Participant 2 Designation", "participant2Designation"},
		},
	}
)

type participantKeys struct {
	name, phone, email, designation []string
}

var memberTruthy = map[string]struct{}{"yes": {}, "y": {}, "true": {}, "1": {}}

// SubmissionNormalizer maps raw upstream rows onto canonical submissions. It never fails.
type SubmissionNormalizer struct {
	staff *StaffDirectory
	now   func() time.Time
}

// NewSubmissionNormalizer builds a normalizer. A nil directory accepts any assignee id.
func NewSubmissionNormalizer(staff *StaffDirectory) *SubmissionNormalizer {
	return &SubmissionNormalizer{staff: staff, now: time.Now}
}

// WithClock overrides the clock used for the timestamp default.
func (n *SubmissionNormalizer) WithClock(now func() time.Time) *SubmissionNormalizer {
	clone := *n
	clone.now = now
	return &clone
}

// Normalize converts one raw record. index is the zero-based position used for the id default.
func (n *SubmissionNormalizer) Normalize(raw models.RawRecord, index int) models.Submission {
	r := newRecordView(raw)

	sub := models.Submission{
		ID:               r.lookup(keysID, strconv.Itoa(index+1)),
		Timestamp:        r.lookup(keysTimestamp, ""),
		Programme:        r.lookup(keysProgramme, ""),
		Organisation:     r.lookup(keysOrganisation, ""),
		Address:          r.lookup(keysAddress, ""),
		PIC:              r.lookup(keysPIC, ""),
		Phone:            r.lookup(keysPhone, ""),
		Email:            r.lookup(keysEmail, ""),
		ParticipantCount: r.lookup(keysParticipantCount, "1"),
		Meal:             r.lookup(keysMeal, ""),
		Member:           normalizeMember(r.lookup(keysMember, "")),
		MemberID:         r.lookup(keysMemberID, ""),
		Claim:            r.lookup(keysClaim, ""),
		Voucher:          r.lookup(keysVoucher, ""),
		Status:           normalizeStatus(r.lookup(keysStatus, "")),
		Trainer:          r.lookup(keysTrainer, ""),
		AssignedTo:       n.normalizeAssignee(r.lookup(keysAssignedTo, "")),
		Remark:           r.lookup(keysRemark, ""),
	}
	for i, keys := range keysParticipants {
		sub.Participants[i] = models.Participant{
			Name:        r.lookup(keys.name, ""),
			Phone:       r.lookup(keys.phone, ""),
			Email:       r.lookup(keys.email, ""),
			Designation: r.lookup(keys.designation, ""),
		}
	}
	if sub.Timestamp == "" {
		sub.Timestamp = n.now().UTC().Format(time.RFC3339)
	}
	if sub.Member != models.MemberYes {
		sub.MemberID = ""
	}
	return sub
}

// NormalizeAll converts a batch and makes ids unique. Later duplicates get a -<position> suffix.
func (n *SubmissionNormalizer) NormalizeAll(raws []models.RawRecord) []models.Submission {
	out := make([]models.Submission, 0, len(raws))
	for i, raw := range raws {
		out = append(out, n.Normalize(raw, i))
	}
	return ensureUniqueIDs(out)
}

// Canonicalize re-applies the normalization rules to an already structured record.
func (n *SubmissionNormalizer) Canonicalize(sub models.Submission, index int) models.Submission {
	return n.Normalize(SubmissionToRaw(sub), index)
}

// SubmissionToRaw renders a submission under its canonical keys.
func SubmissionToRaw(sub models.Submission) models.RawRecord {
	raw := models.RawRecord{
		"id":               sub.ID,
		"timestamp":        sub.Timestamp,
		"programme":        sub.Programme,
		"organisation":     sub.Organisation,
		"address":          sub.Address,
		"pic":              sub.PIC,
		"phone":            sub.Phone,
		"email":            sub.Email,
		"participantCount": sub.ParticipantCount,
		"meal":             sub.Meal,
		"member":           string(sub.Member),
		"memberId":         sub.MemberID,
		"claim":            sub.Claim,
		"voucher":          sub.Voucher,
		"status":           string(sub.Status),
		"trainer":          sub.Trainer,
		"assignedTo":       sub.AssignedTo,
		"remark":           sub.Remark,
	}
	for i, p := range sub.Participants {
		prefix := fmt.Sprintf("participant%d", i+1)
		raw[prefix+"Name"] = p.Name
		raw[prefix+"Phone"] = p.Phone
		raw[prefix+"Email"] = p.Email
		raw[prefix+"Designation"] = p.Designation
	}
	return raw
}

func (n *SubmissionNormalizer) normalizeAssignee(value string) string {
	if value == "" || strings.EqualFold(value, models.Unassigned) {
		return models.Unassigned
	}
	if n.staff == nil {
		return value
	}
	if id, ok := n.staff.ResolveAssignee(value); ok {
		return id
	}
	return models.Unassigned
}

func normalizeStatus(value string) models.SubmissionStatus {
	status := models.SubmissionStatus(strings.ToLower(value))
	if status.Valid() {
		return status
	}
	return models.StatusPending
}

func normalizeMember(value string) models.MemberFlag {
	if _, ok := memberTruthy[strings.ToLower(value)]; ok {
		return models.MemberYes
	}
	return models.MemberNo
}

func ensureUniqueIDs(subs []models.Submission) []models.Submission {
	seen := make(map[string]struct{}, len(subs))
	for i := range subs {
		id := subs[i].ID
		if _, dup := seen[id]; dup {
			base := fmt.Sprintf("%s-%d", id, i+1)
			id = base
			for n := 2; ; n++ {
				if _, taken := seen[id]; !taken {
					break
				}
				id = fmt.Sprintf("%s-%d", base, n)
			}
			subs[i].ID = id
		}
		seen[id] = struct{}{}
	}
	return subs
}

// recordView resolves candidate keys against a raw record, exact key first and folded key second.
type recordView struct {
	raw    models.RawRecord
	folded map[string]string
}

func newRecordView(raw models.RawRecord) recordView {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	folded := make(map[string]string, len(raw))
	for _, k := range keys {
		value := stringify(raw[k])
		if value == "" {
			continue
		}
		fk := foldKey(k)
		if _, exists := folded[fk]; !exists {
			folded[fk] = value
		}
	}
	return recordView{raw: raw, folded: folded}
}

func (r recordView) lookup(candidates []string, fallback string) string {
	for _, key := range candidates {
		if v, ok := r.raw[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
		if s, ok := r.folded[foldKey(key)]; ok {
			return s
		}
	}
	return fallback
}

func foldKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

// stringify renders a raw value as trimmed text. Blank values become "".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
