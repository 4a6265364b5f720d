package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

var fixedNow = time.Date(2025, 10, 22, 8, 0, 0, 0, time.UTC)

func newTestNormalizer() *SubmissionNormalizer {
	return NewSubmissionNormalizer(DefaultStaffDirectory()).WithClock(func() time.Time { return fixedNow })
}

func TestNormalizeDefaults(t *testing.T) {
	sub := newTestNormalizer().Normalize(models.RawRecord{"Organisation": "ABC Corporation Sdn Bhd"}, 4)

	assert.Equal(t, "5", sub.ID)
	assert.Equal(t, "2025-10-22T08:00:00Z", sub.Timestamp)
	assert.Equal(t, models.Unassigned, sub.AssignedTo)
	assert.Equal(t, "1", sub.ParticipantCount)
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.Equal(t, models.MemberNo, sub.Member)
	assert.Equal(t, "ABC Corporation Sdn Bhd", sub.Organisation)
	assert.Equal(t, "", sub.Voucher)
}

func TestNormalizeDisplayAndCanonicalKeysAgree(t *testing.T) {
	display := models.RawRecord{
		"Timestamp":                 "2025-10-20 09:30:00",
		"Programme":                 "Advanced Excel Training",
		"Organisation":              "ABC Corporation Sdn Bhd",
		"Address":                   "Kuala Lumpur",
		"PIC":                       "Ahmad",
		"Phone":                     "0123456789",
		"Email":                     "ahmad@abc.com",
		"Participant Number":        2,
		"Participant Name":          "Siti",
		"Participant Phone":         "0111111111",
		"Participant Email":         "siti@abc.com",
		"Participant Designation":   "Executive",
		"Participant Name 2":        "Ali",
		"Participant Designation 2": "Manager",
		"Meal":                      "Vegetarian",
		"Member":                    "Yes",
		"Member ID":                 "M-77",
		"Claim":                     models.ClaimHRDC,
		"Voucher":                   "DISCOUNT10",
		"JobStatus":                 "Registered",
		"Trainer":                   "Dr. Lim",
		"AssignedTo":                "TM001",
		"Remarks":                   "Call back Monday",
	}
	canonical := models.RawRecord{
		"timestamp":               "2025-10-20 09:30:00",
		"programme":               "Advanced Excel Training",
		"organisation":            "ABC Corporation Sdn Bhd",
		"address":                 "Kuala Lumpur",
		"pic":                     "Ahmad",
		"phone":                   "0123456789",
		"email":                   "ahmad@abc.com",
		"participantCount":        "2",
		"participant1Name":        "Siti",
		"participant1Phone":       "0111111111",
		"participant1Email":       "siti@abc.com",
		"participant1Designation": "Executive",
		"participant2Name":        "Ali",
		"participant2Designation": "Manager",
		"meal":                    "Vegetarian",
		"member":                  "Yes",
		"memberId":                "M-77",
		"claim":                   models.ClaimHRDC,
		"voucher":                 "DISCOUNT10",
		"status":                  "registered",
		"trainer":                 "Dr. Lim",
		"assignedTo":              "TM001",
		"remark":                  "Call back Monday",
	}

	n := newTestNormalizer()
	a := n.Normalize(display, 0)
	b := n.Normalize(canonical, 0)
	assert.Equal(t, a, b)
	assert.Equal(t, "2", a.ParticipantCount)
	assert.Equal(t, models.StatusRegistered, a.Status)
	assert.Equal(t, "Ali", a.Participants[1].Name)
	assert.Equal(t, "M-77", a.MemberID)
}

func TestNormalizeKeyMatchingFoldsCaseAndWhitespace(t *testing.T) {
	sub := newTestNormalizer().Normalize(models.RawRecord{
		"participant  name": "Siti",
		"JOB STATUS":        "attended",
		"assigned to":       "tm002",
	}, 0)

	assert.Equal(t, "Siti", sub.Participants[0].Name)
	assert.Equal(t, models.StatusAttended, sub.Status)
	assert.Equal(t, "TM002", sub.AssignedTo)
}

func TestNormalizeBlankValuesFallThrough(t *testing.T) {
	sub := newTestNormalizer().Normalize(models.RawRecord{
		"Remarks":            "   ",
		"remark":             "from canonical",
		"Participant Number": "",
		"AssignedTo":         nil,
	}, 0)

	assert.Equal(t, "from canonical", sub.Remark)
	assert.Equal(t, "1", sub.ParticipantCount)
	assert.Equal(t, models.Unassigned, sub.AssignedTo)
}

func TestNormalizeValueRules(t *testing.T) {
	n := newTestNormalizer()

	t.Run("unknown status becomes pending", func(t *testing.T) {
		sub := n.Normalize(models.RawRecord{"status": "archived"}, 0)
		assert.Equal(t, models.StatusPending, sub.Status)
	})
	t.Run("member id cleared for non members", func(t *testing.T) {
		sub := n.Normalize(models.RawRecord{"Member": "No", "Member ID": "M-1"}, 0)
		assert.Equal(t, models.MemberNo, sub.Member)
		assert.Empty(t, sub.MemberID)
	})
	t.Run("truthy member spellings", func(t *testing.T) {
		for _, v := range []interface{}{"yes", "Y", "TRUE", "1", true} {
			sub := n.Normalize(models.RawRecord{"member": v}, 0)
			assert.Equal(t, models.MemberYes, sub.Member, "value %v", v)
		}
	})
	t.Run("unknown staff collapses to unassigned", func(t *testing.T) {
		sub := n.Normalize(models.RawRecord{"assignedTo": "TM999"}, 0)
		assert.Equal(t, models.Unassigned, sub.AssignedTo)
	})
	t.Run("numbers render plainly", func(t *testing.T) {
		sub := n.Normalize(models.RawRecord{"id": float64(7), "participantCount": json.Number("3")}, 0)
		assert.Equal(t, "7", sub.ID)
		assert.Equal(t, "3", sub.ParticipantCount)
	})
	t.Run("without directory any assignee is kept", func(t *testing.T) {
		sub := NewSubmissionNormalizer(nil).Normalize(models.RawRecord{"assignedTo": "TM999"}, 0)
		assert.Equal(t, "TM999", sub.AssignedTo)
	})
}

func TestNormalizeAllMakesIDsUnique(t *testing.T) {
	subs := newTestNormalizer().NormalizeAll([]models.RawRecord{
		{"id": "1"},
		{"id": "1"},
		{},
		{"id": "2-2"},
		{"id": "2"},
	})
	ids := make([]string, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"1", "1-2", "3", "2-2", "2"}, ids)

	dup := newTestNormalizer().NormalizeAll([]models.RawRecord{{"id": "9"}, {"id": "9-2"}, {"id": "9"}})
	assert.Equal(t, "9-3", dup[2].ID)
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	n := newTestNormalizer()
	first := n.Normalize(models.RawRecord{"Organisation": "Tech Innovators Inc.", "JobStatus": "Attended", "Member": "y", "Member ID": "X1"}, 2)
	again := n.Canonicalize(first, 2)
	assert.Equal(t, first, again)
}

func TestSubmissionJSONRoundTrip(t *testing.T) {
	sub := newTestNormalizer().Normalize(models.RawRecord{"id": 3, "Participant Name": "Siti", "Remarks": "ok"}, 0)
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"participant1Name":"Siti"`)
	assert.Contains(t, string(payload), `"remark":"ok"`)

	var decoded models.Submission
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, sub, decoded)

	var legacy models.Submission
	require.NoError(t, json.Unmarshal([]byte(`{"id":12,"remarks":"legacy"}`), &legacy))
	assert.Equal(t, "12", legacy.ID)
	assert.Equal(t, "legacy", legacy.Remark)
}
