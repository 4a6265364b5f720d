package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SubmissionStatus is the processing state of a registration.
type SubmissionStatus string

const (
	StatusPending    SubmissionStatus = "pending"
	StatusCancelled  SubmissionStatus = "cancelled"
	StatusRegistered SubmissionStatus = "registered"
	StatusAttended   SubmissionStatus = "attended"
)

// knownStatuses keeps registration order for stable stats output.
var knownStatuses = []SubmissionStatus{StatusPending, StatusCancelled, StatusRegistered, StatusAttended}

// KnownStatuses returns every accepted status in display order.
func KnownStatuses() []SubmissionStatus {
	out := make([]SubmissionStatus, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}

// RegisterStatus extends the accepted status set. Registering an existing value is a no-op.
func RegisterStatus(status SubmissionStatus) {
	status = SubmissionStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if status == "" || status.Valid() {
		return
	}
	knownStatuses = append(knownStatuses, status)
}

// Valid reports whether the status is part of the accepted set.
func (s SubmissionStatus) Valid() bool {
	for _, known := range knownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// MemberFlag records institute membership as Yes/No.
type MemberFlag string

const (
	MemberYes MemberFlag = "Yes"
	MemberNo  MemberFlag = "No"
)

// Common claim categories. Any other free text is accepted.
const (
	ClaimHRDC = "HRDC Claimable"
	ClaimOwn  = "Own"
)

// Unassigned is the sentinel assignee for submissions without a staff owner.
const Unassigned = "unassigned"

// MaxParticipants is the number of participant slots on the registration form.
const MaxParticipants = 2

// Participant is one attendee listed on a submission.
type Participant struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
}

// Submission is the canonical registration record.
type Submission struct {
	ID               string
	Timestamp        string
	Programme        string
	Organisation     string
	Address          string
	PIC              string
	Phone            string
	Email            string
	ParticipantCount string
	Participants     [MaxParticipants]Participant
	Meal             string
	Member           MemberFlag
	MemberID         string
	Claim            string
	Voucher          string
	Status           SubmissionStatus
	Trainer          string
	AssignedTo       string
	Remark           string
}

// ParticipantTotal parses ParticipantCount for aggregation. Non-numeric or negative values count as zero.
func (s Submission) ParticipantTotal() int {
	n, err := strconv.Atoi(strings.TrimSpace(s.ParticipantCount))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// submissionJSON is the flat wire shape shared with the upstream form and the snapshot cache.
type submissionJSON struct {
	ID                      flexString       `json:"id"`
	Timestamp               string           `json:"timestamp"`
	Programme               string           `json:"programme"`
	Organisation            string           `json:"organisation"`
	Address                 string           `json:"address"`
	PIC                     string           `json:"pic"`
	Phone                   string           `json:"phone"`
	Email                   string           `json:"email"`
	ParticipantCount        flexString       `json:"participantCount"`
	Participant1Name        string           `json:"participant1Name"`
	Participant1Phone       string           `json:"participant1Phone"`
	Participant1Email       string           `json:"participant1Email"`
	Participant1Designation string           `json:"participant1Designation"`
	Participant2Name        string           `json:"participant2Name"`
	Participant2Phone       string           `json:"participant2Phone"`
	Participant2Email       string           `json:"participant2Email"`
	Participant2Designation string           `json:"participant2Designation"`
	Meal                    string           `json:"meal"`
	Member                  MemberFlag       `json:"member"`
	MemberID                string           `json:"memberId"`
	Claim                   string           `json:"claim"`
	Voucher                 string           `json:"voucher"`
	Status                  SubmissionStatus `json:"status"`
	Trainer                 string           `json:"trainer"`
	AssignedTo              string           `json:"assignedTo"`
	Remark                  string           `json:"remark"`
	Remarks                 string           `json:"remarks,omitempty"`
}

// MarshalJSON flattens participants into participantN* keys.
func (s Submission) MarshalJSON() ([]byte, error) {
	p1, p2 := s.Participants[0], s.Participants[1]
	return json.Marshal(submissionJSON{
		ID:                      flexString(s.ID),
		Timestamp:               s.Timestamp,
		Programme:               s.Programme,
		Organisation:            s.Organisation,
		Address:                 s.Address,
		PIC:                     s.PIC,
		Phone:                   s.Phone,
		Email:                   s.Email,
		ParticipantCount:        flexString(s.ParticipantCount),
		Participant1Name:        p1.Name,
		Participant1Phone:       p1.Phone,
		Participant1Email:       p1.Email,
		Participant1Designation: p1.Designation,
		Participant2Name:        p2.Name,
		Participant2Phone:       p2.Phone,
		Participant2Email:       p2.Email,
		Participant2Designation: p2.Designation,
		Meal:                    s.Meal,
		Member:                  s.Member,
		MemberID:                s.MemberID,
		Claim:                   s.Claim,
		Voucher:                 s.Voucher,
		Status:                  s.Status,
		Trainer:                 s.Trainer,
		AssignedTo:              s.AssignedTo,
		Remark:                  s.Remark,
	})
}

// UnmarshalJSON accepts numeric or string ids and the legacy "remarks" key.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var wire submissionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	remark := wire.Remark
	if remark == "" {
		remark = wire.Remarks
	}
	*s = Submission{
		ID:               string(wire.ID),
		Timestamp:        wire.Timestamp,
		Programme:        wire.Programme,
		Organisation:     wire.Organisation,
		Address:          wire.Address,
		PIC:              wire.PIC,
		Phone:            wire.Phone,
		Email:            wire.Email,
		ParticipantCount: string(wire.ParticipantCount),
		Participants: [MaxParticipants]Participant{
			{Name: wire.Participant1Name, Phone: wire.Participant1Phone, Email: wire.Participant1Email, Designation: wire.Participant1Designation},
			{Name: wire.Participant2Name, Phone: wire.Participant2Phone, Email: wire.Participant2Email, Designation: wire.Participant2Designation},
		},
		Meal:       wire.Meal,
		Member:     wire.Member,
		MemberID:   wire.MemberID,
		Claim:      wire.Claim,
		Voucher:    wire.Voucher,
		Status:     wire.Status,
		Trainer:    wire.Trainer,
		AssignedTo: wire.AssignedTo,
		Remark:     remark,
	}
	return nil
}

// flexString decodes from either a JSON string or a JSON number.
type flexString string

func (f flexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// RawRecord is one upstream row keyed by whatever column names the source uses.
type RawRecord map[string]interface{}
