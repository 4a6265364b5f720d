package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

// DeriveSubmissionView filters subs by criteria and sorts the result newest first.
// The input slice is never modified.
func DeriveSubmissionView(subs []models.Submission, criteria models.FilterCriteria) ([]models.Submission, error) {
	filtered, err := FilterSubmissions(subs, criteria)
	if err != nil {
		return nil, err
	}
	return SortByRecency(filtered), nil
}

// FilterSubmissions applies every active predicate of criteria (AND-combined).
func FilterSubmissions(subs []models.Submission, criteria models.FilterCriteria) ([]models.Submission, error) {
	pred, err := newSubmissionPredicate(criteria)
	if err != nil {
		return nil, err
	}
	out := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		if pred.match(sub) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// ScopeSubmissions keeps the records visible to viewer.
func ScopeSubmissions(subs []models.Submission, viewer *models.ViewerScope) []models.Submission {
	out := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		if viewer.Allows(sub.AssignedTo) {
			out = append(out, sub)
		}
	}
	return out
}

// SortByRecency returns a copy ordered by timestamp descending. Records with
// unparseable timestamps follow all others and keep their relative order.
func SortByRecency(subs []models.Submission) []models.Submission {
	type keyed struct {
		sub models.Submission
		at  time.Time
		ok  bool
	}
	items := make([]keyed, len(subs))
	for i, sub := range subs {
		at, ok := models.ParseTimestamp(sub.Timestamp)
		items[i] = keyed{sub: sub, at: at, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok && b.ok {
			return a.at.After(b.at)
		}
		return a.ok && !b.ok
	})
	out := make([]models.Submission, len(items))
	for i, item := range items {
		out[i] = item.sub
	}
	return out
}

// ComputeSubmissionStats aggregates subs. Every known status is present in ByStatus.
func ComputeSubmissionStats(subs []models.Submission) models.SubmissionStats {
	stats := models.SubmissionStats{ByStatus: make(map[models.SubmissionStatus]int)}
	for _, status := range models.KnownStatuses() {
		stats.ByStatus[status] = 0
	}
	for _, sub := range subs {
		stats.Total++
		stats.ByStatus[sub.Status]++
		if sub.Member == models.MemberYes {
			stats.Members++
		}
		stats.Participants += sub.ParticipantTotal()
	}
	return stats
}

// SetStatus returns a copy of subs with the record's status replaced.
func SetStatus(subs []models.Submission, id, status string) ([]models.Submission, error) {
	next := models.SubmissionStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	return updateSubmission(subs, id, func(sub *models.Submission) { sub.Status = next })
}

// SetAssignment returns a copy of subs with the record reassigned. staffID must be a
// sales staff id or the unassigned sentinel.
func SetAssignment(subs []models.Submission, id, staffID string, staff *StaffDirectory) ([]models.Submission, error) {
	if staff == nil {
		staff = DefaultStaffDirectory()
	}
	assignee, ok := staff.ResolveAssignee(staffID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown staff id %q", staffID))
	}
	return updateSubmission(subs, id, func(sub *models.Submission) { sub.AssignedTo = assignee })
}

// SetRemark returns a copy of subs with the record's remark replaced.
func SetRemark(subs []models.Submission, id, remark string) ([]models.Submission, error) {
	remark = strings.TrimSpace(remark)
	return updateSubmission(subs, id, func(sub *models.Submission) { sub.Remark = remark })
}

// FindSubmission returns the record with the given id.
func FindSubmission(subs []models.Submission, id string) (models.Submission, bool) {
	for _, sub := range subs {
		if sub.ID == id {
			return sub, true
		}
	}
	return models.Submission{}, false
}

func updateSubmission(subs []models.Submission, id string, apply func(*models.Submission)) ([]models.Submission, error) {
	idx := -1
	for i := range subs {
		if subs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("submission %s not found", id))
	}
	out := make([]models.Submission, len(subs))
	copy(out, subs)
	apply(&out[idx])
	return out, nil
}

type submissionPredicate struct {
	search   string
	status   models.SubmissionStatus
	claim    string
	member   string
	hasStart bool
	start    time.Time
	hasEnd   bool
	end      time.Time
	viewer   *models.ViewerScope
}

func newSubmissionPredicate(c models.FilterCriteria) (submissionPredicate, error) {
	p := submissionPredicate{
		search: strings.ToLower(strings.TrimSpace(c.SearchTerm)),
		viewer: c.Viewer,
	}
	if models.Active(c.Status) {
		p.status = models.SubmissionStatus(strings.ToLower(strings.TrimSpace(c.Status)))
	}
	if models.Active(c.Claim) {
		p.claim = strings.TrimSpace(c.Claim)
	}
	if models.Active(c.Member) {
		p.member = strings.TrimSpace(c.Member)
	}
	if raw := strings.TrimSpace(c.DateRange.Start); raw != "" {
		start, ok := models.ParseTimestamp(raw)
		if !ok {
			return p, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start date %q", raw))
		}
		p.hasStart, p.start = true, start
	}
	if raw := strings.TrimSpace(c.DateRange.End); raw != "" {
		end, ok := models.ParseRangeEnd(raw)
		if !ok {
			return p, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end date %q", raw))
		}
		p.hasEnd, p.end = true, end
	}
	return p, nil
}

func (p submissionPredicate) match(sub models.Submission) bool {
	if !p.viewer.Allows(sub.AssignedTo) {
		return false
	}
	if p.status != "" && sub.Status != p.status {
		return false
	}
	if p.claim != "" && !strings.EqualFold(sub.Claim, p.claim) {
		return false
	}
	if p.member != "" && !strings.EqualFold(string(sub.Member), p.member) {
		return false
	}
	if p.hasStart || p.hasEnd {
		at, ok := models.ParseTimestamp(sub.Timestamp)
		if !ok {
			return false
		}
		if p.hasStart && at.Before(p.start) {
			return false
		}
		if p.hasEnd && at.After(p.end) {
			return false
		}
	}
	if p.search != "" && !matchesSearch(sub, p.search) {
		return false
	}
	return true
}

func matchesSearch(sub models.Submission, term string) bool {
	fields := []string{
		sub.Organisation,
		sub.PIC,
		sub.Email,
		sub.Participants[0].Name,
		sub.Participants[1].Name,
		sub.Remark,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
