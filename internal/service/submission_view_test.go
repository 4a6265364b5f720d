package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

func viewFixture() []models.Submission {
	return []models.Submission{
		{ID: "1", Timestamp: "2025-10-20 09:30:00", Organisation: "ABC Corporation Sdn Bhd", PIC: "Ahmad", Email: "ahmad@abc.com", ParticipantCount: "2", Member: models.MemberYes, Claim: models.ClaimHRDC, Status: models.StatusPending, AssignedTo: "TM001"},
		{ID: "2", Timestamp: "2025-10-22 14:00:00", Organisation: "XYZ Industries", PIC: "Mei Ling", ParticipantCount: "1", Member: models.MemberNo, Claim: models.ClaimOwn, Status: models.StatusAttended, AssignedTo: "TM002", Remark: "needs invoice"},
		{ID: "3", Timestamp: "2025-10-21 10:00:00", Organisation: "Global Solutions", Participants: [2]models.Participant{{Name: "Lee"}, {Name: "Tan Wei"}}, ParticipantCount: "three", Member: models.MemberNo, Status: models.StatusRegistered, AssignedTo: models.Unassigned},
		{ID: "4", Timestamp: "not a date", Organisation: "Tech Innovators Inc.", ParticipantCount: "4", Member: models.MemberYes, Status: models.StatusCancelled, AssignedTo: "TM003"},
	}
}

func ids(subs []models.Submission) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func TestDeriveViewStatusAllOrdersNewestFirst(t *testing.T) {
	subs := []models.Submission{
		{ID: "a", Timestamp: "2025-10-20", Status: models.StatusPending},
		{ID: "b", Timestamp: "2025-10-22", Status: models.StatusAttended},
	}
	view, err := DeriveSubmissionView(subs, models.FilterCriteria{Status: models.FilterAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(view))
}

func TestDeriveViewIsIdempotentAndLeavesInputUntouched(t *testing.T) {
	subs := viewFixture()
	original := viewFixture()
	criteria := models.FilterCriteria{Member: "Yes"}

	once, err := DeriveSubmissionView(subs, criteria)
	require.NoError(t, err)
	twice, err := DeriveSubmissionView(once, criteria)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, original, subs)
	assert.Equal(t, []string{"1", "4"}, ids(once))
}

func TestSortByRecencyIsStable(t *testing.T) {
	subs := []models.Submission{
		{ID: "x", Timestamp: "bad"},
		{ID: "a", Timestamp: "2025-10-20 09:00:00"},
		{ID: "b", Timestamp: "2025-10-20 09:00:00"},
		{ID: "y", Timestamp: ""},
		{ID: "c", Timestamp: "2025-10-21T09:00:00Z"},
		{ID: "d", Timestamp: "2025-10-20 09:00:00"},
	}
	assert.Equal(t, []string{"c", "a", "b", "d", "x", "y"}, ids(SortByRecency(subs)))
}

func TestFilterSubmissions(t *testing.T) {
	subs := viewFixture()
	cases := []struct {
		name     string
		criteria models.FilterCriteria
		want     []string
	}{
		{name: "no criteria", criteria: models.FilterCriteria{}, want: []string{"1", "2", "3", "4"}},
		{name: "search organisation", criteria: models.FilterCriteria{SearchTerm: "xyz"}, want: []string{"2"}},
		{name: "search second participant", criteria: models.FilterCriteria{SearchTerm: "TAN wei"}, want: []string{"3"}},
		{name: "search remark", criteria: models.FilterCriteria{SearchTerm: "invoice"}, want: []string{"2"}},
		{name: "search email", criteria: models.FilterCriteria{SearchTerm: "@abc"}, want: []string{"1"}},
		{name: "status", criteria: models.FilterCriteria{Status: "registered"}, want: []string{"3"}},
		{name: "claim", criteria: models.FilterCriteria{Claim: models.ClaimOwn}, want: []string{"2"}},
		{name: "member all", criteria: models.FilterCriteria{Member: "all"}, want: []string{"1", "2", "3", "4"}},
		{name: "date range excludes unparseable", criteria: models.FilterCriteria{DateRange: models.DateRange{Start: "2025-10-01"}}, want: []string{"1", "2", "3"}},
		{name: "date-only end covers whole day", criteria: models.FilterCriteria{DateRange: models.DateRange{End: "2025-10-21"}}, want: []string{"1", "3"}},
		{name: "inclusive bounds", criteria: models.FilterCriteria{DateRange: models.DateRange{Start: "2025-10-21 10:00:00", End: "2025-10-22 14:00:00"}}, want: []string{"2", "3"}},
		{name: "staff scope sees own and unassigned", criteria: models.FilterCriteria{Viewer: models.StaffScope("TM001")}, want: []string{"1", "3"}},
		{name: "admin scope sees all", criteria: models.FilterCriteria{Viewer: models.AdminScope()}, want: []string{"1", "2", "3", "4"}},
		{name: "combined", criteria: models.FilterCriteria{Viewer: models.StaffScope("TM002"), Member: "No", SearchTerm: "solutions"}, want: []string{"3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FilterSubmissions(subs, tc.criteria)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestFilterRejectsBadBounds(t *testing.T) {
	_, err := FilterSubmissions(viewFixture(), models.FilterCriteria{DateRange: models.DateRange{Start: "yesterday"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestComputeSubmissionStats(t *testing.T) {
	stats := ComputeSubmissionStats(viewFixture())
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Members)
	assert.Equal(t, 7, stats.Participants)
	assert.Equal(t, map[models.SubmissionStatus]int{
		models.StatusPending:    1,
		models.StatusCancelled:  1,
		models.StatusRegistered: 1,
		models.StatusAttended:   1,
	}, stats.ByStatus)

	empty := ComputeSubmissionStats(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Len(t, empty.ByStatus, 4)
}

func TestSetStatus(t *testing.T) {
	subs := viewFixture()

	next, err := SetStatus(subs, "1", "Attended")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAttended, next[0].Status)
	assert.Equal(t, models.StatusPending, subs[0].Status)

	_, err = SetStatus(subs, "5", "bogus")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, viewFixture(), subs)

	_, err = SetStatus(subs, "99", "attended")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSetAssignment(t *testing.T) {
	subs := viewFixture()
	staff := DefaultStaffDirectory()

	_, err := SetAssignment(subs, "999", "TM001", staff)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, viewFixture(), subs)

	_, err = SetAssignment(subs, "1", "TM404", staff)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = SetAssignment(subs, "1", "ADMIN", staff)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	next, err := SetAssignment(subs, "3", "tm004", staff)
	require.NoError(t, err)
	assert.Equal(t, "TM004", next[2].AssignedTo)

	next, err = SetAssignment(next, "3", "Unassigned", staff)
	require.NoError(t, err)
	assert.Equal(t, models.Unassigned, next[2].AssignedTo)
}

func TestSetRemark(t *testing.T) {
	subs := viewFixture()
	next, err := SetRemark(subs, "2", "  paid  ")
	require.NoError(t, err)
	assert.Equal(t, "paid", next[1].Remark)
	assert.Equal(t, "needs invoice", subs[1].Remark)

	_, err = SetRemark(subs, "nope", "x")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
