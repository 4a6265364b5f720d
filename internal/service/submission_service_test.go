package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

type fakeChainLoader struct {
	subs   []models.Submission
	result models.LoadResult
	ok     bool
	block  chan struct{}
	calls  int
}

func (f *fakeChainLoader) Load(context.Context) ([]models.Submission, models.LoadResult, bool) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	out := make([]models.Submission, len(f.subs))
	copy(out, f.subs)
	return out, f.result, f.ok
}

type fakeSnapshotWriter struct {
	mu     sync.Mutex
	writes [][]models.Submission
	err    error
}

func (f *fakeSnapshotWriter) ReplaceAll(_ context.Context, subs []models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, subs)
	return f.err
}

type writeBackCall struct {
	id, field, value string
}

type fakeWriteBack struct {
	calls []writeBackCall
	err   error
}

func (f *fakeWriteBack) Update(_ context.Context, id, field, value string) error {
	f.calls = append(f.calls, writeBackCall{id: id, field: field, value: value})
	return f.err
}

type fakeCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = payload
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.store {
		if strings.HasPrefix(key, prefix) {
			delete(f.store, key)
		}
	}
	return nil
}

func serviceFixture() []models.Submission {
	return []models.Submission{
		{ID: "1", Timestamp: "2025-10-20T09:00:00Z", Organisation: "Acme", Status: models.StatusPending, Member: models.MemberYes, ParticipantCount: "2", AssignedTo: "TM001"},
		{ID: "2", Timestamp: "2025-10-22T09:00:00Z", Organisation: "Globex", Status: models.StatusAttended, Member: models.MemberNo, ParticipantCount: "1", AssignedTo: models.Unassigned},
		{ID: "3", Timestamp: "2025-10-21T09:00:00Z", Organisation: "Initech", Status: models.StatusRegistered, Member: models.MemberNo, ParticipantCount: "3", AssignedTo: "TM002"},
	}
}

type serviceHarness struct {
	svc       *SubmissionService
	loader    *fakeChainLoader
	snapshot  *fakeSnapshotWriter
	writeBack *fakeWriteBack
	cacheRepo *fakeCacheRepo
}

func newServiceHarness(t *testing.T, writeBack bool) serviceHarness {
	t.Helper()
	h := serviceHarness{
		loader: &fakeChainLoader{
			subs:   serviceFixture(),
			result: models.LoadResult{Source: "apps_script", Tier: models.TierRemote, Count: 3, Persist: true},
			ok:     true,
		},
		snapshot:  &fakeSnapshotWriter{},
		writeBack: &fakeWriteBack{},
		cacheRepo: newFakeCacheRepo(),
	}
	metrics := NewMetricsService()
	h.svc = NewSubmissionService(SubmissionServiceParams{
		Loader:    h.loader,
		Snapshot:  h.snapshot,
		WriteBack: h.writeBack,
		Cache:     NewCacheService(h.cacheRepo, metrics, time.Minute, nil, true),
		Metrics:   metrics,
		Config:    SubmissionServiceConfig{WriteBack: writeBack},
	})
	_, err := h.svc.Load(context.Background())
	require.NoError(t, err)
	return h
}

func TestSubmissionServiceLoadPersistsRemoteTier(t *testing.T) {
	h := newServiceHarness(t, false)

	assert.True(t, h.svc.Ready())
	assert.Len(t, h.svc.Snapshot(), 3)
	require.Len(t, h.snapshot.writes, 1)
	assert.Len(t, h.snapshot.writes[0], 3)

	status := h.svc.Status()
	assert.False(t, status.Loading)
	assert.Equal(t, 3, status.Count)
	require.NotNil(t, status.LastLoad)
	assert.Equal(t, "apps_script", status.LastLoad.Source)
}

func TestSubmissionServiceLoadSkipsPersistForCacheTier(t *testing.T) {
	h := newServiceHarness(t, false)
	h.loader.result = models.LoadResult{Source: "snapshot", Tier: models.TierCache}

	_, err := h.svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.snapshot.writes, 1)
}

func TestSubmissionServiceLoadKeepsSetWhenNothingServed(t *testing.T) {
	h := newServiceHarness(t, false)
	h.loader.subs = nil
	h.loader.ok = false

	result, err := h.svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Source)
	assert.Len(t, h.svc.Snapshot(), 3)
}

func TestSubmissionServiceRejectsConcurrentLoad(t *testing.T) {
	loader := &fakeChainLoader{subs: serviceFixture(), ok: true, block: make(chan struct{})}
	svc := NewSubmissionService(SubmissionServiceParams{Loader: loader})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Load(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return svc.Status().Loading }, time.Second, 5*time.Millisecond)

	_, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	close(loader.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Status().Loading)
}

func TestSubmissionServiceListUsesViewCache(t *testing.T) {
	h := newServiceHarness(t, false)
	req := SubmissionListRequest{Criteria: models.FilterCriteria{Status: models.FilterAll, Viewer: models.AdminScope()}}

	first, hit, err := h.svc.List(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first.Items, 3)
	assert.Equal(t, []string{"2", "3", "1"}, submissionIDs(first.Items))
	assert.Equal(t, 3, first.Stats.Total)
	assert.Equal(t, 6, first.FilteredStats.Participants)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 50, TotalCount: 3}, first.Pagination)

	second, hit, err := h.svc.List(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, submissionIDs(first.Items), submissionIDs(second.Items))

	_, err = h.svc.SetRemark(context.Background(), models.AdminScope(), "1", "called back")
	require.NoError(t, err)
	_, hit, err = h.svc.List(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSubmissionServiceListScopesStaffViewer(t *testing.T) {
	h := newServiceHarness(t, false)
	req := SubmissionListRequest{Criteria: models.FilterCriteria{Status: "registered", Viewer: models.StaffScope("TM001")}}

	resp, _, err := h.svc.List(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 0, resp.FilteredStats.Total)
}

func TestSubmissionServiceListPaginates(t *testing.T) {
	h := newServiceHarness(t, false)

	resp, _, err := h.svc.List(context.Background(), SubmissionListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, submissionIDs(resp.Items))
	assert.Equal(t, 3, resp.Pagination.TotalCount)

	resp, _, err = h.svc.List(context.Background(), SubmissionListRequest{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestSubmissionServiceListRejectsBadBounds(t *testing.T) {
	h := newServiceHarness(t, false)

	_, _, err := h.svc.List(context.Background(), SubmissionListRequest{Criteria: models.FilterCriteria{DateRange: models.DateRange{Start: "yesterday"}}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceGetHonoursScope(t *testing.T) {
	h := newServiceHarness(t, false)

	sub, err := h.svc.Get(context.Background(), "2", models.StaffScope("TM001"))
	require.NoError(t, err)
	assert.Equal(t, "Globex", sub.Organisation)

	_, err = h.svc.Get(context.Background(), "3", models.StaffScope("TM001"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = h.svc.Get(context.Background(), "404", models.AdminScope())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSubmissionServiceSetStatus(t *testing.T) {
	h := newServiceHarness(t, true)

	updated, err := h.svc.SetStatus(context.Background(), models.StaffScope("TM001"), "1", "Registered")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, updated.Status)

	stored, err := h.svc.Get(context.Background(), "1", models.AdminScope())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, stored.Status)

	require.Len(t, h.snapshot.writes, 2)
	assert.Equal(t, models.StatusRegistered, h.snapshot.writes[1][0].Status)
	assert.Contains(t, h.cacheRepo.invalidated, "submissions:view:*")
	assert.Equal(t, []writeBackCall{{id: "1", field: "status", value: "registered"}}, h.writeBack.calls)
}

func TestSubmissionServiceSetStatusRejectsUnknownValue(t *testing.T) {
	h := newServiceHarness(t, true)
	before := h.svc.Snapshot()

	_, err := h.svc.SetStatus(context.Background(), models.AdminScope(), "5", "bogus")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, before, h.svc.Snapshot())
	assert.Len(t, h.snapshot.writes, 1)
	assert.Empty(t, h.writeBack.calls)
}

func TestSubmissionServiceMutationOutsideScope(t *testing.T) {
	h := newServiceHarness(t, false)

	_, err := h.svc.SetRemark(context.Background(), models.StaffScope("TM001"), "3", "not mine")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	stored, err := h.svc.Get(context.Background(), "3", models.AdminScope())
	require.NoError(t, err)
	assert.Empty(t, stored.Remark)
}

func TestSubmissionServiceSetAssignment(t *testing.T) {
	h := newServiceHarness(t, false)

	_, err := h.svc.SetAssignment(context.Background(), models.StaffScope("TM001"), "2", "TM001")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = h.svc.SetAssignment(context.Background(), models.AdminScope(), "999", "TM001")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	updated, err := h.svc.SetAssignment(context.Background(), models.AdminScope(), "2", "tm003")
	require.NoError(t, err)
	assert.Equal(t, "TM003", updated.AssignedTo)
}

func TestSubmissionServiceWriteBackFailureIsSwallowed(t *testing.T) {
	h := newServiceHarness(t, true)
	h.writeBack.err = errors.New("script offline")
	h.snapshot.err = errors.New("disk full")

	updated, err := h.svc.SetRemark(context.Background(), models.AdminScope(), "2", "  follow up  ")
	require.NoError(t, err)
	assert.Equal(t, "follow up", updated.Remark)
	assert.Len(t, h.writeBack.calls, 1)
}

func TestSubmissionServiceStats(t *testing.T) {
	h := newServiceHarness(t, false)

	stats := h.svc.Stats(context.Background(), models.StaffScope("TM002"))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[models.StatusRegistered])
	assert.Equal(t, 0, stats.ByStatus[models.StatusPending])
	assert.Equal(t, 4, stats.Participants)
}

func submissionIDs(subs []models.Submission) []string {
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}
	return ids
}
