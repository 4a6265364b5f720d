package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shortcourse-api/internal/dto"
	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

const (
	submissionViewCachePrefix = "submissions:view:"
	submissionViewCacheScope  = submissionViewCachePrefix + "*"
)

// Write-back field names understood by the Apps Script endpoint.
const (
	writeBackFieldStatus     = "status"
	writeBackFieldAssignment = "assignedTo"
	writeBackFieldRemark     = "remark"
)

type submissionChainLoader interface {
	Load(ctx context.Context) ([]models.Submission, models.LoadResult, bool)
}

type submissionSnapshotWriter interface {
	ReplaceAll(ctx context.Context, subs []models.Submission) error
}

type submissionWriteBack interface {
	Update(ctx context.Context, id, field, value string) error
}

// SubmissionServiceConfig tunes list paging, caching and write-back.
type SubmissionServiceConfig struct {
	CacheTTL         time.Duration
	DefaultPageSize  int
	MaxPageSize      int
	WriteBack        bool
	WriteBackTimeout time.Duration
}

// SubmissionServiceParams groups constructor dependencies.
type SubmissionServiceParams struct {
	Loader    submissionChainLoader
	Snapshot  submissionSnapshotWriter
	WriteBack submissionWriteBack
	Staff     *StaffDirectory
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    SubmissionServiceConfig
}

// SubmissionListRequest carries filters and paging for a list query.
type SubmissionListRequest struct {
	Criteria models.FilterCriteria
	Page     int
	PageSize int
}

// SubmissionService owns the in-memory canonical submission set.
type SubmissionService struct {
	loader    submissionChainLoader
	snapshot  submissionSnapshotWriter
	writeBack submissionWriteBack
	staff     *StaffDirectory
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SubmissionServiceConfig
	now       func() time.Time

	mu       sync.RWMutex
	subs     []models.Submission
	loading  bool
	lastLoad *models.LoadResult

	persistMu sync.Mutex
}

// NewSubmissionService constructs a SubmissionService with sane defaults.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 500
	}
	if cfg.WriteBackTimeout <= 0 {
		cfg.WriteBackTimeout = 10 * time.Second
	}
	staff := params.Staff
	if staff == nil {
		staff = DefaultStaffDirectory()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		loader:    params.Loader,
		snapshot:  params.Snapshot,
		writeBack: params.WriteBack,
		staff:     staff,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Load runs the source chain and replaces the set. Only one load runs at a time;
// a concurrent call fails with CONFLICT. When no source serves, the current set is kept.
func (s *SubmissionService) Load(ctx context.Context) (*models.LoadResult, error) {
	if s.loader == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "submission loader not configured")
	}
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a submission load is already in progress")
	}
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	subs, result, ok := s.loader.Load(ctx)
	if !ok {
		s.mu.RLock()
		count := len(s.subs)
		s.mu.RUnlock()
		s.logger.Warn("submission load served nothing, keeping current set", zap.Int("count", count))
		return &result, nil
	}

	s.mu.Lock()
	s.subs = subs
	s.lastLoad = &result
	s.mu.Unlock()

	s.metrics.SetSubmissionCount(len(subs))
	if result.Persist {
		s.persist(ctx)
	}
	s.invalidateViews(ctx)
	return &result, nil
}

// Status reports whether a load is running and what the last one served.
func (s *SubmissionService) Status() dto.LoadStatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := dto.LoadStatusResponse{Loading: s.loading, Count: len(s.subs)}
	if s.lastLoad != nil {
		last := *s.lastLoad
		status.LastLoad = &last
	}
	return status
}

// Ready reports whether at least one load has populated the set.
func (s *SubmissionService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad != nil
}

// Snapshot returns a copy of the current canonical set.
func (s *SubmissionService) Snapshot() []models.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Submission, len(s.subs))
	copy(out, s.subs)
	return out
}

// View returns the full filtered, sorted view for the criteria's viewer.
func (s *SubmissionService) View(ctx context.Context, criteria models.FilterCriteria) ([]models.Submission, error) {
	return DeriveSubmissionView(s.Snapshot(), criteria)
}

// List returns one page of the filtered view with stats over the viewer's scope and
// over the filtered set. The boolean reports a view cache hit.
func (s *SubmissionService) List(ctx context.Context, req SubmissionListRequest) (*dto.SubmissionListResponse, bool, error) {
	page, size := s.normalizePaging(req.Page, req.PageSize)
	cacheKey := submissionViewCachePrefix + HashKey(req.Criteria, viewerKey(req.Criteria.Viewer), page, size)

	var cached dto.SubmissionListResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	all := s.Snapshot()
	view, err := DeriveSubmissionView(all, req.Criteria)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.SubmissionListResponse{
		Items:         paginate(view, page, size),
		Stats:         ComputeSubmissionStats(ScopeSubmissions(all, req.Criteria.Viewer)),
		FilteredStats: ComputeSubmissionStats(view),
		Pagination:    models.Pagination{Page: page, PageSize: size, TotalCount: len(view)},
	}
	_ = s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

// Stats aggregates the records visible to viewer.
func (s *SubmissionService) Stats(ctx context.Context, viewer *models.ViewerScope) models.SubmissionStats {
	return ComputeSubmissionStats(ScopeSubmissions(s.Snapshot(), viewer))
}

// Get returns one record. Records outside the viewer's scope are reported as not found.
func (s *SubmissionService) Get(ctx context.Context, id string, viewer *models.ViewerScope) (*models.Submission, error) {
	s.mu.RLock()
	sub, ok := FindSubmission(s.subs, id)
	s.mu.RUnlock()
	if !ok || !viewer.Allows(sub.AssignedTo) {
		return nil, submissionNotFound(id)
	}
	return &sub, nil
}

// SetStatus changes a record's status.
func (s *SubmissionService) SetStatus(ctx context.Context, viewer *models.ViewerScope, id, status string) (*models.Submission, error) {
	updated, err := s.mutate(viewer, id, func(subs []models.Submission) ([]models.Submission, error) {
		return SetStatus(subs, id, status)
	})
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, id, writeBackFieldStatus, string(updated.Status))
	return updated, nil
}

// SetAssignment reassigns a record. Only admins may reassign.
func (s *SubmissionService) SetAssignment(ctx context.Context, viewer *models.ViewerScope, id, staffID string) (*models.Submission, error) {
	if viewer == nil || !viewer.Admin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can reassign submissions")
	}
	updated, err := s.mutate(viewer, id, func(subs []models.Submission) ([]models.Submission, error) {
		return SetAssignment(subs, id, staffID, s.staff)
	})
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, id, writeBackFieldAssignment, updated.AssignedTo)
	return updated, nil
}

// SetRemark replaces a record's remark.
func (s *SubmissionService) SetRemark(ctx context.Context, viewer *models.ViewerScope, id, remark string) (*models.Submission, error) {
	updated, err := s.mutate(viewer, id, func(subs []models.Submission) ([]models.Submission, error) {
		return SetRemark(subs, id, remark)
	})
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, id, writeBackFieldRemark, updated.Remark)
	return updated, nil
}

// mutate applies fn to the set under the write lock. Validation runs before the
// scope check so a bad value is reported the same way for every viewer.
func (s *SubmissionService) mutate(viewer *models.ViewerScope, id string, fn func([]models.Submission) ([]models.Submission, error)) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.subs)
	if err != nil {
		return nil, err
	}
	current, _ := FindSubmission(s.subs, id)
	if !viewer.Allows(current.AssignedTo) {
		return nil, submissionNotFound(id)
	}
	s.subs = next
	updated, _ := FindSubmission(next, id)
	return &updated, nil
}

func (s *SubmissionService) afterMutation(ctx context.Context, id, field, value string) {
	s.persist(ctx)
	s.invalidateViews(ctx)
	s.pushWriteBack(ctx, id, field, value)
}

// persist writes the current set to the snapshot. Writers are serialized and always
// read the set under the lock, so the last write reflects the latest state.
func (s *SubmissionService) persist(ctx context.Context) {
	if s.snapshot == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	subs := s.Snapshot()
	start := s.now()
	err := s.snapshot.ReplaceAll(ctx, subs)
	s.metrics.ObserveSnapshotWrite(s.now().Sub(start))
	if err != nil {
		s.logger.Warn("persist submission snapshot", zap.Int("count", len(subs)), zap.Error(err))
	}
}

func (s *SubmissionService) invalidateViews(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, submissionViewCacheScope)
}

func (s *SubmissionService) pushWriteBack(ctx context.Context, id, field, value string) {
	if !s.cfg.WriteBack || s.writeBack == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteBackTimeout)
	defer cancel()
	if err := s.writeBack.Update(ctx, id, field, value); err != nil {
		s.logger.Warn("submission write-back failed",
			zap.String("id", id),
			zap.String("field", field),
			zap.Error(err),
		)
	}
}

func (s *SubmissionService) normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}

func paginate(subs []models.Submission, page, size int) []models.Submission {
	start := (page - 1) * size
	if start >= len(subs) {
		return []models.Submission{}
	}
	end := start + size
	if end > len(subs) {
		end = len(subs)
	}
	return subs[start:end]
}

func viewerKey(viewer *models.ViewerScope) string {
	if viewer == nil || viewer.Admin {
		return "admin"
	}
	return "staff:" + viewer.StaffID
}

func submissionNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("submission %s not found", id))
}
