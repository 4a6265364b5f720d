package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shortcourse-api/internal/models"
	"github.com/noah-isme/shortcourse-api/internal/repository"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

// SubmissionSource yields raw submission records. Returning an error moves the chain to the next source.
type SubmissionSource interface {
	Name() string
	Tier() models.SourceTier
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// SubmissionLoader runs an ordered source chain and normalizes the first result.
type SubmissionLoader struct {
	sources    []SubmissionSource
	normalizer *SubmissionNormalizer
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewSubmissionLoader builds a loader trying sources in the given order.
func NewSubmissionLoader(normalizer *SubmissionNormalizer, metrics *MetricsService, logger *zap.Logger, sources ...SubmissionSource) *SubmissionLoader {
	if normalizer == nil {
		normalizer = NewSubmissionNormalizer(DefaultStaffDirectory())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionLoader{
		sources:    sources,
		normalizer: normalizer,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Sources lists the configured source names in chain order.
func (l *SubmissionLoader) Sources() []string {
	names := make([]string, 0, len(l.sources))
	for _, src := range l.sources {
		names = append(names, src.Name())
	}
	return names
}

// Load walks the chain and returns the first set that a source served. Source
// failures are logged and never returned; ok is false when every source failed.
func (l *SubmissionLoader) Load(ctx context.Context) ([]models.Submission, models.LoadResult, bool) {
	for _, src := range l.sources {
		records, err := src.Fetch(ctx)
		if err != nil {
			l.recordFailure(src, err)
			continue
		}
		subs := l.normalizer.NormalizeAll(records)
		result := models.LoadResult{
			Source:   src.Name(),
			Tier:     src.Tier(),
			Count:    len(subs),
			Persist:  src.Tier() == models.TierRemote,
			LoadedAt: l.now().UTC(),
		}
		l.metrics.RecordSourceLoad(src.Name(), SourceOutcomeServed)
		l.logger.Info("submissions loaded",
			zap.String("source", result.Source),
			zap.String("tier", string(result.Tier)),
			zap.Int("count", result.Count),
		)
		return subs, result, true
	}
	l.logger.Error("no submission source served a result", zap.Strings("sources", l.Sources()))
	return nil, models.LoadResult{LoadedAt: l.now().UTC()}, false
}

func (l *SubmissionLoader) recordFailure(src SubmissionSource, err error) {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) && errors.Is(err, repository.ErrTryNext) {
		l.metrics.RecordSourceLoad(src.Name(), SourceOutcomeSkipped)
		l.logger.Debug("submission source skipped", zap.String("source", src.Name()), zap.Error(err))
		return
	}
	l.metrics.RecordSourceLoad(src.Name(), SourceOutcomeFailed)
	code := appErrors.ErrSourceUnavailable.Code
	if appErr != nil {
		code = appErr.Code
	}
	l.logger.Warn("submission source unavailable",
		zap.String("source", src.Name()),
		zap.String("tier", string(src.Tier())),
		zap.String("code", code),
		zap.Error(err),
	)
}
