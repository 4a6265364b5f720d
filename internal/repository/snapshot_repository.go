package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

const snapshotSchema = `CREATE TABLE IF NOT EXISTS submission_snapshots (
	position INTEGER PRIMARY KEY,
	submission_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
)`

type snapshotRow struct {
	Position     int       `db:"position"`
	SubmissionID string    `db:"submission_id"`
	Payload      string    `db:"payload"`
	SavedAt      time.Time `db:"saved_at"`
}

// SnapshotRepository stores the last known canonical submission set.
type SnapshotRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// EnsureSchema creates the snapshot table when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

// ReplaceAll swaps the stored set for subs inside one transaction.
func (r *SnapshotRepository) ReplaceAll(ctx context.Context, subs []models.Submission) error {
	savedAt := r.now().UTC()
	rows := make([]snapshotRow, len(subs))
	for i, sub := range subs {
		payload, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshal submission %s: %w", sub.ID, err)
		}
		rows[i] = snapshotRow{Position: i, SubmissionID: sub.ID, Payload: string(payload), SavedAt: savedAt}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submission_snapshots`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear snapshot: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO submission_snapshots (position, submission_id, payload, saved_at) VALUES (?, ?, ?, ?)`)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insert, row.Position, row.SubmissionID, row.Payload, row.SavedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert snapshot row %s: %w", row.SubmissionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load returns the stored records in their saved order.
func (r *SnapshotRepository) Load(ctx context.Context) ([]models.RawRecord, error) {
	var rows []snapshotRow
	const query = `SELECT position, submission_id, payload, saved_at FROM submission_snapshots ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	records := make([]models.RawRecord, 0, len(rows))
	for _, row := range rows {
		dec := json.NewDecoder(bytes.NewReader([]byte(row.Payload)))
		dec.UseNumber()
		var rec models.RawRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode snapshot row %s: %w", row.SubmissionID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SnapshotSource adapts the repository to the provider chain.
type SnapshotSource struct {
	repo interface {
		Load(ctx context.Context) ([]models.RawRecord, error)
	}
}

// NewSnapshotSource wraps repo as the cache tier.
func NewSnapshotSource(repo *SnapshotRepository) *SnapshotSource {
	return &SnapshotSource{repo: repo}
}

// Name identifies the source in logs and metrics.
func (s *SnapshotSource) Name() string { return "snapshot" }

// Tier reports the provider tier.
func (s *SnapshotSource) Tier() models.SourceTier { return models.TierCache }

// Fetch reads the snapshot. An empty snapshot moves the chain on.
func (s *SnapshotSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if s == nil || s.repo == nil {
		return nil, ErrSourceNotConfigured
	}
	records, err := s.repo.Load(ctx)
	if err != nil {
		return nil, unavailable("snapshot", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: snapshot empty", ErrTryNext)
	}
	return records, nil
}
