package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shortcourse-api/internal/dto"
	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/export"
	"github.com/noah-isme/shortcourse-api/pkg/storage"
)

// ExportFormat names a supported download format.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ParseExportFormat accepts a format name case-insensitively; empty means CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return ExportFormatCSV, nil
	case ExportFormatCSV, ExportFormatXLSX, ExportFormatPDF:
		return f, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// SubmissionExportHeaders is the fixed column order of submission exports.
var SubmissionExportHeaders = []string{
	"Timestamp", "Programme", "Organisation", "Address", "PIC", "Phone", "Email", "Participant Count",
	"P1 Name", "P1 Phone", "P1 Email", "P1 Designation",
	"P2 Name", "P2 Phone", "P2 Email", "P2 Designation",
	"Meal", "Member", "Trainer", "Member ID", "Claim", "Voucher", "JobStatus", "Assigned To", "Remarks",
}

// pdfExportHeaders fits a landscape page.
var pdfExportHeaders = []string{
	"Timestamp", "Programme", "Organisation", "PIC", "Phone", "Participant Count", "Member", "Claim", "JobStatus", "Assigned To",
}

const exportFilePrefix = "form-submissions"

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// RenderedExport is an export ready to stream.
type RenderedExport struct {
	Format      ExportFormat
	Filename    string
	ContentType string
	Payload     []byte
	RecordCount int
}

// StoredExport resolves a download token to a stored file.
type StoredExport struct {
	ID        string
	Path      string
	Filename  string
	ExpiresAt time.Time
}

// ExportService renders submission views and persists them behind signed links.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	staff   *StaffDirectory
	csv     csvRenderer
	xlsx    xlsxRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, staff *StaffDirectory, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, xlsx xlsxRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if staff == nil {
		staff = DefaultStaffDirectory()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter("")
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: store,
		signer:  signer,
		staff:   staff,
		csv:     csv,
		xlsx:    xlsx,
		pdf:     pdf,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// BuildSubmissionDataset maps submissions onto the export columns. Assignees render as display names.
func BuildSubmissionDataset(subs []models.Submission, staff *StaffDirectory) export.Dataset {
	if staff == nil {
		staff = DefaultStaffDirectory()
	}
	rows := make([]map[string]string, 0, len(subs))
	for _, sub := range subs {
		p1, p2 := sub.Participants[0], sub.Participants[1]
		rows = append(rows, map[string]string{
			"Timestamp":         sub.Timestamp,
			"Programme":         sub.Programme,
			"Organisation":      sub.Organisation,
			"Address":           sub.Address,
			"PIC":               sub.PIC,
			"Phone":             sub.Phone,
			"Email":             sub.Email,
			"Participant Count": sub.ParticipantCount,
			"P1 Name":           p1.Name,
			"P1 Phone":          p1.Phone,
			"P1 Email":          p1.Email,
			"P1 Designation":    p1.Designation,
			"P2 Name":           p2.Name,
			"P2 Phone":          p2.Phone,
			"P2 Email":          p2.Email,
			"P2 Designation":    p2.Designation,
			"Meal":              sub.Meal,
			"Member":            string(sub.Member),
			"Trainer":           sub.Trainer,
			"Member ID":         sub.MemberID,
			"Claim":             sub.Claim,
			"Voucher":           sub.Voucher,
			"JobStatus":         string(sub.Status),
			"Assigned To":       staff.DisplayName(sub.AssignedTo),
			"Remarks":           sub.Remark,
		})
	}
	headers := make([]string, len(SubmissionExportHeaders))
	copy(headers, SubmissionExportHeaders)
	return export.Dataset{Headers: headers, Rows: rows}
}

// Render produces the export payload for subs in the requested format.
func (s *ExportService) Render(subs []models.Submission, format ExportFormat) (*RenderedExport, error) {
	dataset := BuildSubmissionDataset(subs, s.staff)

	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset)
	case ExportFormatPDF:
		title := fmt.Sprintf("Form Submissions %s", s.now().UTC().Format("2006-01-02"))
		payload, err = s.pdf.Render(dataset.Select(pdfExportHeaders...), title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &RenderedExport{
		Format:      format,
		Filename:    s.buildFilename(format),
		ContentType: format.ContentType(),
		Payload:     payload,
		RecordCount: len(subs),
	}, nil
}

// Store renders subs, saves the file and returns a signed download link.
func (s *ExportService) Store(ctx context.Context, subs []models.Submission, format ExportFormat) (*dto.ExportResult, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage not configured")
	}
	rendered, err := s.Render(subs, format)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(path.Join(id, rendered.Filename), rendered.Payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export stored",
		zap.String("export_id", id),
		zap.String("format", string(format)),
		zap.Int("records", rendered.RecordCount),
	)
	return &dto.ExportResult{
		ID:          id,
		Format:      string(format),
		Filename:    rendered.Filename,
		RecordCount: rendered.RecordCount,
		URL:         fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Resolve validates a download token and returns the stored file it points at.
func (s *ExportService) Resolve(token string) (*StoredExport, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	id, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	return &StoredExport{ID: id, Path: relPath, Filename: path.Base(relPath), ExpiresAt: expiresAt}, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func (s *ExportService) buildFilename(format ExportFormat) string {
	return fmt.Sprintf("%s-%s.%s", exportFilePrefix, s.now().UTC().Format("2006-01-02"), format)
}
