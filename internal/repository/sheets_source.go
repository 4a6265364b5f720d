package repository

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

const sheetsName = "google_sheets"

// SheetsConfig selects the spreadsheet range and credentials. Either an API key
// or an OAuth client with a refresh token is used; ClientOptions override both.
type SheetsConfig struct {
	SpreadsheetID     string
	Range             string
	APIKey            string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRefreshToken string
	ClientOptions     []option.ClientOption
}

// SheetsSource reads the form response sheet through the Sheets API.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsSource builds the source. A missing spreadsheet id yields an unconfigured source.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return &SheetsSource{}, nil
	}
	opts := cfg.ClientOptions
	if len(opts) == 0 {
		switch {
		case cfg.OAuthRefreshToken != "":
			oauthCfg := &oauth2.Config{
				ClientID:     cfg.OAuthClientID,
				ClientSecret: cfg.OAuthClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
			}
			tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})
			opts = append(opts, option.WithTokenSource(tokenSource))
		case cfg.APIKey != "":
			opts = append(opts, option.WithAPIKey(cfg.APIKey))
		default:
			return nil, fmt.Errorf("sheets source requires an API key or OAuth refresh token")
		}
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	readRange := cfg.Range
	if readRange == "" {
		readRange = "Form Responses 1"
	}
	return &SheetsSource{service: svc, spreadsheetID: cfg.SpreadsheetID, readRange: readRange}, nil
}

// Name identifies the source in logs and metrics.
func (s *SheetsSource) Name() string { return sheetsName }

// Tier reports the provider tier.
func (s *SheetsSource) Tier() models.SourceTier { return models.TierRemote }

// Configured reports whether a spreadsheet is attached.
func (s *SheetsSource) Configured() bool { return s != nil && s.service != nil }

// Fetch reads the configured range and maps each row onto its header labels.
func (s *SheetsSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if !s.Configured() {
		return nil, ErrSourceNotConfigured
	}
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, unavailable(sheetsName, err)
	}
	if len(resp.Values) == 0 {
		return nil, unavailable(sheetsName, fmt.Errorf("range %q is empty", s.readRange))
	}
	return RowsToRecords(resp.Values), nil
}

// RowsToRecords treats the first row as headers. Blank headers and fully blank rows are skipped;
// short rows leave trailing columns absent.
func RowsToRecords(rows [][]interface{}) []models.RawRecord {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(cell))
	}
	records := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(models.RawRecord, len(headers))
		blank := true
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" || cell == nil {
				continue
			}
			record[headers[i]] = cell
			if strings.TrimSpace(fmt.Sprint(cell)) != "" {
				blank = false
			}
		}
		if !blank {
			records = append(records, record)
		}
	}
	return records
}
