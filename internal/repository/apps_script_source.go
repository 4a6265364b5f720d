package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

const (
	appsScriptName       = "apps_script"
	appsScriptStatusOK   = "success"
	appsScriptMaxPayload = 32 << 20
)

type appsScriptResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// AppsScriptSource reads form submissions from a deployed Apps Script web app.
type AppsScriptSource struct {
	endpoint string
	client   *http.Client
}

// NewAppsScriptSource builds the source. An empty endpoint leaves it unconfigured.
func NewAppsScriptSource(endpoint string, timeout time.Duration) *AppsScriptSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AppsScriptSource{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Name identifies the source in logs and metrics.
func (s *AppsScriptSource) Name() string { return appsScriptName }

// Tier reports the provider tier.
func (s *AppsScriptSource) Tier() models.SourceTier { return models.TierRemote }

// Configured reports whether an endpoint is set.
func (s *AppsScriptSource) Configured() bool { return s != nil && s.endpoint != "" }

// Fetch downloads every submission row.
func (s *AppsScriptSource) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if !s.Configured() {
		return nil, ErrSourceNotConfigured
	}
	body, err := s.call(ctx, s.endpoint)
	if err != nil {
		return nil, unavailable(appsScriptName, err)
	}
	if len(body.Data) == 0 || string(body.Data) == "null" {
		return nil, unavailable(appsScriptName, fmt.Errorf("response has no data"))
	}
	records, err := decodeRecords(body.Data)
	if err != nil {
		return nil, unavailable(appsScriptName, fmt.Errorf("decode data: %w", err))
	}
	return records, nil
}

// Update pushes a single field change back to the sheet.
func (s *AppsScriptSource) Update(ctx context.Context, id, field, value string) error {
	if !s.Configured() {
		return ErrSourceNotConfigured
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("parse script url: %w", err)
	}
	q := u.Query()
	q.Set("action", "update")
	q.Set("id", id)
	q.Set("field", field)
	q.Set("value", value)
	u.RawQuery = q.Encode()

	if _, err := s.call(ctx, u.String()); err != nil {
		return fmt.Errorf("%s update %s.%s: %w", appsScriptName, id, field, err)
	}
	return nil
}

func (s *AppsScriptSource) call(ctx context.Context, target string) (*appsScriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, appsScriptMaxPayload))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var body appsScriptResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if body.Status != appsScriptStatusOK {
		if body.Message != "" {
			return nil, fmt.Errorf("script returned status %q: %s", body.Status, body.Message)
		}
		return nil, fmt.Errorf("script returned status %q", body.Status)
	}
	return &body, nil
}
