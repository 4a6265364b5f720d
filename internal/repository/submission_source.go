package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

// ErrTryNext marks a provider failure after which the chain moves on.
var ErrTryNext = errors.New("try next source")

// ErrSourceNotConfigured is returned by providers with no endpoint configured.
var ErrSourceNotConfigured = fmt.Errorf("%w: source not configured", ErrTryNext)

// unavailable wraps cause as a SOURCE_UNAVAILABLE error that also matches ErrTryNext.
func unavailable(source string, cause error) error {
	return appErrors.Wrap(
		fmt.Errorf("%s: %w: %w", source, ErrTryNext, cause),
		appErrors.ErrSourceUnavailable.Code,
		appErrors.ErrSourceUnavailable.Status,
		appErrors.ErrSourceUnavailable.Message,
	)
}

// decodeRecords decodes a JSON array of objects, keeping numbers as json.Number.
func decodeRecords(raw json.RawMessage) ([]models.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []models.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
