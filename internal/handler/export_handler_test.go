package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/service"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

type fakeExportResolver struct {
	dir       string
	stored    *service.StoredExport
	err       error
	lastToken string
}

func (f *fakeExportResolver) Resolve(token string) (*service.StoredExport, error) {
	f.lastToken = token
	return f.stored, f.err
}

func (f *fakeExportResolver) Open(relPath string) (*os.File, error) {
	return os.Open(filepath.Join(f.dir, relPath))
}

func TestExportHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "exp-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exp-1", "form-submissions-2025-10-23.csv"), []byte("\"Timestamp\"\n"), 0o644))

	resolver := &fakeExportResolver{dir: dir, stored: &service.StoredExport{
		ID:        "exp-1",
		Path:      "exp-1/form-submissions-2025-10-23.csv",
		Filename:  "form-submissions-2025-10-23.csv",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := NewExportHandler(resolver)
	c, rec := newTestContext(http.MethodGet, "/exports/signed", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "signed"}}

	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signed", resolver.lastToken)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="form-submissions-2025-10-23.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"Timestamp\"\n", rec.Body.String())
}

func TestExportHandlerExpiredLink(t *testing.T) {
	resolver := &fakeExportResolver{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")}
	handler := NewExportHandler(resolver)
	c, rec := newTestContext(http.MethodGet, "/exports/old", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "old"}}

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportHandlerMissingFile(t *testing.T) {
	resolver := &fakeExportResolver{dir: t.TempDir(), stored: &service.StoredExport{Path: "gone/file.csv", Filename: "file.csv"}}
	handler := NewExportHandler(resolver)
	c, rec := newTestContext(http.MethodGet, "/exports/t", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "t"}}

	handler.Download(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
