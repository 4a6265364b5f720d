package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

func TestAppsScriptSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[{"Timestamp":"2025-10-20 09:30:00","Organisation":"ABC","Participant Number":2}]}`))
	}))
	defer srv.Close()

	records, err := NewAppsScriptSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ABC", records[0]["Organisation"])
	assert.Equal(t, json.Number("2"), records[0]["Participant Number"])
}

func TestAppsScriptSourceFailuresMoveOn(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"error status": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"error","message":"quota"}`))
		},
		"missing data": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"success"}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewAppsScriptSource(srv.URL, time.Second).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTryNext)
			assert.Equal(t, appErrors.ErrSourceUnavailable.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestAppsScriptSourceNotConfigured(t *testing.T) {
	_, err := NewAppsScriptSource("", 0).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceNotConfigured)
	assert.ErrorIs(t, err, ErrTryNext)
}

func TestAppsScriptSourceUpdate(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{"action": q.Get("action"), "id": q.Get("id"), "field": q.Get("field"), "value": q.Get("value")}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	err := NewAppsScriptSource(srv.URL+"?deployment=1", time.Second).Update(context.Background(), "3", "status", "attended")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"action": "update", "id": "3", "field": "status", "value": "attended"}, got)
}
