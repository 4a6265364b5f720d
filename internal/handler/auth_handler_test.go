package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/models"
	"github.com/noah-isme/shortcourse-api/internal/service"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

type fakeAuthSrv struct {
	last models.LoginRequest
	resp *models.LoginResponse
	err  error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.last = req
	return f.resp, f.err
}

func TestAuthHandlerLogin(t *testing.T) {
	srv := &fakeAuthSrv{resp: &models.LoginResponse{AccessToken: "token"}}
	handler := NewAuthHandler(srv, nil)
	c, rec := newTestContext(http.MethodPost, "/auth/login", []byte(`{"staff_id":"TM001","password":"pw"}`), nil)

	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TM001", srv.last.StaffID)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, "token", resp.AccessToken)
}

func TestAuthHandlerLoginRejected(t *testing.T) {
	srv := &fakeAuthSrv{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "")}
	handler := NewAuthHandler(srv, nil)
	c, rec := newTestContext(http.MethodPost, "/auth/login", []byte(`{"staff_id":"TM001","password":"bad"}`), nil)

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginMalformed(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{}, nil)
	c, rec := newTestContext(http.MethodPost, "/auth/login", []byte(`{`), nil)

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{}, service.DefaultStaffDirectory())
	c, rec := newTestContext(http.MethodGet, "/auth/me", nil, staffClaims("TM002"))

	handler.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var member models.StaffMember
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &member))
	assert.Equal(t, "Jane Doe", member.Name)
}

func TestStaffHandlerList(t *testing.T) {
	handler := NewStaffHandler(service.DefaultStaffDirectory())
	c, rec := newTestContext(http.MethodGet, "/staff", nil, staffClaims("TM001"))

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var members []models.StaffMember
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &members))
	assert.NotEmpty(t, members)
}
