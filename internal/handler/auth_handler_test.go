package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/middleware"
	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/service"
)

type fakeAccountStore struct {
	accounts map[string]*models.Account
	nextID   int
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]*models.Account)}
}

func (f *fakeAccountStore) Create(_ context.Context, account *models.Account) error {
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	f.nextID++
	account.ID = fmt.Sprintf("acc-%d", f.nextID)
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return account, nil
}

func (f *fakeAccountStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if account, ok := f.accounts[id]; ok {
		account.LastLogin = &ts
	}
	return nil
}

func (f *fakeAccountStore) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	account, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	account.ResetToken = &token
	account.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeAccountStore) FindByResetToken(_ context.Context, token string, now time.Time) (*models.Account, error) {
	for _, account := range f.accounts {
		if account.ResetToken != nil && *account.ResetToken == token && account.ResetTokenExpiry.After(now) {
			return account, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountStore) UpdatePassword(_ context.Context, id, salt, passwordHash string) error {
	account, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	account.Salt = salt
	account.PasswordHash = passwordHash
	account.ResetToken = nil
	account.ResetTokenExpiry = nil
	return nil
}

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authSvc := service.NewAuthService(newFakeAccountStore(), nil, nil, nil, service.AuthConfig{
		JWTSecret:   "handler-test-secret",
		TokenExpiry: time.Hour,
	})
	h := NewAuthHandler(authSvc, CookieSettings{Name: "token", MaxAge: 3600})

	r := gin.New()
	r.Use(middleware.CookieAuth(authSvc, "token"))
	r.POST("/admin/signup", h.Signup)
	r.POST("/admin/signin", h.Login)
	r.GET("/admin/profile", h.Profile)
	return r
}

func postJSON(r *gin.Engine, path string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signupPayload() models.SignupRequest {
	return models.SignupRequest{
		Name:          "Principal",
		Email:         "principal@school.org",
		Password:      "secret123",
		Role:          models.RoleAdmin,
		Tenant:        "Green Valley School",
		TenantAddress: "12 Lake Road, Jaipur",
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestAuthHandlerSignupAndLogin(t *testing.T) {
	r := newAuthTestRouter(t)

	w := postJSON(r, "/admin/signup", signupPayload())
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/admin/signin", models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestAuthHandlerLoginRejectsBadBody(t *testing.T) {
	r := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/signin", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerProfileRoundTrip(t *testing.T) {
	r := newAuthTestRouter(t)

	w := postJSON(r, "/admin/signup", signupPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	w = postJSON(r, "/admin/signin", models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/admin/profile", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "principal@school.org")
}

func TestAuthHandlerProfileWithoutSession(t *testing.T) {
	r := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/profile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
