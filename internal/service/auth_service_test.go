package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type fakeAccountRepo struct {
	accounts map[string]*models.Account
	nextID   int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*models.Account{}}
}

func (f *fakeAccountRepo) Create(_ context.Context, account *models.Account) error {
	if account.ID == "" {
		f.nextID++
		account.ID = fmt.Sprintf("acc-%d", f.nextID)
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) FindByID(_ context.Context, id string) (*models.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if a, ok := f.accounts[id]; ok {
		a.LastLogin = &ts
	}
	return nil
}

func (f *fakeAccountRepo) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	if a, ok := f.accounts[id]; ok {
		a.ResetToken = &token
		a.ResetTokenExpiry = &expiry
	}
	return nil
}

func (f *fakeAccountRepo) FindByResetToken(_ context.Context, token string, now time.Time) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.ResetToken != nil && *a.ResetToken == token && a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(now) {
			return a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id, salt, passwordHash string) error {
	if a, ok := f.accounts[id]; ok {
		a.Salt = salt
		a.PasswordHash = passwordHash
		a.ResetToken = nil
		a.ResetTokenExpiry = nil
	}
	return nil
}

func newTestAuthService(repo *fakeAccountRepo) *AuthService {
	return NewAuthService(repo, nil, nil, nil, AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
	})
}

func signupRequest() models.SignupRequest {
	return models.SignupRequest{
		Name:          "Principal",
		Email:         "principal@school.org",
		Password:      "secret123",
		Role:          models.RoleAdmin,
		Tenant:        "Green Valley School",
		TenantAddress: "12 Hill Road, Pune",
	}
}

func TestAuthSignupAndLogin(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAuthService(repo)

	info, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "Green Valley School", resp.Account.Tenant)
}

func TestAuthSignupRejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(newFakeAccountRepo())

	req := signupRequest()
	req.Password = "short"
	_, err := svc.Signup(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "wrongpass1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(newFakeAccountRepo())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@school.org", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateToken(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "principal@school.org", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "Green Valley School", claims.Tenant)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newFakeAccountRepo())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newFakeAccountRepo()
	issuing := newTestAuthService(repo)

	_, err := issuing.Signup(context.Background(), signupRequest())
	require.NoError(t, err)
	resp, err := issuing.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	require.NoError(t, err)

	verifying := NewAuthService(repo, nil, nil, nil, AuthConfig{JWTSecret: "other-secret", TokenExpiry: time.Hour})
	_, err = verifying.ValidateToken(resp.Token)
	assert.Error(t, err)
}

func TestAuthPasswordResetFlow(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	err = svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "principal@school.org"})
	require.NoError(t, err)

	account, err := repo.FindByEmail(context.Background(), "principal@school.org")
	require.NoError(t, err)
	require.NotNil(t, account.ResetToken)
	token := *account.ResetToken

	err = svc.ResetPassword(context.Background(), token, models.ResetPasswordRequest{Password: "newsecret1"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "secret123"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "principal@school.org", Password: "newsecret1"})
	assert.NoError(t, err)

	err = svc.ResetPassword(context.Background(), token, models.ResetPasswordRequest{Password: "another123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc := newTestAuthService(newFakeAccountRepo())

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@school.org"})
	assert.NoError(t, err)
}
