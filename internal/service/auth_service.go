package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
	"github.com/vidyadesk/school-api/pkg/jobs"
	"github.com/vidyadesk/school-api/pkg/mailer"
)

type authAccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, salt, passwordHash string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	JWTSecret     string
	TokenExpiry   time.Duration
	ResetTokenTTL time.Duration
	ResetBaseURL  string
}

// AuthService provides signup, login and password-reset use cases.
type AuthService struct {
	repo      authAccountRepository
	mail      *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authAccountRepository, mail *jobs.Queue, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = time.Hour
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &AuthService{repo: repo, mail: mail, validator: validate, logger: logger, config: config}
}

// newSalt returns 16 random bytes, hex encoded.
func newSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// hashPassword derives the stored digest as HMAC-SHA256 keyed by the salt.
func hashPassword(password, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyPassword(password, salt, digest string) bool {
	return hmac.Equal([]byte(hashPassword(password, salt)), []byte(digest))
}

// Signup registers a new administrator account.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AccountInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	salt, err := newSalt()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare credentials")
	}
	account := &models.Account{
		Name:          req.Name,
		Email:         req.Email,
		Role:          req.Role,
		Tenant:        req.Tenant,
		TenantAddress: req.TenantAddress,
		Salt:          salt,
		PasswordHash:  hashPassword(req.Password, salt),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "an account with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.logger.Info("account registered", zap.String("email", account.Email), zap.String("tenant", account.Tenant))
	info := accountInfo(account)
	return &info, nil
}

// Login authenticates an administrator and issues a session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if !verifyPassword(req.Password, account.Salt, account.PasswordHash) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}

	if err := s.repo.UpdateLastLogin(ctx, account.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		Account:   accountInfo(account),
	}, nil
}

// Profile returns the account details for an authenticated administrator.
func (s *AuthService) Profile(ctx context.Context, id string) (*models.AccountInfo, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}
	info := accountInfo(account)
	return &info, nil
}

// ForgotPassword issues a single-use reset token and queues the mail. The
// response is identical whether or not the email exists, so the endpoint
// cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("password reset requested for unknown email", zap.String("email", req.Email))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token")
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().UTC().Add(s.config.ResetTokenTTL)

	if err := s.repo.SetResetToken(ctx, account.ID, token, expiry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset token")
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.config.ResetBaseURL, token)
	msg := mailer.Message{
		ToName:      account.Name,
		ToEmail:     account.Email,
		Subject:     "Password reset request",
		TextContent: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n", account.Name, s.config.ResetTokenTTL, link),
	}
	if s.mail != nil {
		if err := s.mail.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "password_reset", Payload: msg}); err != nil {
			s.logger.Error("failed to queue reset mail", zap.Error(err))
		}
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new credential.
func (s *AuthService) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	account, err := s.repo.FindByResetToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "reset link is invalid or has expired")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	salt, err := newSalt()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare credentials")
	}
	if err := s.repo.UpdatePassword(ctx, account.ID, salt, hashPassword(req.Password, salt)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.logger.Info("password reset completed", zap.String("account_id", account.ID))
	return nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(token string) (*models.Claims, error) {
	claims := &models.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired session")
	}
	return claims, nil
}

func (s *AuthService) generateToken(account *models.Account) (string, error) {
	now := time.Now().UTC()
	claims := models.Claims{
		AccountID:     account.ID,
		Name:          account.Name,
		Email:         account.Email,
		Role:          account.Role,
		Tenant:        account.Tenant,
		TenantAddress: account.TenantAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}

func accountInfo(account *models.Account) models.AccountInfo {
	return models.AccountInfo{
		ID:            account.ID,
		Name:          account.Name,
		Email:         account.Email,
		Role:          account.Role,
		Tenant:        account.Tenant,
		TenantAddress: account.TenantAddress,
	}
}
