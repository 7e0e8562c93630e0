package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyadesk/school-api/internal/models"
)

const accountColumns = `id, name, email, role, tenant, tenant_address, salt, password_hash, last_login, reset_token, reset_token_expiry, created_at, updated_at`

// AccountRepository provides database access for administrator accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Emails are unique across all tenants.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	const query = `INSERT INTO accounts (id, name, email, role, tenant, tenant_address, salt, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Email, account.Role, account.Tenant,
		account.TenantAddress, account.Salt, account.PasswordHash, now, now,
	); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// FindByEmail returns an account by email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// FindByID returns an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// UpdateLastLogin records the login timestamp.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE accounts SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetResetToken stores a single-use password reset token with its expiry.
// A fresh request replaces any earlier outstanding token.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	const query = `UPDATE accounts SET reset_token = $2, reset_token_expiry = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token, expiry, time.Now().UTC()); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// FindByResetToken returns the account holding an unexpired reset token.
func (r *AccountRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE reset_token = $1 AND reset_token_expiry > $2 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, token, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by reset token: %w", err)
	}
	return &account, nil
}

// UpdatePassword replaces the credential material and clears any reset token.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, salt, passwordHash string) error {
	const query = `UPDATE accounts SET salt = $2, password_hash = $3, reset_token = NULL, reset_token_expiry = NULL, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, salt, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
