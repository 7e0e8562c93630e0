package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func accountRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "tenant", "tenant_address", "salt", "password_hash", "last_login", "reset_token", "reset_token_expiry", "created_at", "updated_at"}).
		AddRow("acc-1", "Principal", "principal@school.org", "ADMIN", "Green Valley School", "12 Hill Road", "salt", "hash", nil, nil, nil, now, now)
}

func TestAccountRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("principal@school.org").
		WillReturnRows(accountRow())

	account, err := repo.FindByEmail(context.Background(), "principal@school.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.Equal(t, "Green Valley School", account.Tenant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("missing@school.org").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@school.org")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "Principal", "principal@school.org", models.RoleAdmin, "Green Valley School", "12 Hill Road", "salt", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.Account{
		Name:          "Principal",
		Email:         "principal@school.org",
		Role:          models.RoleAdmin,
		Tenant:        "Green Valley School",
		TenantAddress: "12 Hill Road",
		Salt:          "salt",
		PasswordHash:  "hash",
	}
	err := repo.Create(context.Background(), account)
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByResetToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE reset_token").
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnRows(accountRow())

	account, err := repo.FindByResetToken(context.Background(), "tok", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
