package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
)

func studentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "registration_no", "student_name", "father_name", "mother_name", "gender", "dob", "class", "stream", "medium", "contact_no", "address", "total_fees", "fees_paid", "session", "tenant", "created_at", "updated_at"}).
		AddRow("st-1", "2024001", "Asha Verma", "R Verma", "S Verma", "Female", now, "10", "", "English", "9876500001", "Ward 4", 12000.0, 6000.0, "2024-25", "Green Valley School", now, now)
}

func TestStudentRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM students WHERE tenant").
		WithArgs("Green Valley School", "10", "English").
		WillReturnRows(studentRows())

	students, err := repo.List(context.Background(), "Green Valley School", models.StudentFilter{Class: "10", Medium: "English"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "2024001", students[0].RegistrationNo)
	assert.Equal(t, 6000.0, students[0].Dues())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryOverview(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"medium", "class", "stream", "count"}).
		AddRow("English", "10", "", 34).
		AddRow("English", "12", "Science", 21)
	mock.ExpectQuery("SELECT medium, class, stream, COUNT").
		WithArgs("Green Valley School").
		WillReturnRows(rows)

	overview, err := repo.Overview(context.Background(), "Green Valley School")
	require.NoError(t, err)
	require.Len(t, overview, 2)
	assert.Equal(t, 34, overview[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetClassFees(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET total_fees").
		WithArgs("Green Valley School", 15000.0, sqlmock.AnyArg(), "12", "English", "Science").
		WillReturnResult(sqlmock.NewResult(0, 21))

	n, err := repo.SetClassFees(context.Background(), "Green Valley School", "12", "English", "Science", 15000)
	require.NoError(t, err)
	assert.Equal(t, int64(21), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteManyEmpty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	n, err := repo.DeleteMany(context.Background(), "Green Valley School", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
