package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
)

var studentRowColumns = []string{"id", "collection_code", "grade", "class_number", "number", "name", "student_card_code", "created_at", "updated_at"}

func TestStudentRepositoryListByCollection(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "test", 1, 1, 1, "김영찬", "test", now, now).
		AddRow("s2", "test", 1, 1, 2, "이하늘", "s1002", now, now)
	mock.ExpectQuery("SELECT (.+) FROM students WHERE collection_code = \\$1\\s+ORDER BY grade ASC, class_number ASC, number ASC, name ASC").
		WithArgs("test").
		WillReturnRows(rows)

	students, err := repo.ListByCollection(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "김영찬", students[0].Name)
	assert.Equal(t, "s1002", students[1].StudentCardCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByCardCode(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM students WHERE collection_code = \\$1 AND student_card_code = \\$2").
		WithArgs("test", "s1002").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).AddRow("s2", "test", 1, 1, 2, "이하늘", "s1002", now, now))

	student, err := repo.FindByCardCode(context.Background(), "test", "s1002")
	require.NoError(t, err)
	assert.Equal(t, "s2", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.Create(context.Background(), &models.Student{CollectionCode: "test", Name: "A", StudentCardCode: "dup"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsertReturnsStoredID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO students (.+) ON CONFLICT \\(collection_code, student_card_code\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))

	student := &models.Student{CollectionCode: "test", Name: "김영찬", StudentCardCode: "test", Grade: 2}
	require.NoError(t, repo.Upsert(context.Background(), student))
	assert.Equal(t, "existing", student.ID)
	assert.Equal(t, created, student.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteRemovesRecords(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records WHERE collection_code = \\$1 AND student_id = \\$2").
		WithArgs("test", "s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM students WHERE collection_code = \\$1 AND id = \\$2").
		WithArgs("test", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "test", "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "test", "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
