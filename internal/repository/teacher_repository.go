package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

const teacherColumns = `id, collection_code, teacher_id, name, created_at, updated_at`

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListByCollection returns teachers newest first.
func (r *TeacherRepository) ListByCollection(ctx context.Context, collectionCode string) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE collection_code = $1 ORDER BY created_at DESC`
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query, collectionCode); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByTeacherID fetches a teacher by external id within a collection.
func (r *TeacherRepository) FindByTeacherID(ctx context.Context, collectionCode, teacherID string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE collection_code = $1 AND teacher_id = $2`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, collectionCode, teacherID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a teacher. A teacher id already used in the collection yields ErrDuplicate.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, collection_code, teacher_id, name, created_at, updated_at)
        VALUES (:id, :collection_code, :teacher_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", translate(err))
	}
	return nil
}

// Delete removes a teacher. Records written by the teacher are untouched.
func (r *TeacherRepository) Delete(ctx context.Context, collectionCode, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE collection_code = $1 AND id = $2`, collectionCode, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted teacher rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
