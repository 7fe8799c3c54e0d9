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

const studentColumns = `id, collection_code, grade, class_number, number, name, student_card_code, created_at, updated_at`

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByCollection returns the roster ordered by grade, class and number.
func (r *StudentRepository) ListByCollection(ctx context.Context, collectionCode string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE collection_code = $1
        ORDER BY grade ASC, class_number ASC, number ASC, name ASC`
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, collectionCode); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by its internal ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCardCode fetches a student by card code within a collection.
func (r *StudentRepository) FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE collection_code = $1 AND student_card_code = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, collectionCode, cardCode); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student. A card code already used in the collection yields ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, collection_code, grade, class_number, number, name, student_card_code, created_at, updated_at)
        VALUES (:id, :collection_code, :grade, :class_number, :number, :name, :student_card_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", translate(err))
	}
	return nil
}

// Upsert inserts the student or refreshes the descriptive fields of the one
// holding the same card code. The stored ID and creation time are written back.
func (r *StudentRepository) Upsert(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, collection_code, grade, class_number, number, name, student_card_code, created_at, updated_at)
        VALUES (:id, :collection_code, :grade, :class_number, :number, :name, :student_card_code, :created_at, :updated_at)
        ON CONFLICT (collection_code, student_card_code)
        DO UPDATE SET grade = EXCLUDED.grade, class_number = EXCLUDED.class_number, number = EXCLUDED.number,
                      name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("upsert student: %w", translate(err))
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("upsert student: %w", err)
		}
		return fmt.Errorf("upsert student: %w", sql.ErrNoRows)
	}
	if err := rows.Scan(&student.ID, &student.CreatedAt); err != nil {
		return fmt.Errorf("scan upserted student: %w", err)
	}
	return rows.Err()
}

// Delete removes a student and its records in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, collectionCode, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection_code = $1 AND student_id = $2`, collectionCode, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete student records: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM students WHERE collection_code = $1 AND id = $2`, collectionCode, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("check deleted student rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student tx: %w", err)
	}
	return nil
}
