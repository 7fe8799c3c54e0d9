package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

const recordColumns = `id, collection_code, student_id, subject, content, revision_count, created_at, updated_at`

const recordListSelect = `SELECT r.id, r.student_id, s.grade, s.class_number, s.number, s.name AS student_name,
        r.subject, r.content, r.revision_count, r.updated_at
        FROM records r JOIN students s ON s.id = r.student_id`

// RecordRepository owns records and their append-only revision log.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs a RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a record together with its seed revision in one transaction.
// An existing (collection, student, subject) key yields ErrDuplicate.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record, seed models.Revision) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	seed.RecordID = record.ID
	seed.Version = 1
	record.RevisionCount = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create record tx: %w", err)
	}
	const insertRecord = `INSERT INTO records (id, collection_code, student_id, subject, content, revision_count, created_at, updated_at)
        VALUES (:id, :collection_code, :student_id, :subject, :content, :revision_count, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRecord, record); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create record: %w", translate(err))
	}
	if err := insertRevision(ctx, tx, seed); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create record tx: %w", err)
	}
	record.Revisions = []models.Revision{seed}
	return nil
}

// EnsureEmpty creates an empty record with no revisions unless one already
// exists for the key. It reports whether a row was inserted.
func (r *RecordRepository) EnsureEmpty(ctx context.Context, collectionCode, studentID, subject string) (bool, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO records (id, collection_code, student_id, subject, content, revision_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, '', 0, $5, $5)
        ON CONFLICT (collection_code, student_id, subject) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, uuid.NewString(), collectionCode, studentID, subject, now)
	if err != nil {
		return false, fmt.Errorf("ensure record: %w", translate(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check ensured record rows: %w", err)
	}
	return affected > 0, nil
}

// FindByID fetches a record without its revisions.
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRevisions returns the history of a record in version order.
func (r *RecordRepository) ListRevisions(ctx context.Context, recordID string) ([]models.Revision, error) {
	const query = `SELECT record_id, version, diff_text, note, modified_by, modified_at
        FROM record_revisions WHERE record_id = $1 ORDER BY version ASC`
	revisions := []models.Revision{}
	if err := r.db.SelectContext(ctx, &revisions, query, recordID); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revisions, nil
}

// AppendRevision stores new content and its revision atomically, provided the
// record still has expectedCount revisions. Otherwise nothing is written and
// ErrStaleRevision is returned.
func (r *RecordRepository) AppendRevision(ctx context.Context, recordID string, expectedCount int, content string, revision models.Revision) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append revision tx: %w", err)
	}
	const update = `UPDATE records SET content = $1, revision_count = revision_count + 1, updated_at = $2
        WHERE id = $3 AND revision_count = $4`
	result, err := tx.ExecContext(ctx, update, content, revision.ModifiedAt, recordID, expectedCount)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update record content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("check updated record rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrStaleRevision
	}
	revision.RecordID = recordID
	revision.Version = expectedCount + 1
	if err := insertRevision(ctx, tx, revision); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append revision tx: %w", err)
	}
	return nil
}

// ListByCollection returns every record of a collection, most recently updated first.
func (r *RecordRepository) ListByCollection(ctx context.Context, collectionCode string) ([]models.RecordListItem, error) {
	query := recordListSelect + ` WHERE r.collection_code = $1 ORDER BY r.updated_at DESC, r.id ASC`
	items := []models.RecordListItem{}
	if err := r.db.SelectContext(ctx, &items, query, collectionCode); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return items, nil
}

// ListByStudent returns one student's records, most recently updated first.
func (r *RecordRepository) ListByStudent(ctx context.Context, collectionCode, studentID string) ([]models.RecordListItem, error) {
	query := recordListSelect + ` WHERE r.collection_code = $1 AND r.student_id = $2 ORDER BY r.updated_at DESC, r.id ASC`
	items := []models.RecordListItem{}
	if err := r.db.SelectContext(ctx, &items, query, collectionCode, studentID); err != nil {
		return nil, fmt.Errorf("list student records: %w", err)
	}
	return items, nil
}

func insertRevision(ctx context.Context, tx *sqlx.Tx, revision models.Revision) error {
	const query = `INSERT INTO record_revisions (record_id, version, diff_text, note, modified_by, modified_at)
        VALUES (:record_id, :version, :diff_text, :note, :modified_by, :modified_at)`
	if _, err := tx.NamedExecContext(ctx, query, revision); err != nil {
		return fmt.Errorf("insert revision: %w", translate(err))
	}
	return nil
}
