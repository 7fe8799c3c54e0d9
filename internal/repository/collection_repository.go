package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

const collectionColumns = `id, code, name, admin_key_hash, subjects, created_at, updated_at`

// CollectionRepository persists collections.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository constructs a CollectionRepository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// FindByCode fetches a collection by its external code.
func (r *CollectionRepository) FindByCode(ctx context.Context, code string) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE code = $1`
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, code); err != nil {
		return nil, err
	}
	return &collection, nil
}

// Create inserts a collection. A taken code yields ErrDuplicate.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = now
	}
	collection.UpdatedAt = now
	if collection.Subjects == nil {
		collection.Subjects = []string{}
	}
	const query = `INSERT INTO collections (id, code, name, admin_key_hash, subjects, created_at, updated_at)
        VALUES (:id, :code, :name, :admin_key_hash, :subjects, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, collection); err != nil {
		return fmt.Errorf("create collection: %w", translate(err))
	}
	return nil
}

// AddSubject appends subject unless it is already configured.
func (r *CollectionRepository) AddSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	query := `UPDATE collections
        SET subjects = CASE WHEN $2 = ANY(subjects) THEN subjects ELSE array_append(subjects, $2) END,
            updated_at = $3
        WHERE code = $1
        RETURNING ` + collectionColumns
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, code, subject, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &collection, nil
}

// RemoveSubject drops subject from the list. Existing records are kept.
func (r *CollectionRepository) RemoveSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	query := `UPDATE collections
        SET subjects = array_remove(subjects, $2), updated_at = $3
        WHERE code = $1
        RETURNING ` + collectionColumns
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, code, subject, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &collection, nil
}

// Delete removes a collection. Used by the seed script to reset fixtures.
func (r *CollectionRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}
