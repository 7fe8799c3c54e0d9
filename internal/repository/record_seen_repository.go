package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// RecordSeenRepository stores per-viewer last-seen marks.
type RecordSeenRepository struct {
	db *sqlx.DB
}

// NewRecordSeenRepository constructs a RecordSeenRepository.
func NewRecordSeenRepository(db *sqlx.DB) *RecordSeenRepository {
	return &RecordSeenRepository{db: db}
}

// Upsert records a view. The stored timestamp never moves backwards; the value
// kept is written back into mark.LastSeenAt.
func (r *RecordSeenRepository) Upsert(ctx context.Context, mark *models.RecordSeen) error {
	mark.CreatedAt = mark.LastSeenAt
	mark.UpdatedAt = mark.LastSeenAt
	const query = `INSERT INTO record_seen (record_id, viewer_type, viewer_key, last_seen_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4, $4)
        ON CONFLICT (record_id, viewer_type, viewer_key)
        DO UPDATE SET last_seen_at = GREATEST(record_seen.last_seen_at, EXCLUDED.last_seen_at),
                      updated_at = EXCLUDED.updated_at
        RETURNING last_seen_at, created_at`
	row := r.db.QueryRowxContext(ctx, query, mark.RecordID, mark.ViewerType, mark.ViewerKey, mark.LastSeenAt)
	if err := row.Scan(&mark.LastSeenAt, &mark.CreatedAt); err != nil {
		return fmt.Errorf("upsert record seen: %w", translate(err))
	}
	return nil
}

// Find returns the mark for one viewer on one record.
func (r *RecordSeenRepository) Find(ctx context.Context, recordID string, viewerType models.ViewerType, viewerKey string) (*models.RecordSeen, error) {
	const query = `SELECT record_id, viewer_type, viewer_key, last_seen_at, created_at, updated_at
        FROM record_seen WHERE record_id = $1 AND viewer_type = $2 AND viewer_key = $3`
	var mark models.RecordSeen
	if err := r.db.GetContext(ctx, &mark, query, recordID, viewerType, viewerKey); err != nil {
		return nil, err
	}
	return &mark, nil
}

// ListForViewer returns the viewer's marks for the given records.
func (r *RecordSeenRepository) ListForViewer(ctx context.Context, viewerType models.ViewerType, viewerKey string, recordIDs []string) ([]models.RecordSeen, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT record_id, viewer_type, viewer_key, last_seen_at, created_at, updated_at
        FROM record_seen WHERE viewer_type = $1 AND viewer_key = $2 AND record_id = ANY($3)`
	var marks []models.RecordSeen
	if err := r.db.SelectContext(ctx, &marks, query, viewerType, viewerKey, pq.Array(recordIDs)); err != nil {
		return nil, fmt.Errorf("list record seen: %w", err)
	}
	return marks, nil
}
