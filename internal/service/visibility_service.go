package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type recordSeenRepository interface {
	Upsert(ctx context.Context, mark *models.RecordSeen) error
	Find(ctx context.Context, recordID string, viewerType models.ViewerType, viewerKey string) (*models.RecordSeen, error)
	ListForViewer(ctx context.Context, viewerType models.ViewerType, viewerKey string, recordIDs []string) ([]models.RecordSeen, error)
}

// VisibilityService tracks when each viewer identity last opened a record.
type VisibilityService struct {
	repo    recordSeenRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewVisibilityService constructs a VisibilityService. A nil clock uses storeNow.
func NewVisibilityService(repo recordSeenRepository, metrics *MetricsService, logger *zap.Logger, now func() time.Time) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = storeNow
	}
	return &VisibilityService{repo: repo, metrics: metrics, logger: logger, now: now}
}

// MarkSeen records that viewer opened the record now. Anonymous viewers are ignored.
func (s *VisibilityService) MarkSeen(ctx context.Context, recordID string, viewer models.Viewer) error {
	if viewer.Anonymous() {
		return nil
	}
	if !viewer.Type.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "viewer must be student or teacher")
	}
	mark := &models.RecordSeen{
		RecordID:   recordID,
		ViewerType: viewer.Type,
		ViewerKey:  viewer.Key,
		LastSeenAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, mark); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Internal(err, "failed to mark record as seen")
	}
	s.metrics.RecordSeen(string(viewer.Type))
	return nil
}

// HasUnseen reports whether record changed after viewer last opened it. A
// viewer that never opened the record has unseen changes.
func (s *VisibilityService) HasUnseen(ctx context.Context, record *models.Record, viewer models.Viewer) (bool, error) {
	if viewer.Anonymous() {
		return false, nil
	}
	mark, err := s.repo.Find(ctx, record.ID, viewer.Type, viewer.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, appErrors.Internal(err, "failed to load visibility mark")
	}
	return unseenSince(record.UpdatedAt, mark), nil
}

// Annotate sets the Unseen flag on every item for viewer using one lookup.
func (s *VisibilityService) Annotate(ctx context.Context, items []models.RecordListItem, viewer models.Viewer) error {
	if viewer.Anonymous() || len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	marks, err := s.repo.ListForViewer(ctx, viewer.Type, viewer.Key, ids)
	if err != nil {
		return appErrors.Internal(err, "failed to load visibility marks")
	}
	byRecord := make(map[string]*models.RecordSeen, len(marks))
	for i := range marks {
		byRecord[marks[i].RecordID] = &marks[i]
	}
	for i := range items {
		items[i].Unseen = unseenSince(items[i].UpdatedAt, byRecord[items[i].ID])
	}
	return nil
}

func unseenSince(updatedAt time.Time, mark *models.RecordSeen) bool {
	if mark == nil {
		return true
	}
	return updatedAt.After(mark.LastSeenAt)
}

// storeNow is the wall clock at the precision Postgres keeps.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
