package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/textdiff"
)

// UnknownEditor is stored as the author of revisions submitted without a name.
const UnknownEditor = "unknown"

type recordRepository interface {
	Create(ctx context.Context, record *models.Record, seed models.Revision) error
	FindByID(ctx context.Context, id string) (*models.Record, error)
	ListRevisions(ctx context.Context, recordID string) ([]models.Revision, error)
	AppendRevision(ctx context.Context, recordID string, expectedCount int, content string, revision models.Revision) error
	ListByCollection(ctx context.Context, collectionCode string) ([]models.RecordListItem, error)
	ListByStudent(ctx context.Context, collectionCode, studentID string) ([]models.RecordListItem, error)
}

type recordStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error)
}

type collectionResolver interface {
	Get(ctx context.Context, code string) (*models.Collection, error)
}

type visibilityTracker interface {
	MarkSeen(ctx context.Context, recordID string, viewer models.Viewer) error
	Annotate(ctx context.Context, items []models.RecordListItem, viewer models.Viewer) error
}

type differ interface {
	Unified(before, after string) (string, error)
}

// CreateRecordRequest is the payload for creating a record.
type CreateRecordRequest struct {
	CollectionCode string `json:"-" validate:"required"`
	StudentID      string `json:"student_id" validate:"required"`
	Subject        string `json:"subject" validate:"required,max=100"`
	Content        string `json:"content"`
	Editor         string `json:"editor" validate:"max=100"`
}

// AppendRevisionRequest is the payload for submitting an edit. ExpectedVersion
// is the revision count the edit was based on.
type AppendRevisionRequest struct {
	Content         string `json:"content"`
	Note            string `json:"note" validate:"max=500"`
	Editor          string `json:"editor" validate:"max=100"`
	ExpectedVersion *int   `json:"expected_version" validate:"omitempty,min=0"`
}

// RecordServiceParams groups the dependencies of RecordService.
type RecordServiceParams struct {
	Records     recordRepository
	Students    recordStudentLookup
	Collections collectionResolver
	Visibility  visibilityTracker
	Differ      differ
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Now         func() time.Time
}

// RecordService is the revision engine: it creates records, appends diff
// annotated revisions and serves record lists annotated for a viewer.
type RecordService struct {
	records     recordRepository
	students    recordStudentLookup
	collections collectionResolver
	visibility  visibilityTracker
	differ      differ
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRecordService constructs a RecordService.
func NewRecordService(params RecordServiceParams) *RecordService {
	if params.Differ == nil {
		params.Differ = textdiff.New(textdiff.DefaultContext)
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = storeNow
	}
	return &RecordService{
		records:     params.Records,
		students:    params.Students,
		collections: params.Collections,
		visibility:  params.Visibility,
		differ:      params.Differ,
		metrics:     params.Metrics,
		validator:   params.Validator,
		logger:      params.Logger,
		now:         params.Now,
	}
}

// Create stores a new record with its seed revision.
func (s *RecordService) Create(ctx context.Context, req CreateRecordRequest) (*models.Record, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "student and subject are required")
	}

	collection, err := s.collections.Get(ctx, req.CollectionCode)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "collection does not exist")
		}
		return nil, err
	}
	if !isRowID(req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not exist")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not exist")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if student.CollectionCode != collection.Code {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student belongs to another collection")
	}

	diffText, err := s.differ.Unified("", req.Content)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute diff")
	}
	now := s.now()
	record := &models.Record{
		CollectionCode: collection.Code,
		StudentID:      student.ID,
		Subject:        req.Subject,
		Content:        req.Content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	seed := models.Revision{
		DiffText:   diffText,
		Note:       models.RevisionNoteInitial,
		ModifiedBy: editorName(req.Editor),
		ModifiedAt: now,
	}
	if err := s.records.Create(ctx, record, seed); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "record already exists for this student and subject")
		}
		return nil, appErrors.Internal(err, "failed to create record")
	}
	s.metrics.RevisionAppended(true)
	return record, nil
}

// Get returns a record with its full history.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	revisions, err := s.records.ListRevisions(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load revisions")
	}
	record.Revisions = revisions
	return record, nil
}

// Open returns a record for display and marks it seen by viewer.
func (s *RecordService) Open(ctx context.Context, id string, viewer models.Viewer) (*models.RecordDetail, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, record.StudentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load record owner")
	}
	if err := s.visibility.MarkSeen(ctx, record.ID, viewer); err != nil {
		return nil, err
	}
	return &models.RecordDetail{Record: *record, Student: *student}, nil
}

// AppendRevision diffs the new content against the stored content and
// appends the next revision. The write only succeeds if no other revision
// landed since the version the edit was based on.
func (s *RecordService) AppendRevision(ctx context.Context, id string, req AppendRevisionRequest) (*models.Record, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid revision payload")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	base := record.RevisionCount
	if req.ExpectedVersion != nil && *req.ExpectedVersion != base {
		s.metrics.RevisionConflict()
		return nil, appErrors.Clone(appErrors.ErrConflict, "record was modified by someone else")
	}

	diffText, err := s.differ.Unified(record.Content, req.Content)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute diff")
	}
	revision := models.Revision{
		Version:    record.NextVersion(),
		DiffText:   diffText,
		Note:       strings.TrimSpace(req.Note),
		ModifiedBy: editorName(req.Editor),
		ModifiedAt: s.now(),
	}
	if err := s.records.AppendRevision(ctx, id, base, req.Content, revision); err != nil {
		if errors.Is(err, repository.ErrStaleRevision) {
			return nil, s.staleRevision(ctx, id)
		}
		return nil, appErrors.Internal(err, "failed to append revision")
	}
	s.metrics.RevisionAppended(false)
	s.logger.Debug("revision appended",
		zap.String("record", id),
		zap.Int("version", revision.Version),
		zap.String("editor", revision.ModifiedBy),
	)

	record.Content = req.Content
	record.RevisionCount = revision.Version
	record.UpdatedAt = revision.ModifiedAt
	return record, nil
}

// History returns the revisions of a record with line statistics.
func (s *RecordService) History(ctx context.Context, id string) ([]models.RevisionView, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	revisions, err := s.records.ListRevisions(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load revisions")
	}
	views := make([]models.RevisionView, 0, len(revisions))
	for _, revision := range revisions {
		view := models.RevisionView{Revision: revision}
		stat, err := textdiff.Stats(revision.DiffText)
		if err != nil {
			s.logger.Warn("unreadable revision diff", zap.String("record", id), zap.Int("version", revision.Version), zap.Error(err))
		} else {
			view.LinesAdded = stat.LinesAdded
			view.LinesRemoved = stat.LinesRemoved
		}
		views = append(views, view)
	}
	return views, nil
}

// List returns the records visible to viewer, most recently updated first and
// flagged when they changed since the viewer last opened them. Students see
// their own records; teachers see the whole collection.
func (s *RecordService) List(ctx context.Context, collectionCode string, viewer models.Viewer) ([]models.RecordListItem, error) {
	viewer.Key = strings.TrimSpace(viewer.Key)
	if viewer.Type != "" && !viewer.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "viewer must be student or teacher")
	}
	// A student scope needs the card; anyone else without an identity sees the
	// whole collection with nothing flagged unseen.
	if viewer.Type == models.ViewerStudent && viewer.Key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student card code is required")
	}
	collection, err := s.collections.Get(ctx, collectionCode)
	if err != nil {
		return nil, err
	}

	var items []models.RecordListItem
	switch viewer.Type {
	case models.ViewerStudent:
		student, err := s.students.FindByCardCode(ctx, collection.Code, viewer.Key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Internal(err, "failed to load student")
		}
		items, err = s.records.ListByStudent(ctx, collection.Code, student.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list records")
		}
	default:
		items, err = s.records.ListByCollection(ctx, collection.Code)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list records")
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if err := s.visibility.Annotate(ctx, items, viewer); err != nil {
		return nil, err
	}
	return items, nil
}

// ListForExport returns every record of a collection including content.
func (s *RecordService) ListForExport(ctx context.Context, collectionCode string) ([]models.RecordListItem, error) {
	items, err := s.records.ListByCollection(ctx, collectionCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list records")
	}
	return items, nil
}

func (s *RecordService) load(ctx context.Context, id string) (*models.Record, error) {
	if !isRowID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Internal(err, "failed to load record")
	}
	return record, nil
}

// staleRevision distinguishes a concurrent edit from a concurrent delete.
func (s *RecordService) staleRevision(ctx context.Context, id string) error {
	if _, err := s.records.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Internal(err, "failed to load record")
	}
	s.metrics.RevisionConflict()
	return appErrors.Clone(appErrors.ErrConflict, "record was modified by someone else")
}

// isRowID reports whether id can name a stored row. Row ids are UUIDs, so
// anything else cannot exist and must not reach the store.
func isRowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func editorName(editor string) string {
	editor = strings.TrimSpace(editor)
	if editor == "" {
		return UnknownEditor
	}
	return editor
}
