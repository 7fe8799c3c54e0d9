package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/roster"
)

type studentRepository interface {
	ListByCollection(ctx context.Context, collectionCode string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Upsert(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, collectionCode, id string) error
}

type recordSeeder interface {
	EnsureEmpty(ctx context.Context, collectionCode, studentID, subject string) (bool, error)
}

// AddStudentRequest is the payload for adding one student.
type AddStudentRequest struct {
	Grade           int    `json:"grade" validate:"min=0"`
	ClassNumber     int    `json:"class_number" validate:"min=0"`
	Number          int    `json:"number" validate:"min=0"`
	Name            string `json:"name" validate:"required,max=100"`
	StudentCardCode string `json:"student_card_code" validate:"required,max=64"`
}

// StudentService manages the student side of the party directory.
type StudentService struct {
	repo      studentRepository
	records   recordSeeder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, records recordSeeder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, records: records, metrics: metrics, validator: validate, logger: logger}
}

// List returns the roster of a collection.
func (s *StudentService) List(ctx context.Context, collectionCode string) ([]models.Student, error) {
	students, err := s.repo.ListByCollection(ctx, collectionCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return students, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if !isRowID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// FindByCardCode resolves a student by card code within a collection.
func (s *StudentService) FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error) {
	student, err := s.repo.FindByCardCode(ctx, collectionCode, strings.TrimSpace(cardCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Add registers a student and an empty record for each configured subject.
// Seeding is best effort once the student exists; missing records are created
// on the next roster import.
func (s *StudentService) Add(ctx context.Context, collection *models.Collection, req AddStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.StudentCardCode = strings.TrimSpace(req.StudentCardCode)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "name and student card code are required")
	}

	student := &models.Student{
		CollectionCode:  collection.Code,
		Grade:           req.Grade,
		ClassNumber:     req.ClassNumber,
		Number:          req.Number,
		Name:            req.Name,
		StudentCardCode: req.StudentCardCode,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student card code already registered")
		}
		return nil, appErrors.Internal(err, "failed to create student")
	}
	if _, err := s.seedRecords(ctx, collection, student.ID); err != nil {
		s.logger.Warn("student record seeding failed", zap.String("collection", collection.Code), zap.String("student", student.ID), zap.Error(err))
	}
	return student, nil
}

// Delete removes a student together with its records.
func (s *StudentService) Delete(ctx context.Context, collectionCode, id string) error {
	if !isRowID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if err := s.repo.Delete(ctx, collectionCode, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	return nil
}

// Import upserts roster rows one at a time. Invalid or failing rows are
// reported in the result and do not stop the import.
func (s *StudentService) Import(ctx context.Context, collection *models.Collection, rows []roster.Row) (*models.RosterImportResult, error) {
	result := &models.RosterImportResult{Skipped: []models.RosterSkip{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		if row.Problem != "" {
			result.Skipped = append(result.Skipped, models.RosterSkip{Line: row.Line, Reason: "malformed csv line: " + row.Problem})
			s.metrics.ObserveRosterRow(RosterRowSkipped)
			continue
		}

		name := strings.TrimSpace(row.Name)
		cardCode := strings.TrimSpace(row.StudentCardCode)
		if name == "" || cardCode == "" {
			result.Skipped = append(result.Skipped, models.RosterSkip{Line: row.Line, Reason: "name and student card code are required"})
			s.metrics.ObserveRosterRow(RosterRowSkipped)
			continue
		}

		student := &models.Student{
			CollectionCode:  collection.Code,
			Grade:           row.Grade,
			ClassNumber:     row.ClassNumber,
			Number:          row.Number,
			Name:            name,
			StudentCardCode: cardCode,
		}
		if err := s.repo.Upsert(ctx, student); err != nil {
			s.logger.Warn("roster row failed", zap.String("collection", collection.Code), zap.Int("line", row.Line), zap.Error(err))
			result.Skipped = append(result.Skipped, models.RosterSkip{Line: row.Line, Reason: "failed to save student"})
			s.metrics.ObserveRosterRow(RosterRowSkipped)
			continue
		}
		result.Upserted++
		s.metrics.ObserveRosterRow(RosterRowUpserted)

		created, err := s.seedRecords(ctx, collection, student.ID)
		result.RecordsCreated += created
		if err != nil {
			s.logger.Warn("roster record seeding failed", zap.String("collection", collection.Code), zap.Int("line", row.Line), zap.Error(err))
		}
	}

	s.logger.Info("roster imported",
		zap.String("collection", collection.Code),
		zap.Int("processed", result.Processed),
		zap.Int("upserted", result.Upserted),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *StudentService) seedRecords(ctx context.Context, collection *models.Collection, studentID string) (int, error) {
	if s.records == nil {
		return 0, nil
	}
	created := 0
	for _, subject := range collection.Subjects {
		ok, err := s.records.EnsureEmpty(ctx, collection.Code, studentID, subject)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
