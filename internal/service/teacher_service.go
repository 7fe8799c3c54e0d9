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
)

type teacherRepository interface {
	ListByCollection(ctx context.Context, collectionCode string) ([]models.Teacher, error)
	FindByTeacherID(ctx context.Context, collectionCode, teacherID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, collectionCode, id string) error
}

// AddTeacherRequest is the payload for adding a teacher.
type AddTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"max=100"`
}

// TeacherService manages the teacher directory.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns the teachers of a collection, newest first.
func (s *TeacherService) List(ctx context.Context, collectionCode string) ([]models.Teacher, error) {
	teachers, err := s.repo.ListByCollection(ctx, collectionCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teachers")
	}
	return teachers, nil
}

// Add registers a teacher id in the collection.
func (s *TeacherService) Add(ctx context.Context, collectionCode string, req AddTeacherRequest) (*models.Teacher, error) {
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "teacher id is required")
	}

	teacher := &models.Teacher{CollectionCode: collectionCode, TeacherID: req.TeacherID, Name: req.Name}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher id already registered")
		}
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	return teacher, nil
}

// Delete removes a teacher. Records the teacher edited are not affected.
func (s *TeacherService) Delete(ctx context.Context, collectionCode, id string) error {
	if !isRowID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if err := s.repo.Delete(ctx, collectionCode, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to delete teacher")
	}
	return nil
}
