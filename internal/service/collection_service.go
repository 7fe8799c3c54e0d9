package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/secret"
)

type collectionRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Collection, error)
	Create(ctx context.Context, collection *models.Collection) error
	AddSubject(ctx context.Context, code, subject string) (*models.Collection, error)
	RemoveSubject(ctx context.Context, code, subject string) (*models.Collection, error)
}

type studentLookup interface {
	FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error)
}

type teacherLookup interface {
	FindByTeacherID(ctx context.Context, collectionCode, teacherID string) (*models.Teacher, error)
}

type collectionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CreateCollectionRequest is the payload for creating a collection.
type CreateCollectionRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=200"`
	AdminKey string `json:"admin_key" validate:"required"`
}

// CollectionServiceParams groups the dependencies of CollectionService.
type CollectionServiceParams struct {
	Repo              collectionRepository
	Students          studentLookup
	Teachers          teacherLookup
	Cache             collectionCache
	CacheTTL          time.Duration
	DefaultSubjects   []string
	BcryptCost        int
	StrictTeacherJoin bool
	Validator         *validator.Validate
	Logger            *zap.Logger
}

// CollectionService resolves collections, checks the admin secret and joins viewers.
type CollectionService struct {
	repo              collectionRepository
	students          studentLookup
	teachers          teacherLookup
	cache             collectionCache
	cacheTTL          time.Duration
	defaultSubjects   []string
	bcryptCost        int
	strictTeacherJoin bool
	validator         *validator.Validate
	logger            *zap.Logger
}

// cachedCollection keeps the admin hash in the cached payload; the model hides it from JSON.
type cachedCollection struct {
	models.Collection
	AdminKeyHash string `json:"admin_key_hash"`
}

// NewCollectionService constructs a CollectionService.
func NewCollectionService(params CollectionServiceParams) *CollectionService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &CollectionService{
		repo:              params.Repo,
		students:          params.Students,
		teachers:          params.Teachers,
		cache:             params.Cache,
		cacheTTL:          params.CacheTTL,
		defaultSubjects:   dedupeSubjects(params.DefaultSubjects),
		bcryptCost:        params.BcryptCost,
		strictTeacherJoin: params.StrictTeacherJoin,
		validator:         params.Validator,
		logger:            params.Logger,
	}
}

// CollectionCacheKey is the cache key for a collection's metadata.
func CollectionCacheKey(code string) string {
	return "collections:" + code
}

// Create registers a new collection seeded with the default subjects.
func (s *CollectionService) Create(ctx context.Context, req CreateCollectionRequest) (*models.Collection, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "code, name and admin key are required")
	}
	// bcrypt limits bytes, not characters.
	if len(req.AdminKey) > secret.MaxKeyLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("admin key must be at most %d bytes", secret.MaxKeyLength))
	}

	hash, err := secret.Hash(req.AdminKey, s.bcryptCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to secure admin key")
	}

	collection := &models.Collection{
		Code:         req.Code,
		Name:         req.Name,
		AdminKeyHash: hash,
		Subjects:     append([]string{}, s.defaultSubjects...),
	}
	if err := s.repo.Create(ctx, collection); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "collection code already exists")
		}
		return nil, appErrors.Internal(err, "failed to create collection")
	}
	s.logger.Info("collection created", zap.String("collection", collection.Code))
	return collection, nil
}

// Get returns a collection by code, reading through the cache when enabled.
func (s *CollectionService) Get(ctx context.Context, code string) (*models.Collection, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
	}

	key := CollectionCacheKey(code)
	if s.cache != nil {
		var cached cachedCollection
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			collection := cached.Collection
			collection.AdminKeyHash = cached.AdminKeyHash
			return &collection, nil
		}
	}

	collection, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Internal(err, "failed to load collection")
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, cachedCollection{Collection: *collection, AdminKeyHash: collection.AdminKeyHash}, s.cacheTTL)
	}
	return collection, nil
}

// Authorize returns the collection when adminKey matches its secret.
func (s *CollectionService) Authorize(ctx context.Context, code, adminKey string) (*models.Collection, error) {
	collection, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !secret.Matches(collection.AdminKeyHash, adminKey) {
		s.logger.Warn("admin key rejected", zap.String("collection", collection.Code))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid admin key")
	}
	return collection, nil
}

// JoinAsStudent resolves a student identity by card code.
func (s *CollectionService) JoinAsStudent(ctx context.Context, code, cardCode string) (*models.ViewerIdentity, error) {
	cardCode = strings.TrimSpace(cardCode)
	if cardCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student card code is required")
	}
	collection, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByCardCode(ctx, collection.Code, cardCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return &models.ViewerIdentity{
		CollectionCode: collection.Code,
		CollectionName: collection.Name,
		ViewerType:     models.ViewerStudent,
		ViewerKey:      student.StudentCardCode,
		Name:           student.Name,
		StudentID:      student.ID,
	}, nil
}

// JoinAsTeacher resolves a teacher identity. Unless strict joining is enabled
// any non-empty teacher id is accepted.
func (s *CollectionService) JoinAsTeacher(ctx context.Context, code, teacherID string) (*models.ViewerIdentity, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	collection, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	identity := &models.ViewerIdentity{
		CollectionCode: collection.Code,
		CollectionName: collection.Name,
		ViewerType:     models.ViewerTeacher,
		ViewerKey:      teacherID,
	}

	teacher, err := s.teachers.FindByTeacherID(ctx, collection.Code, teacherID)
	switch {
	case err == nil:
		identity.Name = teacher.Name
	case errors.Is(err, sql.ErrNoRows):
		if s.strictTeacherJoin {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
	default:
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	return identity, nil
}

// AddSubject configures a subject. Adding an existing subject changes nothing.
func (s *CollectionService) AddSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	collection, err := s.repo.AddSubject(ctx, code, subject)
	return s.afterSubjectChange(ctx, code, collection, err)
}

// RemoveSubject drops a subject from the list. Records already written for it stay.
func (s *CollectionService) RemoveSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	collection, err := s.repo.RemoveSubject(ctx, code, subject)
	return s.afterSubjectChange(ctx, code, collection, err)
}

func (s *CollectionService) afterSubjectChange(ctx context.Context, code string, collection *models.Collection, err error) (*models.Collection, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Internal(err, "failed to update subjects")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, CollectionCacheKey(code))
	}
	return collection, nil
}

func dedupeSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	result := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		result = append(result, subject)
	}
	return result
}
