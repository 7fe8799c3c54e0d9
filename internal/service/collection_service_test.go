package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

func TestCollectionServiceCreateSeedsDefaultSubjects(t *testing.T) {
	env := newTestEnv(false, "국어", "수학", "국어", " ")
	collection, err := env.collectionSvc.Create(context.Background(), CreateCollectionRequest{Code: " c1 ", Name: "Class 1", AdminKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, "c1", collection.Code)
	assert.Equal(t, []string{"국어", "수학"}, []string(collection.Subjects))
	assert.NotEqual(t, "k1", collection.AdminKeyHash)
}

func TestCollectionServiceCreateValidation(t *testing.T) {
	env := newTestEnv(false)
	_, err := env.collectionSvc.Create(context.Background(), CreateCollectionRequest{Code: "c1", Name: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = env.collectionSvc.Create(context.Background(), CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: strings.Repeat("열", 30)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = env.collectionSvc.Create(context.Background(), CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: strings.Repeat("k", 72)})
	assert.NoError(t, err)
}

func TestCollectionServiceCreateDuplicateKeepsOriginal(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	_, err := env.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Original", AdminKey: "k1"})
	require.NoError(t, err)

	_, err = env.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Impostor", AdminKey: "k2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	stored, err := env.collectionSvc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Original", stored.Name)

	_, err = env.collectionSvc.Authorize(ctx, "c1", "k1")
	assert.NoError(t, err)
	_, err = env.collectionSvc.Authorize(ctx, "c1", "k2")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestCollectionServiceAuthorize(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	_, err := env.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)

	_, err = env.collectionSvc.Authorize(ctx, "missing", "k1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = env.collectionSvc.Authorize(ctx, "c1", "")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestCollectionServiceJoinAsStudent(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()
	collection, err := env.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)
	student, err := env.studentSvc.Add(ctx, collection, AddStudentRequest{Name: "김영찬", StudentCardCode: "card1"})
	require.NoError(t, err)

	identity, err := env.collectionSvc.JoinAsStudent(ctx, "c1", "card1")
	require.NoError(t, err)
	assert.Equal(t, models.ViewerStudent, identity.ViewerType)
	assert.Equal(t, "card1", identity.ViewerKey)
	assert.Equal(t, student.ID, identity.StudentID)

	_, err = env.collectionSvc.JoinAsStudent(ctx, "c1", "nobody")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = env.collectionSvc.JoinAsStudent(ctx, "c2", "card1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = env.collectionSvc.JoinAsStudent(ctx, "c1", "  ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCollectionServiceJoinAsTeacher(t *testing.T) {
	ctx := context.Background()

	lenient := newTestEnv(false)
	_, err := lenient.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)
	identity, err := lenient.collectionSvc.JoinAsTeacher(ctx, "c1", "anyone")
	require.NoError(t, err)
	assert.Equal(t, models.ViewerTeacher, identity.ViewerType)
	assert.Equal(t, "anyone", identity.ViewerKey)

	_, err = lenient.collectionSvc.JoinAsTeacher(ctx, "c1", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = lenient.collectionSvc.JoinAsTeacher(ctx, "zz", "anyone")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	strict := newTestEnv(true)
	_, err = strict.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)
	_, err = strict.collectionSvc.JoinAsTeacher(ctx, "c1", "anyone")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = strict.teacherSvc.Add(ctx, "c1", AddTeacherRequest{TeacherID: "TCH001", Name: "담임"})
	require.NoError(t, err)
	identity, err = strict.collectionSvc.JoinAsTeacher(ctx, "c1", "TCH001")
	require.NoError(t, err)
	assert.Equal(t, "담임", identity.Name)
}

func TestCollectionServiceSubjects(t *testing.T) {
	env := newTestEnv(false, "국어")
	ctx := context.Background()
	_, err := env.collectionSvc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)

	collection, err := env.collectionSvc.AddSubject(ctx, "c1", "수학")
	require.NoError(t, err)
	assert.Equal(t, []string{"국어", "수학"}, []string(collection.Subjects))

	collection, err = env.collectionSvc.AddSubject(ctx, "c1", "수학")
	require.NoError(t, err)
	assert.Equal(t, []string{"국어", "수학"}, []string(collection.Subjects))

	collection, err = env.collectionSvc.RemoveSubject(ctx, "c1", "영어")
	require.NoError(t, err)
	assert.Equal(t, []string{"국어", "수학"}, []string(collection.Subjects))

	collection, err = env.collectionSvc.RemoveSubject(ctx, "c1", "국어")
	require.NoError(t, err)
	assert.Equal(t, []string{"수학"}, []string(collection.Subjects))

	_, err = env.collectionSvc.AddSubject(ctx, "c1", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = env.collectionSvc.AddSubject(ctx, "zz", "과학")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCollectionServiceCacheKeepsAdminHash(t *testing.T) {
	repo := newFakeCollectionRepo()
	cache := NewCacheService(newMemoryCache(), NewMetricsService(), 0, nil, true)
	svc := NewCollectionService(CollectionServiceParams{Repo: repo, Cache: cache, BcryptCost: 4})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCollectionRequest{Code: "c1", Name: "Class", AdminKey: "k1"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)

	collection, err := svc.Authorize(ctx, "c1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "Class", collection.Name)
	assert.Equal(t, 1, repo.findCalls, "authorize should be served from cache")

	_, err = svc.AddSubject(ctx, "c1", "수학")
	require.NoError(t, err)
	collection, err = svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls, "subject change invalidates the cached entry")
	assert.True(t, collection.HasSubject("수학"))
}
