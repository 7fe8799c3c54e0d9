package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

// uuidSyntax fails the way Postgres does when a non-UUID is compared to a uuid column.
func uuidSyntax(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &pq.Error{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type uuid: %q", id)}
	}
	return nil
}

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeCollectionRepo struct {
	items     map[string]*models.Collection
	findCalls int
	err       error
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{items: map[string]*models.Collection{}}
}

func (f *fakeCollectionRepo) FindByCode(ctx context.Context, code string) (*models.Collection, error) {
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.items[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return snapshotCollection(c), nil
}

func snapshotCollection(c *models.Collection) *models.Collection {
	cp := *c
	cp.Subjects = append(pq.StringArray{}, c.Subjects...)
	return &cp
}

func (f *fakeCollectionRepo) Create(ctx context.Context, collection *models.Collection) error {
	if _, ok := f.items[collection.Code]; ok {
		return fmt.Errorf("create collection: %w", repository.ErrDuplicate)
	}
	if collection.ID == "" {
		collection.ID = "col-" + collection.Code
	}
	collection.CreatedAt = time.Now()
	collection.UpdatedAt = collection.CreatedAt
	cp := *collection
	f.items[collection.Code] = &cp
	return nil
}

func (f *fakeCollectionRepo) AddSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	c, ok := f.items[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !c.HasSubject(subject) {
		c.Subjects = append(c.Subjects, subject)
	}
	return snapshotCollection(c), nil
}

func (f *fakeCollectionRepo) RemoveSubject(ctx context.Context, code, subject string) (*models.Collection, error) {
	c, ok := f.items[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	kept := pq.StringArray{}
	for _, s := range c.Subjects {
		if s != subject {
			kept = append(kept, s)
		}
	}
	c.Subjects = kept
	return snapshotCollection(c), nil
}

type fakeStudentRepo struct {
	items      map[string]*models.Student
	upsertErrs map[string]error
	records    *fakeRecordRepo
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{items: map[string]*models.Student{}, upsertErrs: map[string]error{}}
}

func (f *fakeStudentRepo) ListByCollection(ctx context.Context, collectionCode string) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.items {
		if s.CollectionCode == collectionCode {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := uuidSyntax(id); err != nil {
		return nil, err
	}
	s, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudentRepo) FindByCardCode(ctx context.Context, collectionCode, cardCode string) (*models.Student, error) {
	for _, s := range f.items {
		if s.CollectionCode == collectionCode && s.StudentCardCode == cardCode {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if _, err := f.FindByCardCode(ctx, student.CollectionCode, student.StudentCardCode); err == nil {
		return fmt.Errorf("create student: %w", repository.ErrDuplicate)
	}
	student.ID = uuid.NewString()
	cp := *student
	f.items[student.ID] = &cp
	return nil
}

func (f *fakeStudentRepo) Upsert(ctx context.Context, student *models.Student) error {
	if err := f.upsertErrs[student.StudentCardCode]; err != nil {
		return err
	}
	if existing, err := f.FindByCardCode(ctx, student.CollectionCode, student.StudentCardCode); err == nil {
		student.ID = existing.ID
		cp := *student
		f.items[student.ID] = &cp
		return nil
	}
	return f.Create(ctx, student)
}

func (f *fakeStudentRepo) Delete(ctx context.Context, collectionCode, id string) error {
	if err := uuidSyntax(id); err != nil {
		return err
	}
	s, ok := f.items[id]
	if !ok || s.CollectionCode != collectionCode {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	if f.records != nil {
		f.records.deleteByStudent(id)
	}
	return nil
}

type fakeTeacherRepo struct {
	items map[string]*models.Teacher
}

func newFakeTeacherRepo() *fakeTeacherRepo {
	return &fakeTeacherRepo{items: map[string]*models.Teacher{}}
}

func (f *fakeTeacherRepo) ListByCollection(ctx context.Context, collectionCode string) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range f.items {
		if t.CollectionCode == collectionCode {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTeacherRepo) FindByTeacherID(ctx context.Context, collectionCode, teacherID string) (*models.Teacher, error) {
	for _, t := range f.items {
		if t.CollectionCode == collectionCode && t.TeacherID == teacherID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if _, err := f.FindByTeacherID(ctx, teacher.CollectionCode, teacher.TeacherID); err == nil {
		return repository.ErrDuplicate
	}
	teacher.ID = uuid.NewString()
	cp := *teacher
	f.items[teacher.ID] = &cp
	return nil
}

func (f *fakeTeacherRepo) Delete(ctx context.Context, collectionCode, id string) error {
	if err := uuidSyntax(id); err != nil {
		return err
	}
	t, ok := f.items[id]
	if !ok || t.CollectionCode != collectionCode {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

// fakeRecordRepo mirrors the conditional update of RecordRepository.
type fakeRecordRepo struct {
	mu           sync.Mutex
	records      map[string]*models.Record
	revisions    map[string][]models.Revision
	students     *fakeStudentRepo
	seq          int
	order        map[string]int
	beforeAppend func()
	appendErr    error
	ensureErr    error
	now          func() time.Time
}

func newFakeRecordRepo(students *fakeStudentRepo) *fakeRecordRepo {
	repo := &fakeRecordRepo{
		records:   map[string]*models.Record{},
		revisions: map[string][]models.Revision{},
		order:     map[string]int{},
		students:  students,
		now:       time.Now,
	}
	if students != nil {
		students.records = repo
	}
	return repo
}

func (f *fakeRecordRepo) nextID() string {
	f.seq++
	id := uuid.NewString()
	f.order[id] = f.seq
	return id
}

func (f *fakeRecordRepo) findKey(collectionCode, studentID, subject string) *models.Record {
	for _, r := range f.records {
		if r.CollectionCode == collectionCode && r.StudentID == studentID && r.Subject == subject {
			return r
		}
	}
	return nil
}

func (f *fakeRecordRepo) Create(ctx context.Context, record *models.Record, seed models.Revision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findKey(record.CollectionCode, record.StudentID, record.Subject) != nil {
		return fmt.Errorf("create record: %w", repository.ErrDuplicate)
	}
	record.ID = f.nextID()
	record.RevisionCount = 1
	seed.RecordID = record.ID
	seed.Version = 1
	cp := *record
	f.records[record.ID] = &cp
	f.revisions[record.ID] = []models.Revision{seed}
	record.Revisions = []models.Revision{seed}
	return nil
}

func (f *fakeRecordRepo) EnsureEmpty(ctx context.Context, collectionCode, studentID, subject string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return false, f.ensureErr
	}
	if f.findKey(collectionCode, studentID, subject) != nil {
		return false, nil
	}
	now := f.now()
	id := f.nextID()
	f.records[id] = &models.Record{ID: id, CollectionCode: collectionCode, StudentID: studentID, Subject: subject, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

func (f *fakeRecordRepo) FindByID(ctx context.Context, id string) (*models.Record, error) {
	if err := uuidSyntax(id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecordRepo) ListRevisions(ctx context.Context, recordID string) ([]models.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Revision{}, f.revisions[recordID]...), nil
}

func (f *fakeRecordRepo) AppendRevision(ctx context.Context, recordID string, expectedCount int, content string, revision models.Revision) error {
	if f.beforeAppend != nil {
		hook := f.beforeAppend
		f.beforeAppend = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	r, ok := f.records[recordID]
	if !ok || r.RevisionCount != expectedCount {
		return repository.ErrStaleRevision
	}
	revision.RecordID = recordID
	revision.Version = expectedCount + 1
	r.Content = content
	r.RevisionCount++
	r.UpdatedAt = revision.ModifiedAt
	f.revisions[recordID] = append(f.revisions[recordID], revision)
	return nil
}

func (f *fakeRecordRepo) list(match func(*models.Record) bool) []models.RecordListItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []models.RecordListItem
	for _, r := range f.records {
		if !match(r) {
			continue
		}
		item := models.RecordListItem{
			ID:            r.ID,
			StudentID:     r.StudentID,
			Subject:       r.Subject,
			Content:       r.Content,
			RevisionCount: r.RevisionCount,
			UpdatedAt:     r.UpdatedAt,
		}
		if f.students != nil {
			if s, ok := f.students.items[r.StudentID]; ok {
				item.Grade, item.ClassNumber, item.Number, item.StudentName = s.Grade, s.ClassNumber, s.Number, s.Name
			}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return f.order[items[i].ID] < f.order[items[j].ID] })
	return items
}

func (f *fakeRecordRepo) ListByCollection(ctx context.Context, collectionCode string) ([]models.RecordListItem, error) {
	return f.list(func(r *models.Record) bool { return r.CollectionCode == collectionCode }), nil
}

func (f *fakeRecordRepo) ListByStudent(ctx context.Context, collectionCode, studentID string) ([]models.RecordListItem, error) {
	return f.list(func(r *models.Record) bool { return r.CollectionCode == collectionCode && r.StudentID == studentID }), nil
}

func (f *fakeRecordRepo) deleteByStudent(studentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.records {
		if r.StudentID == studentID {
			delete(f.records, id)
			delete(f.revisions, id)
		}
	}
}

type seenKey struct {
	recordID   string
	viewerType models.ViewerType
	viewerKey  string
}

// fakeSeenRepo keeps the larger timestamp like the GREATEST upsert.
type fakeSeenRepo struct {
	mu      sync.Mutex
	marks   map[seenKey]*models.RecordSeen
	records *fakeRecordRepo
}

func newFakeSeenRepo(records *fakeRecordRepo) *fakeSeenRepo {
	return &fakeSeenRepo{marks: map[seenKey]*models.RecordSeen{}, records: records}
}

func (f *fakeSeenRepo) Upsert(ctx context.Context, mark *models.RecordSeen) error {
	if f.records != nil {
		if _, err := f.records.FindByID(ctx, mark.RecordID); err != nil {
			return fmt.Errorf("upsert record seen: %w", repository.ErrMissingReference)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := seenKey{mark.RecordID, mark.ViewerType, mark.ViewerKey}
	if existing, ok := f.marks[key]; ok {
		if mark.LastSeenAt.After(existing.LastSeenAt) {
			existing.LastSeenAt = mark.LastSeenAt
		}
		existing.UpdatedAt = mark.LastSeenAt
		mark.LastSeenAt = existing.LastSeenAt
		return nil
	}
	cp := *mark
	f.marks[key] = &cp
	return nil
}

func (f *fakeSeenRepo) Find(ctx context.Context, recordID string, viewerType models.ViewerType, viewerKey string) (*models.RecordSeen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mark, ok := f.marks[seenKey{recordID, viewerType, viewerKey}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *mark
	return &cp, nil
}

func (f *fakeSeenRepo) ListForViewer(ctx context.Context, viewerType models.ViewerType, viewerKey string, recordIDs []string) ([]models.RecordSeen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecordSeen
	for _, id := range recordIDs {
		if mark, ok := f.marks[seenKey{id, viewerType, viewerKey}]; ok {
			out = append(out, *mark)
		}
	}
	return out, nil
}

// memoryCache stores JSON payloads like the Redis-backed CacheRepository.
type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// testEnv wires the services over the in-memory fakes.
type testEnv struct {
	clock       *stepClock
	collections *fakeCollectionRepo
	students    *fakeStudentRepo
	teachers    *fakeTeacherRepo
	records     *fakeRecordRepo
	seen        *fakeSeenRepo

	collectionSvc *CollectionService
	studentSvc    *StudentService
	teacherSvc    *TeacherService
	visibilitySvc *VisibilityService
	recordSvc     *RecordService
	adminSvc      *AdminService
}

func newTestEnv(strictTeacherJoin bool, defaultSubjects ...string) *testEnv {
	env := &testEnv{
		clock:       newStepClock(),
		collections: newFakeCollectionRepo(),
		students:    newFakeStudentRepo(),
		teachers:    newFakeTeacherRepo(),
	}
	env.records = newFakeRecordRepo(env.students)
	env.records.now = env.clock.Now
	env.seen = newFakeSeenRepo(env.records)

	env.collectionSvc = NewCollectionService(CollectionServiceParams{
		Repo:              env.collections,
		Students:          env.students,
		Teachers:          env.teachers,
		DefaultSubjects:   defaultSubjects,
		BcryptCost:        4,
		StrictTeacherJoin: strictTeacherJoin,
	})
	env.studentSvc = NewStudentService(env.students, env.records, nil, nil, nil)
	env.teacherSvc = NewTeacherService(env.teachers, nil, nil)
	env.visibilitySvc = NewVisibilityService(env.seen, nil, nil, env.clock.Now)
	env.recordSvc = NewRecordService(RecordServiceParams{
		Records:     env.records,
		Students:    env.students,
		Collections: env.collectionSvc,
		Visibility:  env.visibilitySvc,
		Now:         env.clock.Now,
	})
	exports := NewExportService(env.recordSvc, env.studentSvc, true, nil, nil, nil)
	env.adminSvc = NewAdminService(env.collectionSvc, env.studentSvc, env.teacherSvc, exports, nil)
	return env
}
