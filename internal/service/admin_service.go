package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/roster"
)

type adminGate interface {
	Authorize(ctx context.Context, code, adminKey string) (*models.Collection, error)
	AddSubject(ctx context.Context, code, subject string) (*models.Collection, error)
	RemoveSubject(ctx context.Context, code, subject string) (*models.Collection, error)
}

type adminStudents interface {
	List(ctx context.Context, collectionCode string) ([]models.Student, error)
	Add(ctx context.Context, collection *models.Collection, req AddStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, collectionCode, id string) error
	Import(ctx context.Context, collection *models.Collection, rows []roster.Row) (*models.RosterImportResult, error)
}

type adminTeachers interface {
	List(ctx context.Context, collectionCode string) ([]models.Teacher, error)
	Add(ctx context.Context, collectionCode string, req AddTeacherRequest) (*models.Teacher, error)
	Delete(ctx context.Context, collectionCode, id string) error
}

type adminExports interface {
	RecordsCSV(ctx context.Context, collection *models.Collection) (*ExportResult, error)
	RecordPDF(ctx context.Context, collection *models.Collection, recordID string) (*ExportResult, error)
}

// AdminService gates every collection mutation behind the admin secret.
type AdminService struct {
	gate     adminGate
	students adminStudents
	teachers adminTeachers
	exports  adminExports
	logger   *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(gate adminGate, students adminStudents, teachers adminTeachers, exports adminExports, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{gate: gate, students: students, teachers: teachers, exports: exports, logger: logger}
}

// ListStudents returns the roster.
func (s *AdminService) ListStudents(ctx context.Context, code, adminKey string) ([]models.Student, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.students.List(ctx, collection.Code)
}

// AddStudent registers one student.
func (s *AdminService) AddStudent(ctx context.Context, code, adminKey string, req AddStudentRequest) (*models.Student, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.students.Add(ctx, collection, req)
}

// DeleteStudent removes a student and its records.
func (s *AdminService) DeleteStudent(ctx context.Context, code, adminKey, studentID string) error {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return err
	}
	return s.students.Delete(ctx, collection.Code, studentID)
}

// ImportRoster parses a roster CSV and upserts its rows.
func (s *AdminService) ImportRoster(ctx context.Context, code, adminKey string, file io.Reader) (*models.RosterImportResult, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	rows, err := roster.Parse(file)
	if err != nil {
		if errors.Is(err, roster.ErrMissingColumns) {
			return nil, appErrors.Validation(err, err.Error())
		}
		return nil, appErrors.Validation(err, "roster file is not valid CSV")
	}
	return s.students.Import(ctx, collection, rows)
}

// ListTeachers returns the teacher directory.
func (s *AdminService) ListTeachers(ctx context.Context, code, adminKey string) ([]models.Teacher, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.teachers.List(ctx, collection.Code)
}

// AddTeacher registers a teacher id.
func (s *AdminService) AddTeacher(ctx context.Context, code, adminKey string, req AddTeacherRequest) (*models.Teacher, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.teachers.Add(ctx, collection.Code, req)
}

// DeleteTeacher removes a teacher.
func (s *AdminService) DeleteTeacher(ctx context.Context, code, adminKey, id string) error {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return err
	}
	return s.teachers.Delete(ctx, collection.Code, id)
}

// AddSubject configures a subject for the collection.
func (s *AdminService) AddSubject(ctx context.Context, code, adminKey, subject string) (*models.Collection, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.gate.AddSubject(ctx, collection.Code, subject)
}

// RemoveSubject drops a subject from the collection.
func (s *AdminService) RemoveSubject(ctx context.Context, code, adminKey, subject string) (*models.Collection, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.gate.RemoveSubject(ctx, collection.Code, subject)
}

// ExportRecordsCSV renders the collection's records.
func (s *AdminService) ExportRecordsCSV(ctx context.Context, code, adminKey string) (*ExportResult, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.exports.RecordsCSV(ctx, collection)
}

// ExportRecordPDF renders one record's history.
func (s *AdminService) ExportRecordPDF(ctx context.Context, code, adminKey, recordID string) (*ExportResult, error) {
	collection, err := s.gate.Authorize(ctx, code, adminKey)
	if err != nil {
		return nil, err
	}
	return s.exports.RecordPDF(ctx, collection, recordID)
}
