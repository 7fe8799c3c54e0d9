package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/service"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

const rosterFormField = "file"

type adminService interface {
	ListStudents(ctx context.Context, code, adminKey string) ([]models.Student, error)
	AddStudent(ctx context.Context, code, adminKey string, req service.AddStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, code, adminKey, studentID string) error
	ImportRoster(ctx context.Context, code, adminKey string, file io.Reader) (*models.RosterImportResult, error)
	ListTeachers(ctx context.Context, code, adminKey string) ([]models.Teacher, error)
	AddTeacher(ctx context.Context, code, adminKey string, req service.AddTeacherRequest) (*models.Teacher, error)
	DeleteTeacher(ctx context.Context, code, adminKey, id string) error
	AddSubject(ctx context.Context, code, adminKey, subject string) (*models.Collection, error)
	RemoveSubject(ctx context.Context, code, adminKey, subject string) (*models.Collection, error)
	ExportRecordsCSV(ctx context.Context, code, adminKey string) (*service.ExportResult, error)
	ExportRecordPDF(ctx context.Context, code, adminKey, recordID string) (*service.ExportResult, error)
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

// AdminHandler serves the admin-key protected collection management endpoints.
type AdminHandler struct {
	admin          adminService
	maxRosterBytes int64
}

// NewAdminHandler constructs an AdminHandler. A non-positive maxRosterBytes disables the upload limit.
func NewAdminHandler(admin adminService, maxRosterBytes int64) *AdminHandler {
	return &AdminHandler{admin: admin, maxRosterBytes: maxRosterBytes}
}

// ListStudents godoc
// @Summary List students
// @Tags Admin
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/collections/{code}/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.admin.ListStudents(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// AddStudent godoc
// @Summary Add student
// @Tags Admin
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Param payload body service.AddStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /admin/collections/{code}/students [post]
func (h *AdminHandler) AddStudent(c *gin.Context) {
	var req service.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid student payload"))
		return
	}
	student, err := h.admin.AddStudent(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// DeleteStudent godoc
// @Summary Delete student
// @Description Removes the student together with their records and revisions.
// @Tags Admin
// @Param code path string true "Collection code"
// @Param id path string true "Student ID"
// @Param X-Admin-Key header string true "Admin key"
// @Success 204
// @Router /admin/collections/{code}/students/{id} [delete]
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	if err := h.admin.DeleteStudent(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadRoster godoc
// @Summary Import roster CSV
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Param file formData file true "Roster CSV"
// @Success 200 {object} response.Envelope
// @Router /admin/collections/{code}/students/upload [post]
func (h *AdminHandler) UploadRoster(c *gin.Context) {
	if h.maxRosterBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRosterBytes)
	}
	header, err := c.FormFile(rosterFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Validation(err, "roster file too large"))
			return
		}
		response.Error(c, appErrors.Validation(err, "roster file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Validation(err, "unable to read roster file"))
		return
	}
	defer file.Close()

	result, err := h.admin.ImportRoster(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Admin
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Success 200 {object} response.Envelope
// @Router /admin/collections/{code}/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.admin.ListTeachers(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, map[string]interface{}{"total": len(teachers)})
}

// AddTeacher godoc
// @Summary Register teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Param payload body service.AddTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /admin/collections/{code}/teachers [post]
func (h *AdminHandler) AddTeacher(c *gin.Context) {
	var req service.AddTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid teacher payload"))
		return
	}
	teacher, err := h.admin.AddTeacher(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// DeleteTeacher godoc
// @Summary Remove teacher
// @Tags Admin
// @Param code path string true "Collection code"
// @Param id path string true "Teacher row ID"
// @Param X-Admin-Key header string true "Admin key"
// @Success 204
// @Router /admin/collections/{code}/teachers/{id} [delete]
func (h *AdminHandler) DeleteTeacher(c *gin.Context) {
	if err := h.admin.DeleteTeacher(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSubject godoc
// @Summary Add subject
// @Tags Admin
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Param payload body subjectRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Router /admin/collections/{code}/subjects [post]
func (h *AdminHandler) AddSubject(c *gin.Context) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid subject payload"))
		return
	}
	collection, err := h.admin.AddSubject(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), req.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection)
}

// RemoveSubject godoc
// @Summary Remove subject
// @Tags Admin
// @Produce json
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Param subject query string true "Subject"
// @Success 200 {object} response.Envelope
// @Router /admin/collections/{code}/subjects [delete]
func (h *AdminHandler) RemoveSubject(c *gin.Context) {
	collection, err := h.admin.RemoveSubject(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection)
}

// ExportRecordsCSV godoc
// @Summary Export records as CSV
// @Tags Admin
// @Produce text/csv
// @Param code path string true "Collection code"
// @Param X-Admin-Key header string true "Admin key"
// @Success 200 {file} file
// @Router /admin/collections/{code}/export/records.csv [get]
func (h *AdminHandler) ExportRecordsCSV(c *gin.Context) {
	result, err := h.admin.ExportRecordsCSV(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// ExportRecordPDF godoc
// @Summary Export record history as PDF
// @Tags Admin
// @Produce application/pdf
// @Param code path string true "Collection code"
// @Param id path string true "Record ID"
// @Param X-Admin-Key header string true "Admin key"
// @Success 200 {file} file
// @Router /admin/collections/{code}/records/{id}/export.pdf [get]
func (h *AdminHandler) ExportRecordPDF(c *gin.Context) {
	result, err := h.admin.ExportRecordPDF(c.Request.Context(), c.Param("code"), adminKeyFromRequest(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
