package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/service"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

type recordService interface {
	Create(ctx context.Context, req service.CreateRecordRequest) (*models.Record, error)
	Open(ctx context.Context, id string, viewer models.Viewer) (*models.RecordDetail, error)
	AppendRevision(ctx context.Context, id string, req service.AppendRevisionRequest) (*models.Record, error)
	History(ctx context.Context, id string) ([]models.RevisionView, error)
	List(ctx context.Context, collectionCode string, viewer models.Viewer) ([]models.RecordListItem, error)
}

// RecordHandler exposes record listing, viewing and editing.
type RecordHandler struct {
	records recordService
}

// NewRecordHandler constructs a RecordHandler.
func NewRecordHandler(records recordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// List godoc
// @Summary List records for a viewer
// @Description Students see their own records, teachers see the whole collection. Items carry an unseen flag.
// @Tags Records
// @Produce json
// @Param code path string true "Collection code"
// @Param viewer query string false "student (default) or teacher"
// @Param studentCardCode query string false "Student card code"
// @Param teacherId query string false "Teacher id"
// @Success 200 {object} response.Envelope
// @Router /collections/{code}/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	items, err := h.records.List(c.Request.Context(), c.Param("code"), viewerFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Create godoc
// @Summary Create record
// @Tags Records
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param payload body service.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections/{code}/records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid record payload"))
		return
	}
	req.CollectionCode = c.Param("code")
	record, err := h.records.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Open record
// @Description Returns the record with its history and marks it seen for the viewer.
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Param viewer query string false "student (default) or teacher"
// @Param studentCardCode query string false "Student card code"
// @Param teacherId query string false "Teacher id"
// @Success 200 {object} response.Envelope
// @Router /records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	detail, err := h.records.Open(c.Request.Context(), c.Param("id"), viewerFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Update godoc
// @Summary Submit edit
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.AppendRevisionRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	var req service.AppendRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid edit payload"))
		return
	}
	record, err := h.records.AppendRevision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// History godoc
// @Summary Record revisions
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/revisions [get]
func (h *RecordHandler) History(c *gin.Context) {
	revisions, err := h.records.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, revisions)
}
