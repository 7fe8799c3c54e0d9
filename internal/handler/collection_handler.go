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

type collectionService interface {
	Create(ctx context.Context, req service.CreateCollectionRequest) (*models.Collection, error)
	Get(ctx context.Context, code string) (*models.Collection, error)
	JoinAsStudent(ctx context.Context, code, cardCode string) (*models.ViewerIdentity, error)
	JoinAsTeacher(ctx context.Context, code, teacherID string) (*models.ViewerIdentity, error)
}

type joinStudentRequest struct {
	StudentCardCode string `json:"student_card_code"`
}

type joinTeacherRequest struct {
	TeacherID string `json:"teacher_id"`
}

// CollectionHandler exposes collection creation and joining.
type CollectionHandler struct {
	collections collectionService
}

// NewCollectionHandler constructs a CollectionHandler.
func NewCollectionHandler(collections collectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// Create godoc
// @Summary Create collection
// @Tags Collections
// @Accept json
// @Produce json
// @Param payload body service.CreateCollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	var req service.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid collection payload"))
		return
	}
	collection, err := h.collections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// Get godoc
// @Summary Get collection
// @Tags Collections
// @Produce json
// @Param code path string true "Collection code"
// @Success 200 {object} response.Envelope
// @Router /collections/{code} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.collections.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection)
}

// JoinStudent godoc
// @Summary Join as student
// @Tags Collections
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param payload body joinStudentRequest true "Student card code"
// @Success 200 {object} response.Envelope
// @Router /collections/{code}/join/student [post]
func (h *CollectionHandler) JoinStudent(c *gin.Context) {
	var req joinStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid join payload"))
		return
	}
	identity, err := h.collections.JoinAsStudent(c.Request.Context(), c.Param("code"), req.StudentCardCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}

// JoinTeacher godoc
// @Summary Join as teacher
// @Tags Collections
// @Accept json
// @Produce json
// @Param code path string true "Collection code"
// @Param payload body joinTeacherRequest true "Teacher id"
// @Success 200 {object} response.Envelope
// @Router /collections/{code}/join/teacher [post]
func (h *CollectionHandler) JoinTeacher(c *gin.Context) {
	var req joinTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid join payload"))
		return
	}
	identity, err := h.collections.JoinAsTeacher(c.Request.Context(), c.Param("code"), req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}
