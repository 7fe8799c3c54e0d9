package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/service"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type recordServiceStub struct {
	viewer    models.Viewer
	createReq service.CreateRecordRequest
	appendReq service.AppendRevisionRequest
	record    *models.Record
	items     []models.RecordListItem
	revisions []models.RevisionView
	err       error
}

func (s *recordServiceStub) Create(ctx context.Context, req service.CreateRecordRequest) (*models.Record, error) {
	s.createReq = req
	return s.record, s.err
}

func (s *recordServiceStub) Open(ctx context.Context, id string, viewer models.Viewer) (*models.RecordDetail, error) {
	s.viewer = viewer
	if s.err != nil {
		return nil, s.err
	}
	return &models.RecordDetail{Record: *s.record}, nil
}

func (s *recordServiceStub) AppendRevision(ctx context.Context, id string, req service.AppendRevisionRequest) (*models.Record, error) {
	s.appendReq = req
	return s.record, s.err
}

func (s *recordServiceStub) History(ctx context.Context, id string) ([]models.RevisionView, error) {
	return s.revisions, s.err
}

func (s *recordServiceStub) List(ctx context.Context, collectionCode string, viewer models.Viewer) ([]models.RecordListItem, error) {
	s.viewer = viewer
	return s.items, s.err
}

func TestRecordHandlerListDefaultsToStudentViewer(t *testing.T) {
	stub := &recordServiceStub{items: []models.RecordListItem{{ID: "r-1", Subject: "국어", Unseen: true}}}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/collections/test/records?studentCardCode=card1", nil)
	c.Params = gin.Params{{Key: "code", Value: "test"}}
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Viewer{Type: models.ViewerStudent, Key: "card1"}, stub.viewer)
	env := decodeEnvelope(t, rec)
	assert.EqualValues(t, 1, env.Meta["total"])
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["unseen"])
	assert.NotContains(t, items[0], "content")
}

func TestRecordHandlerListTeacherViewer(t *testing.T) {
	stub := &recordServiceStub{}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/collections/test/records?viewer=teacher&teacherId=TCH001&studentCardCode=ignored", nil)
	c.Params = gin.Params{{Key: "code", Value: "test"}}
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Viewer{Type: models.ViewerTeacher, Key: "TCH001"}, stub.viewer)
}

func TestRecordHandlerCreateUsesPathCollection(t *testing.T) {
	stub := &recordServiceStub{record: &models.Record{ID: "r-1", RevisionCount: 1}}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/collections/test/records", jsonBody(t, map[string]string{
		"student_id": "s-1", "subject": "수학", "content": "A",
	}))
	c.Params = gin.Params{{Key: "code", Value: "test"}}
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "test", stub.createReq.CollectionCode)
	assert.Equal(t, "수학", stub.createReq.Subject)
}

func TestRecordHandlerGetMarksViewer(t *testing.T) {
	stub := &recordServiceStub{record: &models.Record{ID: "r-1", Content: "A", RevisionCount: 1}}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/records/r-1?viewer=teacher&teacherId=TCH001", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	h.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ViewerTeacher, stub.viewer.Type)
}

func TestRecordHandlerUpdateConflict(t *testing.T) {
	stub := &recordServiceStub{err: appErrors.Clone(appErrors.ErrConflict, "record was modified concurrently")}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodPut, "/records/r-1", jsonBody(t, map[string]interface{}{
		"content": "B", "note": "fix", "editor": "김선생", "expected_version": 1,
	}))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	h.Update(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, stub.appendReq.ExpectedVersion)
	assert.Equal(t, 1, *stub.appendReq.ExpectedVersion)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, rec).Error["code"])
}

func TestRecordHandlerHistory(t *testing.T) {
	stub := &recordServiceStub{revisions: []models.RevisionView{
		{Revision: models.Revision{Version: 1, Note: models.RevisionNoteInitial}, LinesAdded: 1},
		{Revision: models.Revision{Version: 2, Note: "fix"}, LinesAdded: 1, LinesRemoved: 1},
	}}
	h := NewRecordHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/records/r-1/revisions", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	h.History(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var revisions []map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &revisions))
	require.Len(t, revisions, 2)
	assert.EqualValues(t, 2, revisions[1]["version"])
	assert.EqualValues(t, 1, revisions[1]["lines_removed"])
}
