package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// AdminKeyHeader carries the collection admin secret.
const AdminKeyHeader = "X-Admin-Key"

// viewerFromQuery reads viewer, studentCardCode and teacherId. Anything other
// than "teacher" is treated as a student viewer.
func viewerFromQuery(c *gin.Context) models.Viewer {
	if strings.EqualFold(strings.TrimSpace(c.Query("viewer")), string(models.ViewerTeacher)) {
		return models.Viewer{Type: models.ViewerTeacher, Key: strings.TrimSpace(c.Query("teacherId"))}
	}
	return models.Viewer{Type: models.ViewerStudent, Key: strings.TrimSpace(c.Query("studentCardCode"))}
}

// adminKeyFromRequest prefers the header over the adminKey query parameter.
func adminKeyFromRequest(c *gin.Context) string {
	if key := c.GetHeader(AdminKeyHeader); key != "" {
		return key
	}
	return c.Query("adminKey")
}
