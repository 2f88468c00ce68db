package api

import (
	"net/http"

	apperrors "innovation-crm/internal/common/errors"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	_ = c.Error(err)

	details := stdErr.Details
	if status >= http.StatusInternalServerError {
		details = ""
	}
	c.AbortWithStatusJSON(status, errorBody(string(stdErr.Code), stdErr.Message, details))
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperrors.NewValidationFailedError(err.Error()))
}

func errorBody(code, message, details string) gin.H {
	e := gin.H{"code": code, "message": message}
	if details != "" {
		e["details"] = details
	}
	return gin.H{"success": false, "error": e}
}
