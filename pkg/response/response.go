package response

import (
	"log"
	"net/http"

	"anoa.com/peerlink/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetRole retrieves the authenticated user's role from the context
func GetRole(c *gin.Context) string {
	return c.GetString("role")
}

// ResponseError writes a short JSON error. Internal errors are logged and masked.
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// ParseUUIDParam reads a uuid path parameter or reports ErrInvalidInput.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.New(http.StatusBadRequest, "invalid "+name, apperror.ErrInvalidInput)
	}
	return id, nil
}
