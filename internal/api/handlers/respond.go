package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"go.uber.org/zap"
)

// respondError maps the service failure taxonomy onto HTTP statuses. Internal
// errors get logged and a generic body; taxonomy errors surface their text.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"msg": messageOf(err)})
	case errors.Is(err, services.ErrNoSignatures):
		c.JSON(http.StatusBadRequest, gin.H{"msg": "No valid signatures found for this document"})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"msg": messageOf(err)})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": messageOf(err)})
	default:
		logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": fallback})
	}
}

// messageOf strips the sentinel prefix so the client sees the reason, not the
// wrapping ("validation failed: rejection reason is required" -> the latter).
func messageOf(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
