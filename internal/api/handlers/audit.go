package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audit     *services.AuditService
	documents *services.DocumentService
	logger    *zap.Logger
}

func NewAuditHandler(audit *services.AuditService, documents *services.DocumentService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:     audit,
		documents: documents,
		logger:    logger.With(zap.String("handler", "audit")),
	}
}

// DocumentTrail returns a document's audit events, newest first. Owner-only.
func (h *AuditHandler) DocumentTrail(c *gin.Context) {
	documentID := c.Param("fileId")

	doc, err := h.documents.Get(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, h.logger, err, "Server error")
		return
	}
	if doc.UploadedBy != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"message": "Access denied"})
		return
	}

	events, err := h.audit.DocumentTrail(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, h.logger, err, "Server error")
		return
	}

	logs := make([]gin.H, len(events))
	for i, ev := range events {
		entry := gin.H{
			"id":            ev.ID,
			"action":        ev.Action,
			"signerName":    ev.SignerName,
			"externalEmail": ev.ExternalEmail,
			"ipAddress":     ev.IPAddress,
			"userAgent":     ev.UserAgent,
			"signatureType": ev.SignatureType,
			"timestamp":     ev.Timestamp,
		}
		if ev.LocationX != nil && ev.LocationY != nil {
			entry["signatureLocation"] = gin.H{
				"x":    *ev.LocationX,
				"y":    *ev.LocationY,
				"page": ev.LocationPage,
			}
		}
		logs[i] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"documentId":   documentID,
		"documentName": doc.OriginalName,
		"totalEvents":  len(logs),
		"auditLogs":    logs,
	})
}
