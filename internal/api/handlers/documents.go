package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	documents *services.DocumentService
	audit     *services.AuditService
	logger    *zap.Logger
}

func NewDocumentHandler(documents *services.DocumentService, audit *services.AuditService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		audit:     audit,
		logger:    logger.With(zap.String("handler", "document")),
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "No file uploaded"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("read uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), c.GetString("userID"), fileHeader.Filename, content)
	if err != nil {
		respondError(c, h.logger, err, "Server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"msg": "File uploaded successfully", "document": doc})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.ListForOwner(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, h.logger, err, "Server error fetching documents")
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		respondError(c, h.logger, err, "Server error deleting document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Document deleted successfully"})
}

// View streams the original document bytes. Used both with header auth and
// with a token query parameter for new-tab viewing; the auth middleware
// accepts either.
func (h *DocumentHandler) View(c *gin.Context) {
	content, doc, err := h.documents.FileBytes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error serving file")
		return
	}

	meta := requestMeta(c)
	h.audit.Record(services.AuditEntry{
		DocumentID: doc.ID,
		Action:     models.ActionDocumentViewed,
		SignerID:   c.GetString("userID"),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	c.Header("Content-Disposition", `inline; filename="`+doc.OriginalName+`"`)
	c.Data(http.StatusOK, "application/pdf", content)
}
