package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"go.uber.org/zap"
)

type SignatureHandler struct {
	signatures *services.SignatureService
	documents  *services.DocumentService
	invites    *services.InviteService
	logger     *zap.Logger
}

func NewSignatureHandler(
	signatures *services.SignatureService,
	documents *services.DocumentService,
	invites *services.InviteService,
	logger *zap.Logger,
) *SignatureHandler {
	return &SignatureHandler{
		signatures: signatures,
		documents:  documents,
		invites:    invites,
		logger:     logger.With(zap.String("handler", "signature")),
	}
}

type placementRequest struct {
	DocumentID      string  `json:"documentId" binding:"required"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Page            int     `json:"page"`
	SignatureType   string  `json:"signatureType"`
	SignatureValue  string  `json:"signatureValue" binding:"required"`
	DisplayWidth    float64 `json:"displayWidth"`
	DisplayHeight   float64 `json:"displayHeight"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejectionReason"`
}

func (h *SignatureHandler) Create(c *gin.Context) {
	var req placementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	sig, err := h.signatures.Place(c.Request.Context(), services.PlacementInput{
		DocumentID:      req.DocumentID,
		SignerID:        c.GetString("userID"),
		X:               req.X,
		Y:               req.Y,
		Page:            req.Page,
		SignatureType:   models.SignatureType(req.SignatureType),
		SignatureValue:  req.SignatureValue,
		DisplayWidth:    req.DisplayWidth,
		DisplayHeight:   req.DisplayHeight,
		Status:          models.SignatureStatus(req.Status),
		RejectionReason: req.RejectionReason,
	}, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Server error saving signature")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Signature saved successfully", "signature": sig})
}

// ListAll returns signatures across every document the caller owns.
func (h *SignatureHandler) ListAll(c *gin.Context) {
	sigs, err := h.signatures.AllForOwner(c.Request.Context(), c.GetString("userID"), "")
	if err != nil {
		respondError(c, h.logger, err, "Server error fetching signatures")
		return
	}
	c.JSON(http.StatusOK, sigs)
}

func (h *SignatureHandler) ListForDocument(c *gin.Context) {
	sigs, err := h.signatures.ForDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Server error fetching signatures")
		return
	}
	c.JSON(http.StatusOK, sigs)
}

func (h *SignatureHandler) ByStatus(c *gin.Context) {
	status := models.SignatureStatus(c.Param("status"))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid status. Must be pending, signed, or rejected"})
		return
	}
	sigs, err := h.signatures.AllForOwner(c.Request.Context(), c.GetString("userID"), status)
	if err != nil {
		respondError(c, h.logger, err, "Server error fetching signatures")
		return
	}
	c.JSON(http.StatusOK, sigs)
}

type statusUpdateRequest struct {
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *SignatureHandler) UpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	status := models.SignatureStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid status. Must be pending, signed, or rejected"})
		return
	}

	sig, err := h.signatures.Transition(c.Request.Context(), c.Param("id"), c.GetString("userID"), status, req.RejectionReason, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Server error updating signature status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Signature status updated successfully", "signature": sig})
}

func (h *SignatureHandler) Delete(c *gin.Context) {
	if err := h.signatures.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID"), requestMeta(c)); err != nil {
		respondError(c, h.logger, err, "Server error deleting signature")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Signature deleted successfully"})
}

type rejectDocumentRequest struct {
	DocumentID      string `json:"documentId" binding:"required"`
	RejectionReason string `json:"rejectionReason" binding:"required"`
}

func (h *SignatureHandler) RejectDocument(c *gin.Context) {
	var req rejectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Document ID and rejection reason are required"})
		return
	}

	sig, err := h.signatures.RejectDocument(c.Request.Context(), req.DocumentID, c.GetString("userID"), req.RejectionReason, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Server error rejecting document")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Document rejected successfully", "signature": sig})
}

// Generate composites all non-rejected signatures onto the original and
// streams the derivative back.
func (h *SignatureHandler) Generate(c *gin.Context) {
	signedDoc, content, err := h.documents.GenerateSigned(c.Request.Context(), c.Param("documentId"), c.GetString("userID"), requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Error generating signed PDF")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", signedDoc.OriginalName))
	c.Header("Content-Length", strconv.Itoa(len(content)))
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/pdf", content)
}

type inviteRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
}

func (h *SignatureHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "documentId and email are required"})
		return
	}

	link, err := h.invites.Invite(c.Request.Context(), req.DocumentID, req.Email, c.GetString("userID"), requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Error inviting signer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Invite sent", "publicLink": link})
}

// PublicInfo resolves an invite token into the document it grants access to.
func (h *SignatureHandler) PublicInfo(c *gin.Context) {
	documentID, email, err := h.invites.Verify(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid or expired link"})
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, h.logger, err, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"documentId": documentID, "email": email, "document": doc})
}

type publicPlacementRequest struct {
	Token          string  `json:"token" binding:"required"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Page           int     `json:"page"`
	SignatureType  string  `json:"signatureType" binding:"required"`
	SignatureValue string  `json:"signatureValue" binding:"required"`
	DisplayWidth   float64 `json:"displayWidth"`
	DisplayHeight  float64 `json:"displayHeight"`
}

// PublicCreate places a signature on behalf of an invited external signer.
func (h *SignatureHandler) PublicCreate(c *gin.Context) {
	var req publicPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "All fields are required"})
		return
	}

	documentID, email, err := h.invites.Verify(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid or expired link"})
		return
	}

	sig, err := h.signatures.Place(c.Request.Context(), services.PlacementInput{
		DocumentID:     documentID,
		ExternalEmail:  email,
		X:              req.X,
		Y:              req.Y,
		Page:           req.Page,
		SignatureType:  models.SignatureType(req.SignatureType),
		SignatureValue: req.SignatureValue,
		DisplayWidth:   req.DisplayWidth,
		DisplayHeight:  req.DisplayHeight,
	}, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err, "Server error saving signature")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Signature saved successfully", "signature": sig})
}
