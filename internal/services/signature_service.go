package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Display box recorded on synthesized whole-document rejection signatures,
// which carry no real placement.
const (
	syntheticDisplayWidth  = 600
	syntheticDisplayHeight = 848
)

// RequestMeta is the client context attached to audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Archiver copies a fully rejected document's original bytes into the
// rejected namespace. Must be safe to run redundantly.
type Archiver interface {
	ArchiveRejected(name, originalName string) error
}

// SignatureService owns the signature lifecycle: placement, the
// pending/signed/rejected state machine, deletion, and document-level
// rejection derived from the individual signatures.
type SignatureService struct {
	db       *gorm.DB
	archiver Archiver
	audit    AuditRecorder
	logger   *zap.Logger
	metrics  *metrics.MetricsCollector
}

func NewSignatureService(db *gorm.DB, archiver Archiver, audit AuditRecorder, logger *zap.Logger, mc *metrics.MetricsCollector) *SignatureService {
	return &SignatureService{
		db:       db,
		archiver: archiver,
		audit:    audit,
		logger:   logger.With(zap.String("service", "signature_service")),
		metrics:  mc,
	}
}

// PlacementInput is a raw placement as submitted by a client. Coordinates and
// the display box are stored untouched so the document-space transform can be
// replayed at render time.
type PlacementInput struct {
	DocumentID      string
	SignerID        string
	ExternalEmail   string
	X               float64
	Y               float64
	Page            int
	SignatureType   models.SignatureType
	SignatureValue  string
	DisplayWidth    float64
	DisplayHeight   float64
	Status          models.SignatureStatus
	RejectionReason string
}

func (s *SignatureService) Place(ctx context.Context, in PlacementInput, meta RequestMeta) (*models.Signature, error) {
	if in.SignerID == "" && in.ExternalEmail == "" {
		return nil, fmt.Errorf("%w: either signer or externalEmail is required", ErrValidation)
	}
	if in.SignatureValue == "" {
		return nil, fmt.Errorf("%w: signatureValue is required", ErrValidation)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.SignatureType == "" {
		in.SignatureType = models.TypeText
	}
	if !in.SignatureType.Valid() {
		return nil, fmt.Errorf("%w: invalid signatureType %q", ErrValidation, in.SignatureType)
	}
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, in.Status)
	}
	if in.Status == models.StatusRejected && in.RejectionReason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required when status is rejected", ErrValidation)
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", in.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, in.DocumentID)
		}
		return nil, err
	}

	sig := models.Signature{
		ID:              uuid.New().String(),
		DocumentID:      in.DocumentID,
		SignerID:        in.SignerID,
		ExternalEmail:   in.ExternalEmail,
		X:               in.X,
		Y:               in.Y,
		Page:            in.Page,
		SignatureType:   in.SignatureType,
		SignatureValue:  in.SignatureValue,
		DisplayWidth:    in.DisplayWidth,
		DisplayHeight:   in.DisplayHeight,
		Status:          in.Status,
		RejectionReason: in.RejectionReason,
	}
	now := time.Now()
	switch in.Status {
	case models.StatusSigned:
		sig.SignedAt = &now
	case models.StatusRejected:
		sig.RejectedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&sig).Error; err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("signatures_placed")
	s.audit.Record(AuditEntry{
		DocumentID:    sig.DocumentID,
		Action:        models.ActionSignatureAdded,
		SignerID:      sig.SignerID,
		ExternalEmail: sig.ExternalEmail,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		SignatureType: string(sig.SignatureType),
		Location:      &AuditLocation{X: sig.X, Y: sig.Y, Page: sig.Page},
	})
	return &sig, nil
}

// Transition moves a signature between lifecycle states. Any state may move
// to any other: signer and owner are both allowed to revise a decision.
// Exactly one terminal timestamp survives the move, matching the new status.
func (s *SignatureService) Transition(ctx context.Context, signatureID, actorID string, status models.SignatureStatus, reason string, meta RequestMeta) (*models.Signature, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	sig, doc, err := s.loadSignatureAndDocument(ctx, signatureID)
	if err != nil {
		return nil, err
	}
	if err := s.requireSignerOrOwner(sig, doc, actorID); err != nil {
		return nil, err
	}
	if status == models.StatusRejected && reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required when status is rejected", ErrValidation)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           status,
		"signed_at":        nil,
		"rejected_at":      nil,
		"rejection_reason": "",
	}
	switch status {
	case models.StatusSigned:
		updates["signed_at"] = now
	case models.StatusRejected:
		updates["rejected_at"] = now
		updates["rejection_reason"] = reason
	}

	if err := s.db.WithContext(ctx).Model(&models.Signature{}).
		Where("id = ?", sig.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(sig, "id = ?", sig.ID).Error; err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("signature_transitions")
	s.logger.Info("Signature status updated",
		zap.String("signature_id", sig.ID),
		zap.String("document_id", sig.DocumentID),
		zap.String("status", string(status)))

	if status == models.StatusRejected {
		s.evaluateDocumentRejection(ctx, doc)
	}

	s.audit.Record(AuditEntry{
		DocumentID:    sig.DocumentID,
		Action:        models.ActionSignatureStatusUpdated,
		SignerID:      sig.SignerID,
		ExternalEmail: sig.ExternalEmail,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		SignatureType: string(sig.SignatureType),
	})
	return sig, nil
}

// evaluateDocumentRejection re-reads every signature after a rejecting write
// and archives the original bytes when all of them are rejected. Best-effort:
// the signature records are authoritative, a failed archive copy only logs.
func (s *SignatureService) evaluateDocumentRejection(ctx context.Context, doc *models.Document) {
	rejected, err := s.DocumentFullyRejected(ctx, doc.ID)
	if err != nil {
		s.logger.Error("failed to evaluate document rejection state",
			zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	if !rejected {
		return
	}
	if err := s.archiver.ArchiveRejected(doc.FilePath, doc.OriginalName); err != nil {
		s.metrics.IncrementCounter("rejected_archive_failures")
		s.logger.Error("failed to archive fully rejected document",
			zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	s.logger.Info("Document fully rejected, original archived", zap.String("document_id", doc.ID))
}

// DocumentFullyRejected reports whether a document has at least one signature
// and every one of them is rejected.
func (s *SignatureService) DocumentFullyRejected(ctx context.Context, documentID string) (bool, error) {
	var total, rejected int64
	if err := s.db.WithContext(ctx).Model(&models.Signature{}).
		Where("document_id = ?", documentID).
		Count(&total).Error; err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Signature{}).
		Where("document_id = ? AND status = ?", documentID, models.StatusRejected).
		Count(&rejected).Error; err != nil {
		return false, err
	}
	return rejected == total, nil
}

// RejectDocument is the owner-initiated whole-document rejection. It archives
// the original and records the decision as a synthesized zero-placement
// rejected signature, so the rejection shows up in the same read models as
// individual dispositions.
func (s *SignatureService) RejectDocument(ctx context.Context, documentID, actorID, reason string, meta RequestMeta) (*models.Signature, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
		}
		return nil, err
	}
	if doc.UploadedBy != actorID {
		return nil, fmt.Errorf("%w: only the document owner may reject it", ErrPermissionDenied)
	}

	if err := s.archiver.ArchiveRejected(doc.FilePath, doc.OriginalName); err != nil {
		s.metrics.IncrementCounter("rejected_archive_failures")
		s.logger.Error("failed to archive rejected document",
			zap.String("document_id", doc.ID), zap.Error(err))
	}

	now := time.Now()
	sig := models.Signature{
		ID:              uuid.New().String(),
		DocumentID:      documentID,
		SignerID:        actorID,
		X:               0,
		Y:               0,
		Page:            1,
		SignatureType:   models.TypeText,
		SignatureValue:  "REJECTED",
		DisplayWidth:    syntheticDisplayWidth,
		DisplayHeight:   syntheticDisplayHeight,
		Status:          models.StatusRejected,
		RejectionReason: reason,
		RejectedAt:      &now,
	}
	if err := s.db.WithContext(ctx).Create(&sig).Error; err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("documents_rejected")
	s.audit.Record(AuditEntry{
		DocumentID: documentID,
		Action:     models.ActionDocumentRejected,
		SignerID:   actorID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return &sig, nil
}

// Delete removes a signature outright. No soft delete, no cascade to the
// document.
func (s *SignatureService) Delete(ctx context.Context, signatureID, actorID string, meta RequestMeta) error {
	sig, doc, err := s.loadSignatureAndDocument(ctx, signatureID)
	if err != nil {
		return err
	}
	if err := s.requireSignerOrOwner(sig, doc, actorID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Signature{}, "id = ?", sig.ID).Error; err != nil {
		return err
	}

	s.metrics.IncrementCounter("signatures_deleted")
	s.audit.Record(AuditEntry{
		DocumentID:    sig.DocumentID,
		Action:        models.ActionSignatureRemoved,
		SignerID:      sig.SignerID,
		ExternalEmail: sig.ExternalEmail,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
	})
	return nil
}

// ForDocument lists every signature placed on a document.
func (s *SignatureService) ForDocument(ctx context.Context, documentID string) ([]models.Signature, error) {
	var sigs []models.Signature
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&sigs).Error; err != nil {
		return nil, err
	}
	return sigs, nil
}

// Renderable lists the signatures a render run will draw: everything not
// rejected, pending included.
func (s *SignatureService) Renderable(ctx context.Context, documentID string) ([]models.Signature, error) {
	var sigs []models.Signature
	if err := s.db.WithContext(ctx).
		Where("document_id = ? AND status <> ?", documentID, models.StatusRejected).
		Order("created_at ASC").
		Find(&sigs).Error; err != nil {
		return nil, err
	}
	return sigs, nil
}

// AllForOwner lists signatures across every document the owner uploaded,
// optionally filtered by status.
func (s *SignatureService) AllForOwner(ctx context.Context, ownerID string, status models.SignatureStatus) ([]models.Signature, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	q := s.db.WithContext(ctx).
		Where("document_id IN (?)", s.db.Model(&models.Document{}).Select("id").Where("uploaded_by = ?", ownerID)).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var sigs []models.Signature
	if err := q.Find(&sigs).Error; err != nil {
		return nil, err
	}
	return sigs, nil
}

func (s *SignatureService) loadSignatureAndDocument(ctx context.Context, signatureID string) (*models.Signature, *models.Document, error) {
	var sig models.Signature
	if err := s.db.WithContext(ctx).First(&sig, "id = ?", signatureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: signature %s", ErrNotFound, signatureID)
		}
		return nil, nil, err
	}
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", sig.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: document %s", ErrNotFound, sig.DocumentID)
		}
		return nil, nil, err
	}
	return &sig, &doc, nil
}

func (s *SignatureService) requireSignerOrOwner(sig *models.Signature, doc *models.Document, actorID string) error {
	isSigner := sig.SignerID != "" && sig.SignerID == actorID
	isOwner := doc.UploadedBy != "" && doc.UploadedBy == actorID
	if !isSigner && !isOwner {
		return fmt.Errorf("%w: actor is neither signer nor document owner", ErrPermissionDenied)
	}
	return nil
}
