package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/internal/render"
	"github.com/rhythmtaneja/SignFlow/internal/storage"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DocumentService struct {
	db         *gorm.DB
	store      *storage.LocalStore
	compositor *render.Compositor
	signatures *SignatureService
	audit      AuditRecorder
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
}

func NewDocumentService(
	db *gorm.DB,
	store *storage.LocalStore,
	compositor *render.Compositor,
	signatures *SignatureService,
	audit AuditRecorder,
	logger *zap.Logger,
	mc *metrics.MetricsCollector,
) *DocumentService {
	return &DocumentService{
		db:         db,
		store:      store,
		compositor: compositor,
		signatures: signatures,
		audit:      audit,
		logger:     logger.With(zap.String("service", "document_service")),
		metrics:    mc,
	}
}

func (ds *DocumentService) Upload(ctx context.Context, ownerID, originalName string, content []byte) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext != ".pdf" {
		return nil, fmt.Errorf("%w: only PDF files are allowed", ErrValidation)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", ErrValidation)
	}

	start := time.Now()
	name, err := ds.store.SaveUpload(content, ext)
	if err != nil {
		return nil, err
	}

	doc := models.Document{
		ID:           uuid.New().String(),
		OriginalName: originalName,
		FilePath:     name,
		UploadedBy:   ownerID,
	}
	if err := ds.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}

	ds.metrics.IncrementCounter("documents_uploaded")
	ds.metrics.ObserveSize("document_size", float64(len(content)))
	ds.metrics.ObserveLatency("document_upload", time.Since(start))
	return &doc, nil
}

func (ds *DocumentService) Get(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	if err := ds.db.WithContext(ctx).First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
		}
		return nil, err
	}
	return &doc, nil
}

func (ds *DocumentService) ListForOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	if err := ds.db.WithContext(ctx).
		Where("uploaded_by = ?", ownerID).
		Order("upload_date DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FileBytes loads the stored bytes backing a document.
func (ds *DocumentService) FileBytes(ctx context.Context, documentID string) ([]byte, *models.Document, error) {
	doc, err := ds.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	content, err := ds.store.Read(doc.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: document bytes for %s", ErrNotFound, documentID)
	}
	return content, doc, nil
}

// Delete removes a document along with its signatures and audit trail. Only
// the owner may delete. The file unlink is best-effort.
func (ds *DocumentService) Delete(ctx context.Context, documentID, actorID string) error {
	doc, err := ds.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UploadedBy != actorID {
		return fmt.Errorf("%w: only the document owner may delete it", ErrPermissionDenied)
	}

	if err := ds.db.WithContext(ctx).Delete(&models.Signature{}, "document_id = ?", documentID).Error; err != nil {
		return err
	}
	if err := ds.db.WithContext(ctx).Delete(&models.AuditEvent{}, "document_id = ?", documentID).Error; err != nil {
		return err
	}
	if err := ds.store.Remove(doc.FilePath); err != nil {
		ds.logger.Warn("could not delete file from storage",
			zap.String("document_id", documentID), zap.Error(err))
	}
	if err := ds.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", documentID).Error; err != nil {
		return err
	}

	ds.metrics.IncrementCounter("documents_deleted")
	return nil
}

// GenerateSigned materializes the signed derivative: it re-derives every
// non-rejected signature's document-space position, composites the artifacts
// onto a copy of the original bytes, persists the result as a new immutable
// document pointing back at the original, and returns the bytes. The original
// document and its signatures are never touched, so re-running always yields
// a fresh derivative.
func (ds *DocumentService) GenerateSigned(ctx context.Context, documentID, actorID string, meta RequestMeta) (*models.Document, []byte, error) {
	start := time.Now()

	doc, err := ds.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	sigs, err := ds.signatures.Renderable(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if len(sigs) == 0 {
		return nil, nil, fmt.Errorf("%w: document %s", ErrNoSignatures, documentID)
	}

	source, err := ds.store.Read(doc.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: document bytes for %s", ErrNotFound, documentID)
	}

	placements := make([]render.Placement, len(sigs))
	for i, sig := range sigs {
		placements[i] = render.Placement{
			Page:          sig.Page,
			X:             sig.X,
			Y:             sig.Y,
			DisplayWidth:  sig.DisplayWidth,
			DisplayHeight: sig.DisplayHeight,
			Type:          string(sig.SignatureType),
			Value:         sig.SignatureValue,
		}
	}

	signed, err := ds.compositor.Render(source, placements)
	if err != nil {
		return nil, nil, err
	}

	base := strings.TrimSuffix(doc.OriginalName, filepath.Ext(doc.OriginalName))
	signedName := fmt.Sprintf("%s_signed_%d.pdf", base, time.Now().UnixMilli())
	if err := ds.store.Write(signedName, signed); err != nil {
		return nil, nil, err
	}

	signedDoc := models.Document{
		ID:                 uuid.New().String(),
		OriginalName:       signedName,
		FilePath:           signedName,
		UploadedBy:         actorID,
		IsSigned:           true,
		OriginalDocumentID: documentID,
	}
	if err := ds.db.WithContext(ctx).Create(&signedDoc).Error; err != nil {
		return nil, nil, err
	}

	ds.metrics.IncrementCounter("documents_rendered")
	ds.metrics.ObserveSize("rendered_size", float64(len(signed)))
	ds.metrics.ObserveLatency("document_render", time.Since(start))

	ds.audit.Record(AuditEntry{
		DocumentID: documentID,
		Action:     models.ActionDocumentSigned,
		SignerID:   actorID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return &signedDoc, signed, nil
}
