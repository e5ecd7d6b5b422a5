package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rhythmtaneja/SignFlow/internal/config"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/internal/render"
	"github.com/rhythmtaneja/SignFlow/internal/storage"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// onePagePDF assembles a minimal single-page US Letter document.
func onePagePDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << >> >>\nendobj\n")
	writeObj("4 0 obj\n<< /Length 0 >>\nstream\n\nendstream\nendobj\n")

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefPos)
	return buf.Bytes()
}

func newTestDocumentService(t *testing.T, database *gorm.DB) (*DocumentService, *storage.LocalStore, *recordingAudit) {
	t.Helper()
	log := zap.NewNop()
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatal(err)
	}
	audit := &recordingAudit{}
	mc := metrics.NewMetricsCollector()
	compositor := render.NewCompositor(config.RenderConfig{
		FallbackDisplayWidth: 600,
		FallbackAspectRatio:  1.41421356,
	}, log)
	signatures := NewSignatureService(database, store, audit, log, mc)
	return NewDocumentService(database, store, compositor, signatures, audit, log, mc), store, audit
}

func TestUploadValidation(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	svc, _, _ := newTestDocumentService(t, database)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, owner.ID, "notes.txt", []byte("hi")); !errors.Is(err, ErrValidation) {
		t.Errorf("non-PDF upload = %v, want ErrValidation", err)
	}
	if _, err := svc.Upload(ctx, owner.ID, "empty.pdf", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty upload = %v, want ErrValidation", err)
	}
}

func TestUploadAndReadBack(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	svc, _, _ := newTestDocumentService(t, database)
	ctx := context.Background()
	content := onePagePDF(t)

	doc, err := svc.Upload(ctx, owner.ID, "Contract.PDF", content)
	if err != nil {
		t.Fatal(err)
	}
	if doc.OriginalName != "Contract.PDF" {
		t.Errorf("OriginalName = %q", doc.OriginalName)
	}
	if doc.IsSigned {
		t.Error("fresh upload marked signed")
	}

	got, gotDoc, err := svc.FileBytes(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("stored bytes differ from uploaded bytes")
	}
	if gotDoc.ID != doc.ID {
		t.Errorf("FileBytes returned document %s, want %s", gotDoc.ID, doc.ID)
	}

	listed, err := svc.ListForOwner(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != doc.ID {
		t.Errorf("ListForOwner = %+v", listed)
	}
}

func TestDeleteCascades(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	other := seedUser(t, database, "Other", "other@example.com")
	svc, _, _ := newTestDocumentService(t, database)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, owner.ID, "contract.pdf", onePagePDF(t))
	if err != nil {
		t.Fatal(err)
	}
	seedSignature(t, database, doc.ID, owner.ID, models.StatusSigned)
	event := models.AuditEvent{
		ID: "ev1", DocumentID: doc.ID, DocumentName: doc.OriginalName,
		Action: models.ActionDocumentViewed, SignerName: "Owner", IPAddress: "unknown",
	}
	if err := database.Create(&event).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, doc.ID, other.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("non-owner delete = %v, want ErrPermissionDenied", err)
	}
	if err := svc.Delete(ctx, doc.ID, owner.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	var sigCount, evCount int64
	database.Model(&models.Signature{}).Where("document_id = ?", doc.ID).Count(&sigCount)
	database.Model(&models.AuditEvent{}).Where("document_id = ?", doc.ID).Count(&evCount)
	if sigCount != 0 || evCount != 0 {
		t.Errorf("cascade left %d signatures and %d audit events", sigCount, evCount)
	}
}

func TestGenerateSignedErrors(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	svc, _, _ := newTestDocumentService(t, database)
	ctx := context.Background()

	if _, _, err := svc.GenerateSigned(ctx, "no-such-doc", owner.ID, RequestMeta{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document = %v, want ErrNotFound", err)
	}

	doc, err := svc.Upload(ctx, owner.ID, "contract.pdf", onePagePDF(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.GenerateSigned(ctx, doc.ID, owner.ID, RequestMeta{}); !errors.Is(err, ErrNoSignatures) {
		t.Errorf("document without signatures = %v, want ErrNoSignatures", err)
	}

	// A document whose only signature is rejected has nothing to render.
	seedSignature(t, database, doc.ID, owner.ID, models.StatusRejected)
	if _, _, err := svc.GenerateSigned(ctx, doc.ID, owner.ID, RequestMeta{}); !errors.Is(err, ErrNoSignatures) {
		t.Errorf("fully rejected document = %v, want ErrNoSignatures", err)
	}
}

func TestGenerateSignedProducesDerivative(t *testing.T) {
	database := newTestDB(t)
	owner := seedUser(t, database, "Owner", "owner@example.com")
	svc, store, audit := newTestDocumentService(t, database)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, owner.ID, "contract.pdf", onePagePDF(t))
	if err != nil {
		t.Fatal(err)
	}
	seedSignature(t, database, doc.ID, owner.ID, models.StatusSigned)

	signedDoc, content, err := svc.GenerateSigned(ctx, doc.ID, owner.ID, RequestMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(content) == 0 {
		t.Fatal("rendered output is empty")
	}
	if !signedDoc.IsSigned {
		t.Error("derivative not marked signed")
	}
	if signedDoc.OriginalDocumentID != doc.ID {
		t.Errorf("OriginalDocumentID = %q, want %q", signedDoc.OriginalDocumentID, doc.ID)
	}
	if !strings.HasPrefix(signedDoc.OriginalName, "contract_signed_") || !strings.HasSuffix(signedDoc.OriginalName, ".pdf") {
		t.Errorf("derivative name = %q", signedDoc.OriginalName)
	}

	stored, err := store.Read(signedDoc.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("persisted derivative differs from returned bytes")
	}

	// The original is untouched and re-running yields a fresh derivative.
	orig, _, err := svc.FileBytes(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(orig, onePagePDF(t)) {
		t.Error("original bytes were mutated by rendering")
	}
	second, _, err := svc.GenerateSigned(ctx, doc.ID, owner.ID, RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == signedDoc.ID {
		t.Error("re-render reused the previous derivative row")
	}

	var sawSigned bool
	for _, entry := range audit.all() {
		if entry.Action == models.ActionDocumentSigned && entry.DocumentID == doc.ID {
			sawSigned = true
		}
	}
	if !sawSigned {
		t.Error("no document_signed audit entry recorded")
	}
}
