package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rhythmtaneja/SignFlow/internal/db"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatal(err)
	}
	// A second connection would see an empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database
}

// recordingAudit captures entries synchronously for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAudit) Record(entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) all() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

// fakeArchiver records archive calls and optionally fails them.
type fakeArchiver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeArchiver) ArchiveRejected(name, originalName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, originalName)
	return nil
}

func (f *fakeArchiver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errArchiveBroken = errors.New("archive volume unavailable")

func seedUser(t *testing.T, database *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{ID: uuid.New().String(), Name: name, Email: email, PasswordHash: "x"}
	if err := database.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	return &user
}

func seedDocument(t *testing.T, database *gorm.DB, ownerID, originalName string) *models.Document {
	t.Helper()
	doc := models.Document{
		ID:           uuid.New().String(),
		OriginalName: originalName,
		FilePath:     "stored-" + originalName,
		UploadedBy:   ownerID,
	}
	if err := database.Create(&doc).Error; err != nil {
		t.Fatal(err)
	}
	return &doc
}

func seedSignature(t *testing.T, database *gorm.DB, documentID, signerID string, status models.SignatureStatus) *models.Signature {
	t.Helper()
	sig := models.Signature{
		ID:             uuid.New().String(),
		DocumentID:     documentID,
		SignerID:       signerID,
		X:              100,
		Y:              200,
		Page:           1,
		SignatureType:  models.TypeText,
		SignatureValue: "Jane Doe",
		DisplayWidth:   734,
		DisplayHeight:  1037.8,
		Status:         status,
	}
	now := time.Now()
	switch status {
	case models.StatusSigned:
		sig.SignedAt = &now
	case models.StatusRejected:
		sig.RejectedAt = &now
		sig.RejectionReason = "seeded rejection"
	}
	if err := database.Create(&sig).Error; err != nil {
		t.Fatal(err)
	}
	return &sig
}

func newTestSignatureService(t *testing.T, database *gorm.DB, archiver Archiver, audit AuditRecorder) *SignatureService {
	t.Helper()
	if archiver == nil {
		archiver = &fakeArchiver{}
	}
	if audit == nil {
		audit = &recordingAudit{}
	}
	return NewSignatureService(database, archiver, audit, zap.NewNop(), metrics.NewMetricsCollector())
}
