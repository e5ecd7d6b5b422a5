package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditLocation is a placement snapshot attached to signature events.
type AuditLocation struct {
	X    float64
	Y    float64
	Page int
}

// AuditEntry is what the state machine and handlers emit. The recorder
// denormalizes names at write time.
type AuditEntry struct {
	DocumentID    string
	Action        models.AuditAction
	SignerID      string
	ExternalEmail string
	IPAddress     string
	UserAgent     string
	SignatureType string
	Location      *AuditLocation
}

// AuditRecorder is the fire-and-forget side of the audit trail. A failed or
// dropped record never fails the operation it describes.
type AuditRecorder interface {
	Record(entry AuditEntry)
}

// AuditService consumes audit entries off a buffered channel and appends them
// to the trail. Entries are enqueued after the primary state is committed; if
// the buffer is full the entry is dropped with a warning rather than blocking
// the request path.
type AuditService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector

	entries chan AuditEntry
	done    chan struct{}
	closing sync.Once
}

func NewAuditService(db *gorm.DB, bufferSize int, logger *zap.Logger, metrics *metrics.MetricsCollector) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &AuditService{
		db:      db,
		logger:  logger.With(zap.String("service", "audit_service")),
		metrics: metrics,
		entries: make(chan AuditEntry, bufferSize),
		done:    make(chan struct{}),
	}
	go s.consume()
	return s
}

func (s *AuditService) Record(entry AuditEntry) {
	if entry.DocumentID == "" {
		s.logger.Debug("skipping audit entry without document id", zap.String("action", string(entry.Action)))
		return
	}
	select {
	case s.entries <- entry:
	default:
		s.metrics.IncrementCounter("audit_entries_dropped")
		s.logger.Warn("audit buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("document_id", entry.DocumentID))
	}
}

// Close drains outstanding entries and stops the consumer.
func (s *AuditService) Close() {
	s.closing.Do(func() {
		close(s.entries)
		<-s.done
	})
}

func (s *AuditService) consume() {
	defer close(s.done)
	for entry := range s.entries {
		s.write(entry)
	}
}

func (s *AuditService) write(entry AuditEntry) {
	event := models.AuditEvent{
		ID:            uuid.New().String(),
		DocumentID:    entry.DocumentID,
		DocumentName:  s.documentName(entry.DocumentID),
		Action:        entry.Action,
		SignerID:      entry.SignerID,
		ExternalEmail: entry.ExternalEmail,
		SignerName:    s.signerName(entry.SignerID, entry.ExternalEmail),
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		SignatureType: entry.SignatureType,
		Timestamp:     time.Now(),
	}
	if event.IPAddress == "" {
		event.IPAddress = "unknown"
	}
	if loc := entry.Location; loc != nil {
		x, y, page := loc.X, loc.Y, loc.Page
		event.LocationX, event.LocationY, event.LocationPage = &x, &y, &page
	}

	if err := s.db.Create(&event).Error; err != nil {
		s.metrics.IncrementCounter("audit_write_failures")
		s.logger.Error("failed to append audit event",
			zap.String("action", string(entry.Action)),
			zap.String("document_id", entry.DocumentID),
			zap.Error(err))
		return
	}
	s.metrics.IncrementCounter("audit_events_recorded")
}

// documentName captures the name as it is right now; the event keeps it even
// if the document is later renamed or deleted.
func (s *AuditService) documentName(documentID string) string {
	var doc models.Document
	if err := s.db.Select("original_name").First(&doc, "id = ?", documentID).Error; err != nil {
		return "Unknown Document"
	}
	return doc.OriginalName
}

// signerName resolves the actor display name. An external email wins over a
// registered user lookup.
func (s *AuditService) signerName(signerID, externalEmail string) string {
	if externalEmail != "" {
		return externalEmail
	}
	if signerID != "" {
		var user models.User
		if err := s.db.First(&user, "id = ?", signerID).Error; err == nil {
			return user.DisplayName()
		}
	}
	return "Unknown User"
}

// DocumentTrail returns a document's audit events, newest first.
func (s *AuditService) DocumentTrail(ctx context.Context, documentID string) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("timestamp DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
