package models

import (
	"time"
)

type AuditAction string

const (
	ActionSignatureAdded         AuditAction = "signature_added"
	ActionSignatureRemoved       AuditAction = "signature_removed"
	ActionDocumentSigned         AuditAction = "document_signed"
	ActionDocumentViewed         AuditAction = "document_viewed"
	ActionSignatureStatusUpdated AuditAction = "signature_status_updated"
	ActionDocumentRejected       AuditAction = "document_rejected"
	ActionInviteSent             AuditAction = "invite_sent"
)

// AuditEvent is append-only. DocumentName and SignerName are denormalized at
// write time so the trail stays readable after document renames or deletes.
type AuditEvent struct {
	ID            string      `gorm:"primaryKey" json:"id"`
	DocumentID    string      `gorm:"index:idx_audit_doc_ts,priority:1;not null" json:"documentId"`
	DocumentName  string      `gorm:"not null" json:"documentName"`
	Action        AuditAction `gorm:"not null" json:"action"`
	SignerID      string      `gorm:"index" json:"signer,omitempty"`
	ExternalEmail string      `json:"externalEmail,omitempty"`
	SignerName    string      `gorm:"not null" json:"signerName"`
	IPAddress     string      `gorm:"not null" json:"ipAddress"`
	UserAgent     string      `json:"userAgent,omitempty"`
	SignatureType string      `json:"signatureType,omitempty"`
	LocationX     *float64    `json:"locationX,omitempty"`
	LocationY     *float64    `json:"locationY,omitempty"`
	LocationPage  *int        `json:"locationPage,omitempty"`
	Timestamp     time.Time   `gorm:"index:idx_audit_doc_ts,priority:2,sort:desc" json:"timestamp"`
}
