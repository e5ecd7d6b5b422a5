package models

import (
	"time"
)

// Document is immutable once created. The only mutation ever applied is
// linking a freshly rendered signed derivative back to its original.
type Document struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	OriginalName       string    `gorm:"not null" json:"originalName"`
	FilePath           string    `gorm:"not null" json:"filePath"`
	UploadedBy         string    `gorm:"index" json:"uploadedBy"`
	UploadDate         time.Time `gorm:"autoCreateTime" json:"uploadDate"`
	IsSigned           bool      `gorm:"not null;default:false" json:"isSigned"`
	OriginalDocumentID string    `gorm:"index" json:"originalDocument,omitempty"`
}
