package models

import (
	"time"
)

type SignatureStatus string

const (
	StatusPending  SignatureStatus = "pending"
	StatusSigned   SignatureStatus = "signed"
	StatusRejected SignatureStatus = "rejected"
)

func (s SignatureStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSigned, StatusRejected:
		return true
	}
	return false
}

type SignatureType string

const (
	TypeText  SignatureType = "text"
	TypeImage SignatureType = "image"
	TypeDraw  SignatureType = "draw"
)

func (t SignatureType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeDraw:
		return true
	}
	return false
}

// Signature is one placed annotation on one page of a document.
//
// X and Y are raw UI pixels relative to the rendered page box, origin
// top-left. DisplayWidth and DisplayHeight capture the page box the client
// rendered at placement time; different sessions render at different widths,
// so the transform into PDF points is replayed from these at render time
// rather than baked in at placement time.
//
// Exactly one of SignerID / ExternalEmail identifies the signing party.
type Signature struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	DocumentID      string          `gorm:"index;not null" json:"documentId"`
	SignerID        string          `gorm:"index" json:"signer,omitempty"`
	ExternalEmail   string          `json:"externalEmail,omitempty"`
	X               float64         `gorm:"not null" json:"x"`
	Y               float64         `gorm:"not null" json:"y"`
	Page            int             `gorm:"not null;default:1" json:"page"`
	SignatureType   SignatureType   `gorm:"not null;default:'text'" json:"signatureType"`
	SignatureValue  string          `gorm:"type:text;not null" json:"signatureValue"`
	DisplayWidth    float64         `json:"displayWidth"`
	DisplayHeight   float64         `json:"displayHeight"`
	Status          SignatureStatus `gorm:"index;not null;default:'pending'" json:"status"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	SignedAt        *time.Time      `json:"signedAt,omitempty"`
	RejectedAt      *time.Time      `json:"rejectedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
