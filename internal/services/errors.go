package services

import (
	"errors"

	"github.com/rhythmtaneja/SignFlow/internal/render"
)

// Failure taxonomy surfaced to callers. Decode, archive and audit-write
// failures are deliberately absent: those are recovered or logged in place
// and never fail the triggering operation.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrNoSignatures     = render.ErrNoSignatures
)
