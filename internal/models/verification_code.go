package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationCode for the verification_codes table. Many codes may exist
// per user; a code is usable while ValidUntil is not in the past and
// Attempts is above zero.
type VerificationCode struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Code       string
	ValidUntil time.Time
	Attempts   int
	CreatedAt  time.Time

	// Destination number, populated on read so gateways need no extra lookup.
	PhoneNumber string
}

// IsLive reports whether the record can still be matched at instant now.
func (v *VerificationCode) IsLive(now time.Time) bool {
	return !v.ValidUntil.Before(now) && v.Attempts > 0
}
