package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPSecret holds a user's TOTP shared secret. Value is the plaintext base32
// secret; the repository encrypts it at rest. ValidAt is nil until the user
// proves the secret by submitting a generated code.
type OTPSecret struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Value     string
	ValidAt   *time.Time
	CreatedAt time.Time
}

func (o *OTPSecret) IsActive() bool {
	return o.ValidAt != nil
}
