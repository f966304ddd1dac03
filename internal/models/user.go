package models

import (
	"time"

	"github.com/google/uuid"
)

// User is identified by its E.164 phone number. Rows are only ever inserted
// by the phone auth engines, never updated.
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	IsActive    bool
	CreatedAt   time.Time
}

// GetUsername mirrors the identifier handed to SMS gateways.
func (u *User) GetUsername() string {
	return u.PhoneNumber
}
