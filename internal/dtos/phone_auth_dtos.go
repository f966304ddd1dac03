package dtos

import (
	"time"

	"github.com/google/uuid"
)

// Phone numbers are accepted in any format the parser understands and are
// normalized to E.164 by the engine, so no e164 tag here.

// ----------------------
// Requests
// ----------------------

type LoginMethodsRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
}

type RequestCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
}

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Code        string `json:"code" validate:"required,min=1,max=8,numeric"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	OTPCode     string `json:"otp_code" validate:"required,len=6,numeric"`
}

// ----------------------
// Responses
// ----------------------

type LoginMethodsResponse struct {
	PhoneNumber string   `json:"phone_number"`
	Methods     []string `json:"methods"`
}

type RequestCodeResponse struct {
	Message string `json:"message"`
}

type User struct {
	ID          uuid.UUID `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token,omitempty"`
}
