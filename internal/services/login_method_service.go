package services

import (
	"context"
)

// Login method identifiers exposed to clients.
const (
	LoginMethodVerificationCode = "VERIFICATION_CODE"
	LoginMethodOTPCode          = "OTP_CODE"
)

// LoginMethodService tells a client which credentials a phone number can
// log in with. SMS codes are always offered; OTP only once activated.
type LoginMethodService interface {
	AvailableMethods(ctx context.Context, phoneNumber string) ([]string, error)
}

type loginMethodService struct {
	otpSecrets OTPSecretService
}

func NewLoginMethodService(otpSecrets OTPSecretService) LoginMethodService {
	return &loginMethodService{otpSecrets: otpSecrets}
}

func (s *loginMethodService) AvailableMethods(ctx context.Context, phoneNumber string) ([]string, error) {
	methods := []string{LoginMethodVerificationCode}
	hasOTP, err := s.otpSecrets.PhoneNumberHasValidOTPSecret(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if hasOTP {
		methods = append(methods, LoginMethodOTPCode)
	}
	return methods, nil
}
