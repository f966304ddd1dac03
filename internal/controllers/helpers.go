package controllers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/roll-social-network/roll-social-network/internal/dtos"
	"github.com/roll-social-network/roll-social-network/internal/middleware"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

var validate = validator.New()

// respondServiceError maps domain errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPhone, "Invalid phone number", nil, err,
		)
	case errors.Is(err, utils.ErrRateLimitExceeded):
		utils.RespondErrorWithCode(
			w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded, "Too many requests. Please try again later.", nil,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure, "Failed to deliver verification code", nil, err,
		)
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid credentials", nil,
		)
	case errors.Is(err, utils.ErrInactiveAccount):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeInactiveAccount, "This account is inactive", nil,
		)
	default:
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    fallbackMsg,
			Err:        err,
		})
	}
}

// setAccessTokenCookie hands web clients their token as a __Host- cookie.
func setAccessTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func toUserDTO(u *models.User) dtos.User {
	return dtos.User{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}
}
