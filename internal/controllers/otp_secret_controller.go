package controllers

import (
	"net/http"

	"github.com/roll-social-network/roll-social-network/internal/dtos"
	"github.com/roll-social-network/roll-social-network/internal/middleware"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/services"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// OTPSecretController serves the authenticated OTP provisioning flow:
// fetch the pending secret, then prove it with a first code.
type OTPSecretController struct {
	otpService services.OTPSecretService
	users      repositories.UserRepository
}

func NewOTPSecretController(otpService services.OTPSecretService, users repositories.UserRepository) *OTPSecretController {
	return &OTPSecretController{otpService: otpService, users: users}
}

func (c *OTPSecretController) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing user", nil)
		return nil
	}
	user, err := c.users.GetByID(r.Context(), userID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to load user", nil, err,
		)
		return nil
	}
	if user == nil || !user.IsActive {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Unknown user", nil)
		return nil
	}
	return user
}

// ---------------------------------------------------------------------
// GET /auth/v1/otp/secret
// ---------------------------------------------------------------------
func (c *OTPSecretController) GetSecret(w http.ResponseWriter, r *http.Request) {
	user := c.currentUser(w, r)
	if user == nil {
		return
	}

	secret, created, err := c.otpService.GetOrCreate(r.Context(), user)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to provision OTP secret", nil, err,
		)
		return
	}
	if secret.IsActive() {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeConflict, "OTP secret already activated", nil,
		)
		return
	}

	uri, err := c.otpService.ProvisioningURI(r.Context(), secret)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to build provisioning URI", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.OTPSecretResponse{
		Secret:          secret.Value,
		ProvisioningURI: uri,
		Created:         created,
	})
}

// ---------------------------------------------------------------------
// POST /auth/v1/otp/validate
// ---------------------------------------------------------------------
func (c *OTPSecretController) Validate(w http.ResponseWriter, r *http.Request) {
	user := c.currentUser(w, r)
	if user == nil {
		return
	}

	var req dtos.ValidateOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	secret, err := c.otpService.Get(r.Context(), user)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to load OTP secret", nil, err,
		)
		return
	}
	if secret == nil {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "No OTP secret provisioned", nil)
		return
	}
	if secret.IsActive() {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeConflict, "OTP secret already activated", nil,
		)
		return
	}
	if !c.otpService.CheckCode(secret, req.OTPCode) {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidTotp, "Invalid OTP code", nil)
		return
	}

	if err := c.otpService.Validate(r.Context(), secret, true); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to activate OTP secret", nil, err,
		)
		return
	}
	utils.Logger.WithField("user_id", user.ID).Info("OTP secret activated")
	utils.RespondWithJSON(w, http.StatusOK, dtos.ValidateOTPResponse{Message: "OTP secret activated"})
}
