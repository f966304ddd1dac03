package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/dtos"
	"github.com/roll-social-network/roll-social-network/internal/services"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

type PhoneAuthController struct {
	loginService       services.PhoneLoginService
	loginMethodService services.LoginMethodService
	cfg                *config.Config
}

func NewPhoneAuthController(
	loginService services.PhoneLoginService,
	loginMethodService services.LoginMethodService,
	cfg *config.Config,
) *PhoneAuthController {
	return &PhoneAuthController{
		loginService:       loginService,
		loginMethodService: loginMethodService,
		cfg:                cfg,
	}
}

// decodeAndValidate writes the 400 itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", err.Error(),
		)
		return false
	}
	return true
}

// ---------------------------------------------------------------------
// POST /auth/v1/phone/login_methods
// ---------------------------------------------------------------------
func (c *PhoneAuthController) LoginMethods(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginMethodsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	normalized, err := utils.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		respondServiceError(w, err, "Failed to resolve login methods")
		return
	}
	methods, err := c.loginMethodService.AvailableMethods(r.Context(), normalized)
	if err != nil {
		respondServiceError(w, err, "Failed to resolve login methods")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginMethodsResponse{
		PhoneNumber: normalized,
		Methods:     methods,
	})
}

// ---------------------------------------------------------------------
// POST /auth/v1/phone/request_code
// ---------------------------------------------------------------------
func (c *PhoneAuthController) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req dtos.RequestCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	platform := utils.GetClientPlatform(r)
	clientID := utils.GetClientIdentifier(r, platform)

	if err := c.loginService.RequestCode(r.Context(), req.PhoneNumber, clientID); err != nil {
		respondServiceError(w, err, "Failed to send verification code")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.RequestCodeResponse{Message: "Verification code sent"})
}

// ---------------------------------------------------------------------
// POST /auth/v1/phone/verify_code
// ---------------------------------------------------------------------
func (c *PhoneAuthController) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c.login(w, r, services.LoginMethodVerificationCode, req.PhoneNumber, req.Code)
}

// ---------------------------------------------------------------------
// POST /auth/v1/phone/verify_otp
// ---------------------------------------------------------------------
func (c *PhoneAuthController) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c.login(w, r, services.LoginMethodOTPCode, req.PhoneNumber, req.OTPCode)
}

func (c *PhoneAuthController) login(w http.ResponseWriter, r *http.Request, method, phoneNumber, credential string) {
	platform := utils.GetClientPlatform(r)
	clientID := utils.GetClientIdentifier(r, platform)

	user, token, err := c.loginService.Login(r.Context(), method, phoneNumber, credential, clientID)
	if err != nil {
		respondServiceError(w, err, "Login failed")
		return
	}

	resp := dtos.LoginResponse{User: toUserDTO(user)}
	if utils.IsMobile(platform) {
		resp.AccessToken = token
	} else {
		setAccessTokenCookie(w, token, int(c.cfg.TokenExpiry.Seconds()))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
