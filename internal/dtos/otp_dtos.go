package dtos

type OTPSecretResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Created         bool   `json:"created"`
}

type ValidateOTPRequest struct {
	OTPCode string `json:"otp_code" validate:"required,len=6,numeric"`
}

type ValidateOTPResponse struct {
	Message string `json:"message"`
}
