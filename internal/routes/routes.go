package routes

const (
	Health  = "/health"
	Metrics = "/metrics"

	PhoneLoginMethods = "/auth/v1/phone/login_methods"
	PhoneRequestCode  = "/auth/v1/phone/request_code"
	PhoneVerifyCode   = "/auth/v1/phone/verify_code"
	PhoneVerifyOTP    = "/auth/v1/phone/verify_otp"

	OTPSecret   = "/auth/v1/otp/secret"
	OTPValidate = "/auth/v1/otp/validate"
)
