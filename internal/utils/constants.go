package utils

const (
	OrganizationName                      = "Roll Social Network"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"
)
