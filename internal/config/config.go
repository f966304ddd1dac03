package config

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/roll-social-network/roll-social-network/internal/gateways"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// Config holds all application configuration, including secrets and the
// startup LaunchDarkly flags.
type Config struct {
	OrganizationName string
	AppName          string
	Env              string
	AppPort          string
	AppUrl           string
	DBUrl            string
	DBEncryptionKey  []byte
	RSAPrivateKey    *rsa.PrivateKey
	RSAPublicKey     *rsa.PublicKey
	HomeSiteID       int
	TokenExpiry      time.Duration

	VerificationCodeLength   int
	VerificationCodeTTL      time.Duration
	VerificationCodeAttempts int
	SMSGateway               string
	SMSGatewayArgs           []string

	SMSLimitPerIPPerHour     int
	SMSLimitPerNumberPerHour int
	GlobalSMSLimitPerHour    int
	RateLimitWindow          time.Duration

	// Static flags fetched once from LaunchDarkly
	LDFlag_ShortTokenTTL    bool
	LDFlag_CORSHighSecurity bool
}

const (
	OrganizationName                = utils.OrganizationName
	DefaultAppName                  = "phone-auth-service"
	DefaultHomeSiteID               = 1
	DefaultVerificationCodeLength   = 4
	DefaultVerificationCodeTTL      = 60 * time.Minute
	DefaultVerificationCodeAttempts = 3
	DefaultSMSGateway               = gateways.LoggerKey
	MaxVerificationCodeLength       = 8
	DefaultTokenExpiry              = 24 * time.Hour
	TestShortTokenExpiry            = 2 * time.Second
	TestShortVerificationCodeTTL    = 30 * time.Second
	LDConnectionTimeout             = 5 * time.Second
	DefaultSMSLimitPerIPPerHour     = 20
	DefaultSMSLimitPerNumberPerHour = 5
	DefaultGlobalSMSLimitPerHour    = 1000
	DefaultRateLimitWindow          = 1 * time.Hour
)

// Global compile-time overrides.
var (
	AppName             string
	LDServerContextKey  string
	LDServerContextKind string
)

// lookupFunc resolves a setting by name. Secrets from HCP take precedence
// over the process environment.
type lookupFunc func(name string) string

// LoadConfig reads .env (if any), HCP secrets (if configured), the
// environment and LaunchDarkly, and returns a *Config. Any problem is fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Logger.WithError(err).Warn("Failed to read .env file")
	}

	appName := AppName
	if appName == "" {
		appName = DefaultAppName
	}
	utils.Logger.Info("Loading config for app: ", appName)

	secrets := map[string]string{}
	client, err := utils.NewHCPSecretsClient()
	switch {
	case errors.Is(err, utils.ErrHCPNotConfigured):
		utils.Logger.Info("HCP not configured; reading secrets from the environment")
	case err != nil:
		utils.Logger.WithError(err).Fatal("Failed to initialize HCPSecretsClient")
	default:
		hcpAppName := fmt.Sprintf("%s-%s", appName, os.Getenv("ENV"))
		utils.Logger.Debugf("Fetching app-specific secrets from HCP for %s", hcpAppName)
		secrets, err = client.GetHCPSecretsFromSecretsJSON(context.Background(), hcpAppName)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to fetch app-specific secrets from HCP")
		}
	}

	lookup := func(name string) string {
		if v, ok := secrets[name]; ok && v != "" {
			return v
		}
		return os.Getenv(name)
	}

	cfg, err := buildConfig(appName, lookup)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Invalid configuration")
	}

	if sdkKey := lookup("LD_SDK_KEY"); sdkKey != "" {
		flags, err := fetchLDFlags(sdkKey)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to fetch LaunchDarkly flags")
		}
		cfg.applyFlags(flags)
	} else {
		utils.Logger.Info("LD_SDK_KEY not set; using default flag values")
	}

	if _, err := gateways.SelectGateway(cfg.SMSGateway, cfg.SMSGatewayArgs); err != nil {
		utils.Logger.WithError(err).Fatalf("invalid phone auth gateway '%s'", cfg.SMSGateway)
	}
	return cfg
}

// buildConfig parses and validates everything that does not need a network.
func buildConfig(appName string, lookup lookupFunc) (*Config, error) {
	cfg := &Config{
		OrganizationName:         OrganizationName,
		AppName:                  appName,
		Env:                      lookup("ENV"),
		AppPort:                  lookup("APP_PORT"),
		AppUrl:                   lookup("APP_URL_FROM_ANYWHERE"),
		DBUrl:                    lookup("DB_URL"),
		SMSGateway:               DefaultSMSGateway,
		SMSGatewayArgs:           ParseGatewayArgs(lookup("PHONE_AUTH_SMS_GATEWAY_ARGS")),
		TokenExpiry:              DefaultTokenExpiry,
		SMSLimitPerIPPerHour:     DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    DefaultGlobalSMSLimitPerHour,
		RateLimitWindow:          DefaultRateLimitWindow,
	}

	for name, v := range map[string]string{
		"ENV":                   cfg.Env,
		"APP_PORT":              cfg.AppPort,
		"APP_URL_FROM_ANYWHERE": cfg.AppUrl,
		"DB_URL":                cfg.DBUrl,
	} {
		if v == "" {
			return nil, fmt.Errorf("%s is missing", name)
		}
	}

	if gw := lookup("PHONE_AUTH_SMS_GATEWAY"); gw != "" {
		cfg.SMSGateway = gw
	}

	var err error
	if cfg.HomeSiteID, err = intSetting(lookup, "HOME_SITE_ID", DefaultHomeSiteID); err != nil {
		return nil, err
	}
	if cfg.VerificationCodeLength, err = intSetting(lookup, "PHONE_AUTH_VALIDATION_CODE_LENGTH", DefaultVerificationCodeLength); err != nil {
		return nil, err
	}
	if cfg.VerificationCodeLength < 1 || cfg.VerificationCodeLength > MaxVerificationCodeLength {
		return nil, fmt.Errorf("PHONE_AUTH_VALIDATION_CODE_LENGTH must be between 1 and %d", MaxVerificationCodeLength)
	}
	ttlMinutes, err := intSetting(lookup, "PHONE_AUTH_VALIDATION_CODE_TTL", int(DefaultVerificationCodeTTL/time.Minute))
	if err != nil {
		return nil, err
	}
	if ttlMinutes < 1 {
		return nil, errors.New("PHONE_AUTH_VALIDATION_CODE_TTL must be at least 1 minute")
	}
	cfg.VerificationCodeTTL = time.Duration(ttlMinutes) * time.Minute
	if cfg.VerificationCodeAttempts, err = intSetting(lookup, "PHONE_AUTH_VALIDATION_CODE_ATTEMPTS", DefaultVerificationCodeAttempts); err != nil {
		return nil, err
	}
	if cfg.VerificationCodeAttempts < 1 {
		return nil, errors.New("PHONE_AUTH_VALIDATION_CODE_ATTEMPTS must be positive")
	}
	if cfg.SMSLimitPerIPPerHour, err = intSetting(lookup, "SMS_LIMIT_PER_IP_PER_HOUR", DefaultSMSLimitPerIPPerHour); err != nil {
		return nil, err
	}
	if cfg.SMSLimitPerNumberPerHour, err = intSetting(lookup, "SMS_LIMIT_PER_NUMBER_PER_HOUR", DefaultSMSLimitPerNumberPerHour); err != nil {
		return nil, err
	}
	if cfg.GlobalSMSLimitPerHour, err = intSetting(lookup, "GLOBAL_SMS_LIMIT_PER_HOUR", DefaultGlobalSMSLimitPerHour); err != nil {
		return nil, err
	}

	//----------------------------------------------------------------------
	// Secrets
	//----------------------------------------------------------------------
	cfg.DBEncryptionKey, err = base64.StdEncoding.DecodeString(lookup("DB_ENCRYPTION_KEY_BASE64"))
	if err != nil {
		return nil, fmt.Errorf("decoding DB_ENCRYPTION_KEY_BASE64: %w", err)
	}
	if len(cfg.DBEncryptionKey) != 32 {
		return nil, errors.New("DB_ENCRYPTION_KEY_BASE64 must decode to 32 bytes for AES-256 encryption")
	}

	privateKeyPEM, err := decodeBase64Setting(lookup, "RSA_PRIVATE_KEY_BASE64")
	if err != nil {
		return nil, err
	}
	if cfg.RSAPrivateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM); err != nil {
		return nil, fmt.Errorf("parsing RSA private key: %w", err)
	}
	publicKeyPEM, err := decodeBase64Setting(lookup, "RSA_PUBLIC_KEY_BASE64")
	if err != nil {
		return nil, err
	}
	if cfg.RSAPublicKey, err = jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err != nil {
		return nil, fmt.Errorf("parsing RSA public key: %w", err)
	}

	return cfg, nil
}

// ParseGatewayArgs splits PHONE_AUTH_SMS_GATEWAY_ARGS on commas. Blank input
// yields no arguments.
func ParseGatewayArgs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func intSetting(lookup lookupFunc, name string, def int) (int, error) {
	raw := strings.TrimSpace(lookup(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}

func decodeBase64Setting(lookup lookupFunc, name string) ([]byte, error) {
	raw := lookup(name)
	if raw == "" {
		return nil, fmt.Errorf("%s is missing", name)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return decoded, nil
}

// ldFlags are the LaunchDarkly values read once at startup.
type ldFlags struct {
	SMSGateway       string
	ShortTokenTTL    bool
	CORSHighSecurity bool
}

func fetchLDFlags(sdkKey string) (ldFlags, error) {
	var flags ldFlags

	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		return flags, fmt.Errorf("creating LaunchDarkly client: %w", err)
	}
	defer ldClient.Close()
	if !ldClient.Initialized() {
		return flags, errors.New("LaunchDarkly client failed to initialize")
	}

	kind, key := LDServerContextKind, LDServerContextKey
	if kind == "" {
		kind = "service"
	}
	if key == "" {
		key = DefaultAppName
	}
	ldCtx := ldcontext.NewWithKind(ldcontext.Kind(kind), key)

	if flags.SMSGateway, err = ldClient.StringVariation("phone_auth_sms_gateway", ldCtx, ""); err != nil {
		return flags, fmt.Errorf("phone_auth_sms_gateway flag: %w", err)
	}
	if flags.ShortTokenTTL, err = ldClient.BoolVariation("short_token_ttl", ldCtx, false); err != nil {
		return flags, fmt.Errorf("short_token_ttl flag: %w", err)
	}
	if flags.CORSHighSecurity, err = ldClient.BoolVariation("cors_high_security", ldCtx, false); err != nil {
		return flags, fmt.Errorf("cors_high_security flag: %w", err)
	}
	utils.Logger.Debugf("LaunchDarkly flags: %+v", flags)
	return flags, nil
}

func (c *Config) applyFlags(f ldFlags) {
	if f.SMSGateway != "" {
		c.SMSGateway = f.SMSGateway
	}
	c.LDFlag_ShortTokenTTL = f.ShortTokenTTL
	c.LDFlag_CORSHighSecurity = f.CORSHighSecurity
	if f.ShortTokenTTL {
		c.TokenExpiry = TestShortTokenExpiry
		c.VerificationCodeTTL = TestShortVerificationCodeTTL
	}
}
