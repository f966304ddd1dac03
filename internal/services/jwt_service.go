package services

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/middleware"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

// ---------------------------------------------------------------------
// JWTService interface
// ---------------------------------------------------------------------

type JWTService interface {
	GenerateAccessToken(
		ctx context.Context,
		subjectID uuid.UUID,
		clientIdentifier utils.ClientIdentifier,
		tokenExpiry time.Duration,
	) (string, error)
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type jwtService struct {
	privateKey *rsa.PrivateKey
	now        func() time.Time
}

func NewJWTService(cfg *config.Config) JWTService {
	return &jwtService{privateKey: cfg.RSAPrivateKey, now: time.Now}
}

// GenerateAccessToken signs an RS256 token for subjectID, bound to the
// caller's IP (web) or device ID (mobile).
func (j *jwtService) GenerateAccessToken(
	_ context.Context,
	subjectID uuid.UUID,
	clientIdentifier utils.ClientIdentifier,
	tokenExpiry time.Duration,
) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"iss": middleware.TokenIssuer,
		"sub": subjectID.String(),
		"exp": now.Add(tokenExpiry).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}

	switch clientIdentifier.Type {
	case utils.ClientIDTypeIP:
		claims["ip"] = clientIdentifier.Value
	case utils.ClientIDTypeDeviceID:
		claims["device_id"] = clientIdentifier.Value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}
