// Package gateways delivers verification codes to phone numbers. A single
// gateway is selected at startup from configuration; see SelectGateway.
package gateways

import (
	"context"
	"fmt"

	"github.com/roll-social-network/roll-social-network/internal/models"
)

// Gateway sends a freshly issued verification code to its owner's phone.
// Delivery failures are returned to the caller as is; gateways never retry.
type Gateway interface {
	Send(ctx context.Context, rec *models.VerificationCode) error
}

// BuildMessageBody renders the default SMS text for a code.
func BuildMessageBody(rec *models.VerificationCode) string {
	return fmt.Sprintf("your verification code is %s", rec.Code)
}
