package gateways

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const TwilioKey = "twilio"

// messageCreator is the slice of the Twilio REST client the gateway calls.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioGateway submits codes through a Twilio Messaging Service, which
// picks the sender number.
type TwilioGateway struct {
	messages            messageCreator
	messagingServiceSid string
}

// NewTwilioGateway authenticates with an API key pair scoped to accountSid.
func NewTwilioGateway(apiKey, apiSecret, accountSid, messagingServiceSid string) *TwilioGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   apiKey,
		Password:   apiSecret,
		AccountSid: accountSid,
	})
	return &TwilioGateway{
		messages:            client.Api,
		messagingServiceSid: messagingServiceSid,
	}
}

// args: api_key, api_secret, account_sid, messaging_service_sid
func newTwilioGateway(args []string) (Gateway, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf(
			"%w: twilio expects api_key, api_secret, account_sid, messaging_service_sid (got %d values)",
			ErrInvalidGatewayArgs, len(args),
		)
	}
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("%w: twilio argument %d is empty", ErrInvalidGatewayArgs, i+1)
		}
	}
	return NewTwilioGateway(args[0], args[1], args[2], args[3]), nil
}

func (g *TwilioGateway) Send(ctx context.Context, rec *models.VerificationCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(rec.PhoneNumber)
	params.SetMessagingServiceSid(g.messagingServiceSid)
	params.SetBody(BuildMessageBody(rec))

	msg, err := g.messages.CreateMessage(params)
	if err != nil {
		entry := utils.Logger.WithError(err).WithField("user_id", rec.UserID)
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			entry = entry.WithField("twilio_code", restErr.Code).WithField("twilio_status", restErr.Status)
		}
		entry.Errorf("Failed to send verification SMS to %s via Twilio", rec.PhoneNumber)
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, err)
	}

	if msg != nil && msg.Sid != nil {
		utils.Logger.Debugf("Twilio accepted verification SMS %s for user %s", *msg.Sid, rec.UserID)
	}
	return nil
}
