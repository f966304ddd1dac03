package gateways

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	"github.com/stretchr/testify/require"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessageCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM00000000000000000000000000000000"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioGatewaySendUsesMessagingService(t *testing.T) {
	fake := &fakeMessageCreator{}
	gw := &TwilioGateway{messages: fake, messagingServiceSid: "MG123"}

	rec := &models.VerificationCode{UserID: uuid.New(), Code: "9034", PhoneNumber: "+5511980706050"}
	require.NoError(t, gw.Send(context.Background(), rec))

	require.Len(t, fake.params, 1)
	p := fake.params[0]
	require.Equal(t, "+5511980706050", *p.To)
	require.Equal(t, "MG123", *p.MessagingServiceSid)
	require.Equal(t, "your verification code is 9034", *p.Body)
	require.Nil(t, p.From)
}

func TestTwilioGatewayPropagatesCarrierFailure(t *testing.T) {
	fake := &fakeMessageCreator{err: &twilioclient.TwilioRestError{Code: 21211, Status: 400, Message: "Invalid 'To' Phone Number"}}
	gw := &TwilioGateway{messages: fake, messagingServiceSid: "MG123"}

	err := gw.Send(context.Background(), &models.VerificationCode{Code: "1", PhoneNumber: "+15551230000"})
	require.Error(t, err)
	require.True(t, errors.Is(err, utils.ErrExternalServiceFailure))
}

func TestTwilioGatewayHonoursCancelledContext(t *testing.T) {
	fake := &fakeMessageCreator{}
	gw := &TwilioGateway{messages: fake, messagingServiceSid: "MG123"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, gw.Send(ctx, &models.VerificationCode{Code: "1"}), context.Canceled)
	require.Empty(t, fake.params)
}
