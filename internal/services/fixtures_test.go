package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

const testPhone = "+15551230000"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingGateway keeps every record it was asked to send.
type recordingGateway struct {
	mu   sync.Mutex
	sent []models.VerificationCode
	err  error
}

func (g *recordingGateway) Send(_ context.Context, rec *models.VerificationCode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, *rec)
	return nil
}

func newTestConfig() *config.Config {
	return &config.Config{
		OrganizationName:         config.OrganizationName,
		AppName:                  config.DefaultAppName,
		HomeSiteID:               config.DefaultHomeSiteID,
		TokenExpiry:              config.DefaultTokenExpiry,
		VerificationCodeLength:   config.DefaultVerificationCodeLength,
		VerificationCodeTTL:      config.DefaultVerificationCodeTTL,
		VerificationCodeAttempts: config.DefaultVerificationCodeAttempts,
		SMSLimitPerIPPerHour:     config.DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: config.DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    config.DefaultGlobalSMSLimitPerHour,
		RateLimitWindow:          config.DefaultRateLimitWindow,
	}
}

func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// sequenceCodes hands out the given codes in order, then repeats the last.
func sequenceCodes(codes ...string) func(int) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

type codeFixture struct {
	store   *testhelpers.Store
	clock   *fakeClock
	gateway *recordingGateway
	cfg     *config.Config
	svc     *verificationCodeService
}

func newCodeFixture(codes ...string) *codeFixture {
	clk := newFakeClock()
	store := testhelpers.NewStore()
	store.Now = clk.Now
	gw := &recordingGateway{}
	cfg := newTestConfig()

	svc := NewVerificationCodeService(store.Users(), store.Codes(), gw, cfg).(*verificationCodeService)
	svc.now = clk.Now
	if len(codes) > 0 {
		svc.generateCode = sequenceCodes(codes...)
	}
	return &codeFixture{store: store, clock: clk, gateway: gw, cfg: cfg, svc: svc}
}

func (f *codeFixture) attempts(t *testing.T, rec *models.VerificationCode) int {
	t.Helper()
	got, err := f.store.Codes().GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Attempts
}
