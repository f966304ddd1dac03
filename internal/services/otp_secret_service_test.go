package services

import (
	"context"
	"encoding/base32"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/testhelpers"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	"github.com/stretchr/testify/require"
)

const knownSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

type otpFixture struct {
	store *testhelpers.Store
	clock *fakeClock
	svc   *otpSecretService
}

func newOTPFixture() *otpFixture {
	clk := newFakeClock()
	store := testhelpers.NewStore()
	store.Now = clk.Now
	store.AddSite(models.Site{ID: 1, Domain: "roll.social", Name: "roll social network"})

	svc := NewOTPSecretService(store.Users(), store.OTPSecrets(), store.Sites(), newTestConfig()).(*otpSecretService)
	svc.now = clk.Now
	return &otpFixture{store: store, clock: clk, svc: svc}
}

func (f *otpFixture) user(t *testing.T, phone string) *models.User {
	t.Helper()
	u, _, err := f.store.Users().GetOrCreate(context.Background(), phone)
	require.NoError(t, err)
	return u
}

// seedSecret stores knownSecret for the user, optionally activated.
func (f *otpFixture) seedSecret(t *testing.T, user *models.User, active bool) *models.OTPSecret {
	t.Helper()
	ctx := context.Background()
	secret := &models.OTPSecret{UserID: user.ID, Value: knownSecret}
	require.NoError(t, f.store.OTPSecrets().Create(ctx, secret))
	if active {
		require.NoError(t, f.svc.Validate(ctx, secret, true))
	}
	return secret
}

func (f *otpFixture) codeAt(t *testing.T, offset time.Duration) string {
	t.Helper()
	code, err := totp.GenerateCode(knownSecret, f.clock.Now().Add(offset))
	require.NoError(t, err)
	return code
}

// wrongCode returns a code outside the accepted window at the fixture time.
func (f *otpFixture) wrongCode(t *testing.T) string {
	t.Helper()
	accepted := map[string]bool{}
	for _, off := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		accepted[f.codeAt(t, off)] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !accepted[candidate] {
			return candidate
		}
	}
	t.Fatal("no rejected candidate code")
	return ""
}

func TestCreateGeneratesBase32Secret(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)

	secret, err := f.svc.Create(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, secret.Value, 32)
	require.Nil(t, secret.ValidAt)
	require.Equal(t, user.ID, secret.UserID)

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret.Value)
	require.NoError(t, err)
	require.Len(t, raw, otpSecretSize)
}

func TestCreateSecondSecretFails(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, user)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, user)
	require.ErrorIs(t, err, repositories.ErrOTPSecretExists)
}

func TestGetOrCreateReturnsSameRow(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)
	ctx := context.Background()

	first, created, err := f.svc.GetOrCreate(ctx, user)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.svc.GetOrCreate(ctx, user)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Value, second.Value)

	got, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
}

func TestGetReturnsNilWithoutSecret(t *testing.T) {
	f := newOTPFixture()
	got, err := f.svc.Get(context.Background(), f.user(t, testPhone))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestValidateIsIdempotentAndActivates(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)
	ctx := context.Background()

	secret, _, err := f.svc.GetOrCreate(ctx, user)
	require.NoError(t, err)

	has, err := f.svc.PhoneNumberHasValidOTPSecret(ctx, testPhone)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, f.svc.Validate(ctx, secret, true))
	require.NotNil(t, secret.ValidAt)
	first := *secret.ValidAt

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.Validate(ctx, secret, true))
	require.NotNil(t, secret.ValidAt)
	require.True(t, secret.ValidAt.After(first))

	has, err = f.svc.PhoneNumberHasValidOTPSecret(ctx, "+1 555 123 0000")
	require.NoError(t, err)
	require.True(t, has)

	stored, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.True(t, stored.IsActive())
}

func TestValidateWithoutPersistOnlyStampsInMemory(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)
	ctx := context.Background()

	secret, _, err := f.svc.GetOrCreate(ctx, user)
	require.NoError(t, err)
	require.NoError(t, f.svc.Validate(ctx, secret, false))
	require.True(t, secret.IsActive())

	has, err := f.svc.PhoneNumberHasValidOTPSecret(ctx, testPhone)
	require.NoError(t, err)
	require.False(t, has)
}

func TestVerifyUnknownUserReturnsNilWithoutCreating(t *testing.T) {
	f := newOTPFixture()

	got, err := f.svc.Verify(context.Background(), testPhone, "123456")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Zero(t, f.store.UserCount())
}

func TestVerifyUserWithoutSecretReturnsNil(t *testing.T) {
	f := newOTPFixture()
	f.user(t, testPhone)

	got, err := f.svc.Verify(context.Background(), testPhone, "123456")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestVerifyPendingSecretIsRejected(t *testing.T) {
	f := newOTPFixture()
	f.seedSecret(t, f.user(t, testPhone), false)

	got, err := f.svc.Verify(context.Background(), testPhone, f.codeAt(t, 0))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestVerifyActiveSecret(t *testing.T) {
	f := newOTPFixture()
	secret := f.seedSecret(t, f.user(t, testPhone), true)
	ctx := context.Background()

	got, err := f.svc.Verify(ctx, testPhone, f.wrongCode(t))
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = f.svc.Verify(ctx, testPhone, f.codeAt(t, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, secret.ID, got.ID)
}

func TestCheckCodeAllowsOneStepOfSkew(t *testing.T) {
	f := newOTPFixture()
	secret := &models.OTPSecret{Value: knownSecret}

	require.True(t, f.svc.CheckCode(secret, f.codeAt(t, 0)))
	require.True(t, f.svc.CheckCode(secret, f.codeAt(t, -30*time.Second)))
	require.True(t, f.svc.CheckCode(secret, f.codeAt(t, 30*time.Second)))

	stale := f.codeAt(t, -5*time.Minute)
	if stale != f.codeAt(t, 0) && stale != f.codeAt(t, -30*time.Second) && stale != f.codeAt(t, 30*time.Second) {
		require.False(t, f.svc.CheckCode(secret, stale))
	}
	require.False(t, f.svc.CheckCode(secret, "12345"))
}

func TestVerifyInvalidPhone(t *testing.T) {
	f := newOTPFixture()
	_, err := f.svc.Verify(context.Background(), "garbage", "123456")
	require.ErrorIs(t, err, utils.ErrInvalidPhone)
}

func TestProvisioningURIUsesHomeSiteAndPhone(t *testing.T) {
	f := newOTPFixture()
	user := f.user(t, testPhone)
	secret := f.seedSecret(t, user, false)

	uri, err := f.svc.ProvisioningURI(context.Background(), secret)
	require.NoError(t, err)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	require.Equal(t, "totp", key.Type())
	require.Equal(t, "roll social network", key.Issuer())
	require.Equal(t, testPhone, key.AccountName())
	require.Equal(t, knownSecret, key.Secret())
	require.Equal(t, uint64(30), key.Period())
}

func TestProvisioningURIFallsBackToOrganizationName(t *testing.T) {
	clk := newFakeClock()
	store := testhelpers.NewStore()
	store.Now = clk.Now
	svc := NewOTPSecretService(store.Users(), store.OTPSecrets(), store.Sites(), newTestConfig())

	user, _, err := store.Users().GetOrCreate(context.Background(), testPhone)
	require.NoError(t, err)
	secret, err := svc.Create(context.Background(), user)
	require.NoError(t, err)

	uri, err := svc.ProvisioningURI(context.Background(), secret)
	require.NoError(t, err)
	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	require.Equal(t, utils.OrganizationName, key.Issuer())
}

func totpCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, otpValidateOpts)
}
