package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPhoneAuthBackend(t *testing.T) {
	f := newCodeFixture("4821")
	ctx := context.Background()
	backend := NewPhoneAuthBackend(f.svc, f.store.Users())

	rec, err := f.svc.Request(ctx, testPhone)
	require.NoError(t, err)

	user, err := backend.Authenticate(ctx, testPhone, "0000")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = backend.Authenticate(ctx, testPhone, "4821")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, rec.UserID, user.ID)

	got, err := backend.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, testPhone, got.PhoneNumber)

	missing, err := backend.GetUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPhoneAuthOTPBackend(t *testing.T) {
	f := newOTPFixture()
	ctx := context.Background()
	backend := NewPhoneAuthOTPBackend(f.svc, f.store.Users())

	owner := f.user(t, testPhone)
	f.seedSecret(t, owner, true)

	user, err := backend.Authenticate(ctx, testPhone, f.wrongCode(t))
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = backend.Authenticate(ctx, testPhone, f.codeAt(t, 0))
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, owner.ID, user.ID)

	got, err := backend.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, owner.ID, got.ID)
}

func TestBackendsSatisfyAuthBackend(t *testing.T) {
	var _ AuthBackend = (*PhoneAuthBackend)(nil)
	var _ AuthBackend = (*PhoneAuthOTPBackend)(nil)
}
