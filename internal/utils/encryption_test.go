package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAESGCMRoundTrip(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

	ciphertext, err := Encrypt(testKey(), secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, ciphertext)

	decrypted, err := Decrypt(testKey(), ciphertext)
	require.NoError(t, err)
	require.Equal(t, secret, decrypted)
}

func TestAESGCMNonceIsFresh(t *testing.T) {
	a, err := Encrypt(testKey(), "same")
	require.NoError(t, err)
	b, err := Encrypt(testKey(), "same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestAESGCMInvalidKey(t *testing.T) {
	shortKey := []byte("not-32-bytes")
	_, err := Encrypt(shortKey, "some text")
	require.Error(t, err)

	_, err = Decrypt(shortKey, "some ciphertext")
	require.Error(t, err)
}

func TestAESGCMTamperedCiphertext(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "payload")
	require.NoError(t, err)

	other := testKey()
	other[0] = 0xff
	_, err = Decrypt(other, ciphertext)
	require.Error(t, err)
}

func TestOpenSSLSaltedRoundTrip(t *testing.T) {
	passphrase := []byte("mysecretpass")
	plaintext := "hcp-api-token-value"

	ciphertext, err := EncryptOpenSSLSalted(passphrase, plaintext)
	require.NoError(t, err)

	decrypted, err := DecryptOpenSSLSalted(passphrase, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestOpenSSLSaltedRejectsMissingHeader(t *testing.T) {
	_, err := DecryptOpenSSLSalted([]byte("pass"), "bm90LXNhbHRlZC1kYXRhLWF0LWFsbA==")
	require.Error(t, err)

	_, err = DecryptOpenSSLSalted([]byte("pass"), "")
	require.Error(t, err)
}
