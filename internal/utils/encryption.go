package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var errKeySize = errors.New("encryption key must be 32 bytes for AES-256")

// ------------------------------------------
// AES-256-GCM, used for OTP secrets at rest.
// Layout: base64url(nonce(12) || ciphertext || tag(16))
// ------------------------------------------

// Encrypt seals text with AES-256-GCM under a 32 byte key.
func Encrypt(encryptionKey []byte, text string) (string, error) {
	gcm, err := newGCM(encryptionKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(text), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(encryptionKey []byte, encoded string) (string, error) {
	gcm, err := newGCM(encryptionKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("malformed ciphertext (too short for nonce)")
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, errKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ---------------------------------------------
// OpenSSL "Salted__" format (AES-256-CBC + PBKDF2-SHA256, 10k iterations),
// matching `openssl enc -aes-256-cbc -pbkdf2 -salt -base64`. Used for the
// HCP API token baked into deployments.
// ---------------------------------------------

const (
	opensslMagic      = "Salted__"
	opensslIterations = 10000
)

// EncryptOpenSSLSalted produces std-base64("Salted__" || salt(8) || ciphertext).
func EncryptOpenSSLSalted(passphrase []byte, text string) (string, error) {
	if len(passphrase) == 0 {
		return "", errors.New("passphrase cannot be empty")
	}

	salt := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	block, iv, err := opensslCipher(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext := []byte(text)
	pad := block.BlockSize() - len(plaintext)%block.BlockSize()
	plaintext = append(plaintext, bytes.Repeat([]byte{byte(pad)}, pad)...)

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	out := append([]byte(opensslMagic), salt...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptOpenSSLSalted reverses EncryptOpenSSLSalted (or the openssl CLI).
func DecryptOpenSSLSalted(passphrase []byte, b64Cipher string) (string, error) {
	if len(passphrase) == 0 {
		return "", errors.New("passphrase cannot be empty")
	}
	if b64Cipher == "" {
		return "", errors.New("ciphertext cannot be empty")
	}

	raw, err := base64.StdEncoding.DecodeString(b64Cipher)
	if err != nil {
		return "", err
	}
	if len(raw) < 16 || string(raw[:8]) != opensslMagic {
		return "", errors.New("data does not begin with 'Salted__' and a salt")
	}
	ciphertext := raw[16:]
	if len(ciphertext) == 0 {
		return "", errors.New("no ciphertext data")
	}

	block, iv, err := opensslCipher(passphrase, raw[8:16])
	if err != nil {
		return "", err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return "", errors.New("ciphertext not multiple of block size")
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	pad := int(plaintext[len(plaintext)-1])
	if pad < 1 || pad > block.BlockSize() {
		return "", errors.New("invalid padding length")
	}
	return string(plaintext[:len(plaintext)-pad]), nil
}

func opensslCipher(passphrase, salt []byte) (cipher.Block, []byte, error) {
	derived := pbkdf2.Key(passphrase, salt, opensslIterations, 48, sha256.New)
	block, err := aes.NewCipher(derived[:32])
	if err != nil {
		return nil, nil, err
	}
	return block, derived[32:], nil
}
