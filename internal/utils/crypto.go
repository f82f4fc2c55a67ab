package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/nacl/secretbox"
)

const passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789!@#$%"

// GenerateSecurePassword generates a secure random password.
func GenerateSecurePassword(length int) (string, error) {
	result := make([]byte, length)
	maxVal := big.NewInt(int64(len(passwordChars)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, maxVal)
		if err != nil {
			return "", err
		}
		result[i] = passwordChars[n.Int64()]
	}

	return string(result), nil
}

// GenerateUUID returns a v4 UUID string, as §6 requires for run_uuid.
func GenerateUUID() string {
	return uuid.NewString()
}

// HashPassword bcrypt-hashes a user password (users.password_hash, §6).
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword verifies a plaintext password against its bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// secretboxKey derives a 32-byte key from an arbitrary-length secret via
// SHA-256, so operators can supply EMAIL_ENCRYPTION_KEY as any string.
func secretboxKey(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// EncryptAtRest seals plaintext (a monitor password or OAuth refresh token,
// §6 "auth material") with EMAIL_ENCRYPTION_KEY using NaCl secretbox, and
// returns a base64 string safe to store in a text column.
func EncryptAtRest(secretKey, plaintext string) (string, error) {
	if secretKey == "" {
		return "", errors.New("missing encryption key")
	}
	key := secretboxKey(secretKey)

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptAtRest is the inverse of EncryptAtRest. It is only invoked at
// mailbox connect time (§6), never held decrypted in memory longer than a
// single check run.
func DecryptAtRest(secretKey, ciphertextB64 string) (string, error) {
	if secretKey == "" {
		return "", errors.New("missing encryption key")
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", errors.New("malformed ciphertext")
	}
	if len(raw) < 24 {
		return "", errors.New("ciphertext too short")
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	key := secretboxKey(secretKey)

	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &key)
	if !ok {
		return "", errors.New("decryption failed")
	}
	return string(plain), nil
}
