package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// ResetTokenPrefix tags reset tokens so they are recognizable in logs and stores.
	ResetTokenPrefix = "RST-"

	resetTokenEntropyBytes = 32
)

// GenerateResetToken returns a single-use reset token of the form RST-<64 hex chars>.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return ResetTokenPrefix + hex.EncodeToString(buf), nil
}

// IsResetTokenShape reports whether the value looks like a token this service issued.
func IsResetTokenShape(value string) bool {
	if !strings.HasPrefix(value, ResetTokenPrefix) {
		return false
	}
	rest := strings.TrimPrefix(value, ResetTokenPrefix)
	if len(rest) != resetTokenEntropyBytes*2 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

// GenerateNumericCode returns a random numeric string of the given length.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	digits := make([]byte, length)
	for i, b := range buf {
		digits[i] = '0' + (b % 10)
	}

	return string(digits), nil
}
