package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NotificationBytes is the entropy of a reminder token.
const NotificationBytes = 16

// NewNotificationToken generates a cryptographically random 32-character hex token.
func NewNotificationToken() (string, error) {
	b := make([]byte, NotificationBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate notification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
