package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffin-tracker/internal/config"
)

func sign(t *testing.T, key *rsa.PrivateKey, userID string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestNewVerifier_FromPEMFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	v, err := NewVerifier(&config.Config{JWTPublicKeyPath: path})
	require.NoError(t, err)

	claims, err := v.Verify(sign(t, key, "u1", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestNewVerifier_MissingFile(t *testing.T) {
	_, err := NewVerifier(&config.Config{JWTPublicKeyPath: filepath.Join(t.TempDir(), "nope.pem")})
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewVerifierFromKey(&key.PublicKey)

	_, err = v.Verify(sign(t, key, "u1", time.Now().Add(-time.Hour)))
	assert.Error(t, err, "expired")
	_, err = v.Verify(sign(t, other, "u1", time.Now().Add(time.Hour)))
	assert.Error(t, err, "wrong key")
	_, err = v.Verify(sign(t, key, "", time.Now().Add(time.Hour)))
	assert.Error(t, err, "no user")
	_, err = v.Verify("garbage")
	assert.Error(t, err)
}
