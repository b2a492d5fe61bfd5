package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffin-tracker/internal/application/correlation"
	"github.com/tiffin-tracker/internal/application/history"
	"github.com/tiffin-tracker/internal/application/ledger"
	"github.com/tiffin-tracker/internal/application/settings"
	"github.com/tiffin-tracker/internal/config"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/infrastructure/memory"
	jwtinfra "github.com/tiffin-tracker/internal/infrastructure/jwt"
)

func newTestRouter(t *testing.T) (http.Handler, *memory.UserRepo, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()

	repo := memory.NewUserRepo()
	u := &domain.User{UserID: "u1", Verified: true}
	e, _ := u.EnsureEntry("2024-01-15", "13:30")
	e.NotificationToken = "tok1"
	repo.Put(u)

	l := ledger.New(repo, 5, log)
	corr := correlation.NewService(l, log)
	router := NewRouter(&config.Config{AllowedOrigins: []string{"*"}}, &Deps{
		Correlation: corr,
		History:     history.NewService(l, corr, log),
		Settings:    settings.NewService(l, log),
		Verifier:    jwtinfra.NewVerifierFromKey(&key.PublicKey),
		Log:         log,
	})
	return router, repo, key
}

func bearer(t *testing.T, key *rsa.PrivateKey, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, &jwtinfra.Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return "Bearer " + s
}

func do(h http.Handler, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.1:4000"
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h, _, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "", "").Code)
}

func TestRouter_RespondIsSingleUse(t *testing.T) {
	h, repo, _ := newTestRouter(t)

	rr := do(h, http.MethodPost, "/api/notifications/respond", `{"token":"tok1","status":"taken"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, http.MethodPost, "/api/dashboard/update-from-notification", `{"token":"tok1","status":"taken"}`, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	u, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTaken, u.Month("2024-01").Entries[0].Status)
}

func TestRouter_DashboardRequiresAuth(t *testing.T) {
	h, _, key := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/dashboard/data", "", "").Code)

	rr := do(h, http.MethodGet, "/api/dashboard/data", "", bearer(t, key, "u1"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"month":"2024-01"`)
}

func TestRouter_SettingsThenDirectUpdate(t *testing.T) {
	h, repo, key := newTestRouter(t)
	auth := bearer(t, key, "u1")

	rr := do(h, http.MethodPut, "/api/dashboard/settings", `{"notification_times":["08:00","20:00"],"timezone":"Asia/Kolkata","price_per_tiffin":55}`, auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"times_per_day":2`)

	rr = do(h, http.MethodPost, "/api/dashboard/update-tiffin", `{"date":"2024-01-15","time":"13:30","status":"skipped","reason":"fasting"}`, auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	u, _ := repo.Get(context.Background(), "u1")
	entry := u.Month("2024-01").Entries[0]
	assert.Equal(t, domain.StatusSkipped, entry.Status)
	assert.Equal(t, "fasting", entry.Reason)
	assert.Empty(t, entry.NotificationToken)

	// The token was consumed by the direct update.
	rr = do(h, http.MethodPost, "/api/notifications/respond", `{"token":"tok1","status":"taken"}`, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_SaveSubscriptionMakesUserEligible(t *testing.T) {
	h, repo, key := newTestRouter(t)
	auth := bearer(t, key, "u1")

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/dashboard/settings", `{"notification_times":["08:00"],"timezone":"UTC"}`, auth).Code)
	rr := do(h, http.MethodPost, "/api/dashboard/save-subscription", `{"endpoint":"https://push.example/1","keys":{"p256dh":"p","auth":"a"}}`, auth)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	users, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "https://push.example/1", users[0].PushSubscription.Endpoint)
}
