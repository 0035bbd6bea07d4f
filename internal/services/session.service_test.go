package services

import (
	"testing"
	"time"

	"spendlens/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService() *SessionService {
	return NewSessionService(config.Config{
		SessionSecret:     "test-secret",
		SessionTTLMinutes: 60,
	})
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	service := newTestSessionService()

	session, err := service.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	sessionID, err := service.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sessionID)
}

func TestValidateRejectsGarbage(t *testing.T) {
	service := newTestSessionService()

	_, err := service.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.Validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := newTestSessionService()
	session, err := issuer.Issue()
	require.NoError(t, err)

	other := NewSessionService(config.Config{
		SessionSecret:     "different-secret",
		SessionTTLMinutes: 60,
	})
	_, err = other.Validate(session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	service := newTestSessionService()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "spendlens",
			Subject:   uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	service := newTestSessionService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:  "spendlens",
		Subject: uuid.New().String(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
