package services

import (
	"errors"
	"fmt"
	"time"

	"spendlens/config"
	"spendlens/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims is the JWT payload for an anonymous analyst session. There
// are no user accounts; a session just scopes one browser's interaction
// with the checklist.
type SessionClaims struct {
	jwt.RegisteredClaims
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionService issues and validates HS256 session tokens
type SessionService struct {
	secret []byte
	ttl    time.Duration
	log    logger.Logger
}

func NewSessionService(config config.Config) *SessionService {
	ttl := time.Duration(config.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &SessionService{
		secret: []byte(config.SessionSecret),
		ttl:    ttl,
		log:    logger.New("sessionService"),
	}
}

// Issue creates a new session token
func (s *SessionService) Issue() (Session, error) {
	log := s.log.Function("Issue")

	sessionID := uuid.New()
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "spendlens",
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, log.Err("failed to sign session token", err)
	}

	log.Debug("Session issued", "sessionID", sessionID)

	return Session{
		ID:        sessionID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate parses and verifies a session token, returning the session id
func (s *SessionService) Validate(tokenString string) (uuid.UUID, error) {
	log := s.log.Function("Validate")

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer("spendlens"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		log.Debug("Session token rejected", "error", err.Error())
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return sessionID, nil
}
