package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/commission-scheduler/internal/config"
)

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator issues operator tokens for the admin console
type Authenticator struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	log          *logrus.Logger
	now          Clock
}

// NewAuthenticator initializes an authenticator from configuration
func NewAuthenticator(cfg *config.Config, log *logrus.Logger) *Authenticator {
	return &Authenticator{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
		secret:       []byte(cfg.JWTSecret),
		ttl:          cfg.TokenTTL,
		log:          log,
		now:          time.Now,
	}
}

// Login verifies operator credentials and returns a signed JWT
func (a *Authenticator) Login(username, password string) (string, error) {
	if len(a.passwordHash) == 0 || username != a.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	a.log.Infof("Operator logged in: %s", username)
	return tokenString, nil
}
