package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "lights-mirror"
	defaultTokenTTL = 24 * time.Hour
	// MaxSubscriberLen - предел длины идентификатора (он пишется в запись трафика одним байтом длины).
	MaxSubscriberLen = 255
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator превращает токен из HELLO в идентификатор подписчика.
// Без секрета работает dev-режим: токен и есть идентификатор, пустой - случайный uuid.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
}

// DevMode - секрет не задан, подпись не проверяется.
func (a *Authenticator) DevMode() bool {
	return len(a.secret) == 0
}

// Issue подписывает токен для подписчика (HS256).
func (a *Authenticator) Issue(sub domain.SubscriberID) (string, error) {
	if a.DevMode() {
		return string(sub), nil
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   string(sub),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Identify проверяет токен и возвращает подписчика.
func (a *Authenticator) Identify(token string) (domain.SubscriberID, error) {
	token = strings.TrimSpace(token)
	if a.DevMode() {
		if token == "" {
			return domain.SubscriberID(utils.GenerateID()), nil
		}
		if len(token) > MaxSubscriberLen {
			return "", fmt.Errorf("%w: subscriber id too long", ErrInvalidToken)
		}
		return domain.SubscriberID(token), nil
	}
	if token == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if len(claims.Subject) > MaxSubscriberLen {
		return "", fmt.Errorf("%w: subject too long", ErrInvalidToken)
	}
	return domain.SubscriberID(claims.Subject), nil
}
