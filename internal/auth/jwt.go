package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UID string
	JTI string
	Exp time.Time
}

type TokenProvider interface {
	SignAccess(ctx context.Context, uid string, ttl time.Duration) (token, jti string, exp time.Time, err error)
	ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error)
}

// HSProvider подписывает access-токены HS256. Сессия у клиента одна,
// refresh-ротация здесь не нужна — токен кэшируется в localstore.
type HSProvider struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewHSProvider(secret, issuer, audience string) *HSProvider {
	return &HSProvider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

type customClaims struct {
	jwt.RegisteredClaims
}

func (p *HSProvider) SignAccess(ctx context.Context, uid string, ttl time.Duration) (string, string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   uid,
			Audience:  []string{p.audience},
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.secret)
	return signed, jti, exp, err
}

func (p *HSProvider) ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithAudience(p.audience), jwt.WithIssuer(p.issuer))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return &Claims{UID: cc.Subject, JTI: cc.ID, Exp: cc.ExpiresAt.Time}, nil
}
