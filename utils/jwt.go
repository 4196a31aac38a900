package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims carries the account id in the subject. Role is informational
// only; authorization always re-reads the stored role.
type SessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer using now as its time source.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue mints a signed session token for the account.
func (i *TokenIssuer) Issue(accountID uuid.UUID, role string) (string, *SessionClaims, error) {
	now := i.now()
	claims := &SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies signature, issuer and expiry.
func (i *TokenIssuer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
