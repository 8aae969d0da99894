package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the access token claims. The subject is the party id.
type Claims struct {
	Role  domain.Role `json:"role"`
	Phone string      `json:"phone"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the identity handed to services.
func (c *Claims) Caller() domain.Caller {
	return domain.Caller{PartyID: c.Subject, Role: c.Role}
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer; the secret must not be empty.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs an access token for p and returns it with its lifetime.
func (i *Issuer) Issue(p domain.Party) (string, time.Duration, error) {
	now := i.now()
	claims := Claims{
		Role:  p.Role,
		Phone: p.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, i.ttl, nil
}

// Parse verifies the signature and expiry of a token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify parses token and returns its caller.
func (i *Issuer) Verify(token string) (domain.Caller, error) {
	claims, err := i.Parse(token)
	if err != nil {
		return domain.Caller{}, err
	}
	return claims.Caller(), nil
}
