// Package identity issues and verifies bearer tokens, hashes passwords and
// runs the Google sign-in exchange.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that cannot be trusted
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the principal. Older clients send userId/type instead of
// id/role, so both spellings are accepted on the way in.
type Claims struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for p
func (i *Issuer) Issue(p models.Principal) (string, error) {
	now := i.now()
	claims := Claims{
		ID:   p.ID.String(),
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns the principal it names
func (i *Issuer) Verify(raw string) (*models.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	idStr := claims.ID
	if idStr == "" {
		idStr = claims.UserID
	}
	roleStr := claims.Role
	if roleStr == "" {
		roleStr = claims.Type
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role := models.Role(roleStr)
	if !role.Valid() {
		return nil, ErrInvalidToken
	}
	return &models.Principal{ID: id, Role: role}, nil
}
