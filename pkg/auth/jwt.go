package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatewise/checkin/internal/domain"
)

// Claims carries the staff identity this service consumes. Token issuance
// lives elsewhere; we only verify and extract.
type Claims struct {
	Sub   int64  `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// QRClaims is the payload of a legacy signed multi-guest QR token.
type QRClaims struct {
	Guest  *domain.GuestRef  `json:"guest,omitempty"`
	Guests []domain.GuestRef `json:"guests,omitempty"`
	jwt.RegisteredClaims
}

// ParseLegacyQR verifies the signature only. Expiry is deliberately left to
// the policy suite: a token with no exp claim is valid forever, and the
// boundary semantics (exactly-at-expiry is expired) are decided there, not
// by the JWT library.
func ParseLegacyQR(tokenString, secret string) (*QRClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	tok, err := parser.ParseWithClaims(tokenString, &QRClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*QRClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// TokenExpiry extracts the exp claim as a time, or nil when absent.
func (c *QRClaims) TokenExpiry() *time.Time {
	if c.ExpiresAt == nil {
		return nil
	}
	t := c.ExpiresAt.Time
	return &t
}

// GuestRefs flattens single- and multi-guest token payloads.
func (c *QRClaims) GuestRefs() []domain.GuestRef {
	if len(c.Guests) > 0 {
		return c.Guests
	}
	if c.Guest != nil {
		return []domain.GuestRef{*c.Guest}
	}
	return nil
}
