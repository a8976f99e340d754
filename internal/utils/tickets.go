package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ticket purposes for the password recovery pages.
const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
)

var ErrInvalidTicket = errors.New("invalid or expired ticket")

type TicketClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TicketIssuer signs short-lived HS256 tickets that carry an email between
// the forgot, verify and reset forms.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TicketIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TicketIssuer) Issue(email, purpose string) (string, error) {
	now := t.now()
	claims := TicketClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// Parse returns the email of a valid ticket issued for purpose.
func (t *TicketIssuer) Parse(token, purpose string) (string, error) {
	claims := &TicketClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidTicket
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrInvalidTicket
	}
	return claims.Subject, nil
}
