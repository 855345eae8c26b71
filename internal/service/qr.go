package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

var (
	ErrInvalidQRCode = errors.New("invalid ticket QR code")
	ErrQRCodeExpired = errors.New("ticket QR code expired")
)

// QRClaims is the payload encoded in a ticket QR code
type QRClaims struct {
	TicketID string `json:"tid"`
	EventID  string `json:"eid"`
	UserID   string `json:"uid"`
	jwt.RegisteredClaims
}

// QRSigner issues and verifies HS256 ticket tokens
type QRSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewQRSigner creates a signer. ttl <= 0 falls back to one year.
func NewQRSigner(key string, ttl time.Duration) (*QRSigner, error) {
	if key == "" {
		return nil, errors.New("qr signing key is required")
	}
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &QRSigner{key: []byte(key), ttl: ttl, now: time.Now}, nil
}

// Sign encodes the ticket's current holder into a token
func (s *QRSigner) Sign(t *domain.Ticket) (string, error) {
	now := s.now()
	claims := QRClaims{
		TicketID: t.ID,
		EventID:  t.EventID,
		UserID:   t.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign qr token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token
func (s *QRSigner) Parse(token string) (*QRClaims, error) {
	claims := &QRClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidQRCode
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrQRCodeExpired
		}
		return nil, ErrInvalidQRCode
	}
	if !parsed.Valid || claims.TicketID == "" {
		return nil, ErrInvalidQRCode
	}
	return claims, nil
}
