package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// QR token validation errors. Expiry is deliberately distinct from general
// invalidity so clients can tell a stale code from a forged one.
var (
	ErrQRTokenExpired = errors.New("qr token has expired")
	ErrQRTokenInvalid = errors.New("qr token is invalid")
)

const qrTokenType = "attendance_qr"

// QRTokenManager issues and verifies signed, time-boxed session check-in
// tokens. A token identifies a session only; the scanning student's
// identity comes from the authenticated request.
type QRTokenManager struct {
	secret []byte
}

// NewQRTokenManager constructs a token manager with the given HMAC secret.
func NewQRTokenManager(secret string) *QRTokenManager {
	return &QRTokenManager{secret: []byte(secret)}
}

// Issue creates a token for the session, valid until expiresAt.
func (m *QRTokenManager) Issue(sessionID uint, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"typ": qrTokenType,
		"sid": sessionID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign qr token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded session id.
func (m *QRTokenManager) Verify(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrQRTokenExpired
		}
		return 0, ErrQRTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrQRTokenInvalid
	}
	if typ, _ := claims["typ"].(string); typ != qrTokenType {
		return 0, ErrQRTokenInvalid
	}

	sid, ok := claims["sid"].(float64)
	if !ok || sid <= 0 {
		return 0, ErrQRTokenInvalid
	}
	return uint(sid), nil
}
