package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidRestoreToken = errors.New("invalid restore token")

// RestoreClaims is the signed payload that lets a client reopen a session
// from a navigation link. It is not protected against replay before expiry.
type RestoreClaims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 restore tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenSigner) Issue(sess *Session) (string, error) {
	now := t.now()
	claims := RestoreClaims{
		UserID:      sess.UserID.String(),
		Username:    sess.Username,
		RoleName:    sess.RoleName,
		Permissions: sess.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign restore token: %w", err)
	}
	return signed, nil
}

func (t *TokenSigner) Parse(raw string) (*RestoreClaims, error) {
	claims := &RestoreClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidRestoreToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidRestoreToken
	}
	return claims, nil
}
