package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bajar/internal/config"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Codec signs and verifies bearer tokens. It is stateless: access
// tokens carry {sub, iat, exp}, refresh tokens additionally carry a
// random 128-bit identifier in jti. Access and refresh tokens are
// signed with separate secrets so that compromise of one never
// compromises the other.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewCodec(cfg config.SessionConfig) *Codec {
	return &Codec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// AccessTTL exposes the configured access token lifetime so callers
// can report expiresIn without re-reading config.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

func (c *Codec) SignAccessToken(subjectID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

func (c *Codec) VerifyAccessToken(raw string) (string, error) {
	claims, err := c.parse(raw, c.accessSecret, false)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// SignRefreshToken returns the signed token together with the raw
// identifier embedded in it. The caller hashes the identifier for
// storage; the raw value itself is never persisted.
func (c *Codec) SignRefreshToken(subjectID string) (signed, rawID string, err error) {
	rawID = uuid.NewString()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		ID:        rawID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
	}
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return signed, rawID, nil
}

func (c *Codec) VerifyRefreshToken(raw string) (subjectID, rawID string, err error) {
	claims, err := c.parse(raw, c.refreshSecret, false)
	if err != nil {
		return "", "", err
	}
	if claims.ID == "" {
		return "", "", ErrTokenMalformed
	}
	return claims.Subject, claims.ID, nil
}

// VerifyRefreshTokenAllowExpired is the logout path: an expired token
// can still be explicitly revoked, so only the signature must hold.
func (c *Codec) VerifyRefreshTokenAllowExpired(raw string) (subjectID, rawID string, err error) {
	claims, err := c.parse(raw, c.refreshSecret, true)
	if err != nil {
		return "", "", err
	}
	if claims.ID == "" {
		return "", "", ErrTokenMalformed
	}
	return claims.Subject, claims.ID, nil
}

func (c *Codec) parse(raw string, secret []byte, allowExpired bool) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	// HS256 is pinned; tokens declaring any other algorithm are
	// rejected before the signature is checked.
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		if allowExpired && signatureHolds(err) {
			return claims, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// signatureHolds reports whether expiry is the only reason the parse
// failed. jwt/v5 joins all validation errors, so a bad signature shows
// up alongside ErrTokenExpired and must still be rejected.
func signatureHolds(err error) bool {
	return !errors.Is(err, jwt.ErrTokenSignatureInvalid) && !errors.Is(err, jwt.ErrTokenUnverifiable)
}

// HashIdentifier maps a refresh token's raw identifier to its stored
// form. SHA-256 is enough here: the input is already high-entropy
// random, so no salt or password hash is needed, only collision
// resistance.
func HashIdentifier(rawID string) string {
	sum := sha256.Sum256([]byte(rawID))
	return hex.EncodeToString(sum[:])
}
