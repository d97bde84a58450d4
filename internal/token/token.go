package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type tags a token as usable for request authentication or for minting new
// access tokens. The tag travels inside the signed claim set, so a refresh
// token can never be replayed as an access token.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the signed payload: subject (user id), token type and the
// registered expiry/issued-at instants.
type Claims struct {
	TokenType Type `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Pair bundles the two tokens issued at login together with their expiries,
// which callers need for cookie max-age.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Codec signs and verifies bearer tokens with a process-wide HS256 secret.
// The secret is held by reference so it can be swapped by constructing a new
// Codec without touching callers. The clock is injectable for tests.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) *Codec {
	return NewCodecWithClock(secret, time.Now)
}

// NewCodecWithClock builds a codec on an explicit clock so issuance and
// verification can be exercised at controlled instants.
func NewCodecWithClock(secret []byte, now func() time.Time) *Codec {
	return &Codec{
		secret: secret,
		now:    now,
	}
}

// Issue produces a signed token for subject valid for ttl from now.
func (c *Codec) Issue(subject uuid.UUID, typ Type, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// IssuePair mints the access/refresh token pair bound to subject.
func (c *Codec) IssuePair(subject uuid.UUID, accessTTL, refreshTTL time.Duration) (*Pair, error) {
	access, accessExp, err := c.Issue(subject, TypeAccess, accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := c.Issue(subject, TypeRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Decode verifies signature and expiry and returns the claim set. Every
// failure mode (bad signature, malformed payload, expiry, wrong algorithm)
// collapses into ErrInvalidToken so callers cannot distinguish them; the
// underlying cause stays wrapped for logging.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.TokenType != TypeAccess && claims.TokenType != TypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidToken, claims.TokenType)
	}

	return claims, nil
}
