package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestCodec(now time.Time) *Codec {
	c := NewCodec([]byte("test-secret"))
	c.now = func() time.Time { return now }
	return c
}

func TestIssueDecodeRoundtrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(now)
	subject := uuid.New()

	for _, typ := range []Type{TypeAccess, TypeRefresh} {
		signed, expiresAt, err := c.Issue(subject, typ, 15*time.Minute)
		if err != nil {
			t.Fatalf("Issue(%s): %v", typ, err)
		}
		if want := now.Add(15 * time.Minute); !expiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, expiresAt)
		}

		claims, err := c.Decode(signed)
		if err != nil {
			t.Fatalf("Decode(%s): %v", typ, err)
		}
		if claims.TokenType != typ {
			t.Fatalf("expected type %q, got %q", typ, claims.TokenType)
		}
		got, err := claims.UserID()
		if err != nil {
			t.Fatalf("UserID: %v", err)
		}
		if got != subject {
			t.Fatalf("expected subject %s, got %s", subject, got)
		}
	}
}

func TestDecodeExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute

	c := newTestCodec(issuedAt)
	signed, _, err := c.Issue(uuid.New(), TypeAccess, ttl)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c.now = func() time.Time { return issuedAt.Add(ttl - time.Second) }
	if _, err := c.Decode(signed); err != nil {
		t.Fatalf("expected token valid one second before expiry, got %v", err)
	}

	c.now = func() time.Time { return issuedAt.Add(ttl + time.Second) }
	if _, err := c.Decode(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken one second after expiry, got %v", err)
	}
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	now := time.Now()
	c := newTestCodec(now)

	signed, _, err := c.Issue(uuid.New(), TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one character in the signature segment.
	last := signed[len(signed)-1]
	replacement := byte('A')
	if last == replacement {
		replacement = 'B'
	}
	tampered := signed[:len(signed)-1] + string(replacement)

	if _, err := c.Decode(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	c := newTestCodec(now)

	signed, _, err := c.Issue(uuid.New(), TypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewCodec([]byte("different-secret"))
	other.now = c.now
	if _, err := other.Decode(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestDecodeRejectsMalformedToken(t *testing.T) {
	c := newTestCodec(time.Now())

	for _, tokenString := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 200)} {
		if _, err := c.Decode(tokenString); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tokenString, err)
		}
	}
}

func TestIssuePairTypesAndExpiries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(now)
	subject := uuid.New()

	pair, err := c.IssuePair(subject, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	access, err := c.Decode(pair.AccessToken)
	if err != nil {
		t.Fatalf("Decode access: %v", err)
	}
	if access.TokenType != TypeAccess {
		t.Fatalf("expected access type, got %q", access.TokenType)
	}

	refresh, err := c.Decode(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Decode refresh: %v", err)
	}
	if refresh.TokenType != TypeRefresh {
		t.Fatalf("expected refresh type, got %q", refresh.TokenType)
	}

	if !pair.AccessExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", pair.AccessExpiresAt)
	}
	if !pair.RefreshExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", pair.RefreshExpiresAt)
	}
}
