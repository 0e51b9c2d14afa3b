package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testCodec(t *testing.T) Codec {
	t.Helper()
	codec, err := NewCodec("unit-test-secret", "", "")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, 30*time.Minute)

	tok, err := issuer.AccessToken(Subject{ID: 42, IsSuperuser: true})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact three-segment serialization, got %q", tok)
	}

	claims, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Type != TypeAccess {
		t.Fatalf("unexpected type %q", claims.Type)
	}
	if !claims.IsSuperuser {
		t.Fatalf("superuser snapshot lost")
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("UserID: %d, %v", id, err)
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	codec := testCodec(t)
	other, _ := NewCodec("a-different-secret", "", "")

	tok, err := NewIssuer(other, time.Minute).AccessToken(Subject{ID: 1})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	_, err = codec.Decode(tok)
	if !IsKind(err, KindSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	codec := testCodec(t)
	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := codec.Decode(raw); !IsKind(err, KindMalformed) {
			t.Fatalf("expected malformed error for %q, got %v", raw, err)
		}
	}
}

func TestExpiryDominatesSignature(t *testing.T) {
	codec := testCodec(t)
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issuer := NewIssuer(codec, 30*time.Minute, WithClock(past))

	// Correctly signed, already expired.
	tok, err := issuer.AccessToken(Subject{ID: 7})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	_, err = codec.Decode(tok)
	if !IsKind(err, KindExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestDecodeChecksIssuerWhenConfigured(t *testing.T) {
	stamped, err := NewCodec("s", "obser", "")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tok, err := NewIssuer(stamped, time.Minute).AccessToken(Subject{ID: 1})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	claims, err := stamped.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Issuer != "obser" {
		t.Fatalf("issuer not stamped: %q", claims.Issuer)
	}

	other, _ := NewCodec("s", "someone-else", "")
	if _, err := other.Decode(tok); !IsKind(err, KindClaimsInvalid) {
		t.Fatalf("expected claims error on issuer mismatch, got %v", err)
	}
}

func TestAudienceVerifiedOnlyWhenConfigured(t *testing.T) {
	plain := testCodec(t)
	tok, err := NewIssuer(plain, time.Minute).AccessToken(Subject{ID: 1})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	// No audience configured: a token without aud passes.
	if _, err := plain.Decode(tok); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// Audience configured: the same token now fails the audience check.
	strict, _ := NewCodec("unit-test-secret", "", "obser-web")
	if _, err := strict.Decode(tok); !IsKind(err, KindClaimsInvalid) {
		t.Fatalf("expected claims error for missing audience, got %v", err)
	}

	// And a token stamped with the audience passes.
	stamped, err := NewIssuer(strict, time.Minute).AccessToken(Subject{ID: 1})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if _, err := strict.Decode(stamped); err != nil {
		t.Fatalf("Decode with audience: %v", err)
	}
}

func TestClaimsTimestampInvariant(t *testing.T) {
	codec := testCodec(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer(codec, 30*time.Minute, WithClock(func() time.Time { return now }))

	tok, err := issuer.AccessToken(Subject{ID: 3})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &Claims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	claims := parsed.Claims.(*Claims)
	iat := claims.IssuedAt.Unix()
	nbf := claims.NotBefore.Unix()
	exp := claims.ExpiresAt.Unix()
	if !(exp > nbf && nbf >= iat) {
		t.Fatalf("timestamp invariant violated: iat=%d nbf=%d exp=%d", iat, nbf, exp)
	}
	if exp-iat != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected lifetime: %d", exp-iat)
	}
}

func TestSubjectParsing(t *testing.T) {
	for _, tc := range []struct {
		sub string
		ok  bool
	}{
		{"17", true},
		{"", false},
		{"abc", false},
		{"-4", false},
		{"0", false},
	} {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: tc.sub}}
		_, err := c.UserID()
		if tc.ok && err != nil {
			t.Fatalf("subject %q: unexpected error %v", tc.sub, err)
		}
		if !tc.ok && !IsKind(err, KindSubjectInvalid) {
			t.Fatalf("subject %q: expected subject error, got %v", tc.sub, err)
		}
	}
}
