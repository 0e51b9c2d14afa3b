package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTypeIsolation(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, time.Minute)
	validator := NewValidator(codec)

	access, err := issuer.AccessToken(Subject{ID: 11})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	refresh, err := issuer.RefreshToken(Subject{ID: 11})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}

	if _, err := validator.ValidateAccess(access); err != nil {
		t.Fatalf("ValidateAccess(access): %v", err)
	}
	if _, err := validator.ValidateRefresh(refresh); err != nil {
		t.Fatalf("ValidateRefresh(refresh): %v", err)
	}

	// A refresh token presented as access fails with a type error distinct
	// from signature/expiry failures, and vice versa.
	if _, err := validator.ValidateAccess(refresh); !IsKind(err, KindWrongType) {
		t.Fatalf("expected wrong-type error, got %v", err)
	}
	if _, err := validator.ValidateRefresh(access); !IsKind(err, KindWrongType) {
		t.Fatalf("expected wrong-type error, got %v", err)
	}
}

func TestValidatorRejectsBadSubject(t *testing.T) {
	codec := testCodec(t)
	validator := NewValidator(codec)

	now := time.Now().UTC()
	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-an-id",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	tok, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := validator.ValidateAccess(tok); !IsKind(err, KindSubjectInvalid) {
		t.Fatalf("expected subject error, got %v", err)
	}
}

func TestValidatorExpiredRefresh(t *testing.T) {
	codec := testCodec(t)
	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	issuer := NewIssuer(codec, time.Minute, WithClock(past))
	validator := NewValidator(codec)

	refresh, err := issuer.RefreshToken(Subject{ID: 4})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if _, err := validator.ValidateRefresh(refresh); !IsKind(err, KindExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}
