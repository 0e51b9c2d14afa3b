package token

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestRefreshTokenCarriesNoSuperuserFlag(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, time.Minute)

	tok, err := issuer.RefreshToken(Subject{ID: 9, IsSuperuser: true})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	claims, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Type != TypeRefresh {
		t.Fatalf("unexpected type %q", claims.Type)
	}
	if claims.IsSuperuser {
		t.Fatalf("refresh token must not carry the superuser flag")
	}
	lifetime := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if lifetime != RefreshTTL {
		t.Fatalf("unexpected refresh lifetime %v", lifetime)
	}
}

func TestImpersonationSessionIDFreshPerCall(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, time.Minute)

	_, first, err := issuer.ImpersonationAccessToken(Subject{ID: 5}, 1, 0, "")
	if err != nil {
		t.Fatalf("ImpersonationAccessToken: %v", err)
	}
	_, second, err := issuer.ImpersonationAccessToken(Subject{ID: 5}, 1, 0, "")
	if err != nil {
		t.Fatalf("ImpersonationAccessToken: %v", err)
	}
	if !hex32.MatchString(first) || !hex32.MatchString(second) {
		t.Fatalf("session ids must be 32 hex chars: %q, %q", first, second)
	}
	if first == second {
		t.Fatalf("two separate calls produced the same session id")
	}
}

func TestImpersonationSessionIDSharedWhenSupplied(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, time.Minute)

	access, sid, err := issuer.ImpersonationAccessToken(Subject{ID: 5, IsSuperuser: false}, 2, 0, "")
	if err != nil {
		t.Fatalf("ImpersonationAccessToken: %v", err)
	}
	refresh, sid2, err := issuer.ImpersonationRefreshToken(Subject{ID: 5}, 2, 0, sid)
	if err != nil {
		t.Fatalf("ImpersonationRefreshToken: %v", err)
	}
	if sid != sid2 {
		t.Fatalf("supplied session id was not preserved: %q != %q", sid, sid2)
	}

	ac, err := codec.Decode(access)
	if err != nil {
		t.Fatalf("Decode access: %v", err)
	}
	rc, err := codec.Decode(refresh)
	if err != nil {
		t.Fatalf("Decode refresh: %v", err)
	}
	if ac.ImpSID != sid || rc.ImpSID != sid {
		t.Fatalf("tokens do not share the session id: %q / %q", ac.ImpSID, rc.ImpSID)
	}
	if !ac.Imp || !rc.Imp {
		t.Fatalf("impersonation flag missing")
	}
	if ac.ImpBy != 2 || rc.ImpBy != 2 {
		t.Fatalf("imp_by not recorded: %d / %d", ac.ImpBy, rc.ImpBy)
	}
}

func TestImpersonationDefaultLifetime(t *testing.T) {
	codec := testCodec(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer(codec, time.Minute, WithClock(func() time.Time { return now }))

	// The fixed clock makes exp a past instant, so inspect the claims
	// without expiry enforcement.
	lifetime := func(tok string) time.Duration {
		parsed, _, err := jwt.NewParser().ParseUnverified(tok, &Claims{})
		if err != nil {
			t.Fatalf("ParseUnverified: %v", err)
		}
		claims := parsed.Claims.(*Claims)
		return claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	}

	tok, _, err := issuer.ImpersonationAccessToken(Subject{ID: 8}, 3, 0, "")
	if err != nil {
		t.Fatalf("ImpersonationAccessToken: %v", err)
	}
	if got := lifetime(tok); got != DefaultImpersonationTTL {
		t.Fatalf("expected default 60m lifetime, got %v", got)
	}

	tok, _, err = issuer.ImpersonationAccessToken(Subject{ID: 8}, 3, 5*time.Minute, "")
	if err != nil {
		t.Fatalf("ImpersonationAccessToken: %v", err)
	}
	if got := lifetime(tok); got != 5*time.Minute {
		t.Fatalf("expected 5m override, got %v", got)
	}
}

func TestImpersonationPanicsOnNonPositiveAdminID(t *testing.T) {
	codec := testCodec(t)
	issuer := NewIssuer(codec, time.Minute)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-positive admin id")
		}
	}()
	_, _, _ = issuer.ImpersonationAccessToken(Subject{ID: 5}, 0, 0, "")
}
