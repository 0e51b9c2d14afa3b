package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// RefreshTTL is fixed at 24 hours, independent of the access lifetime.
	RefreshTTL = 1440 * time.Minute

	// DefaultImpersonationTTL bounds impersonation sessions unless the
	// caller overrides it.
	DefaultImpersonationTTL = 60 * time.Minute
)

// Subject describes the principal a token is issued for. The superuser flag
// is snapshotted into access tokens at issuance time; the staleness window
// is bounded by the token lifetime.
type Subject struct {
	ID          int64
	IsSuperuser bool
}

// Issuer builds the three token families. It has no side effects beyond
// computing the token string; persistence (last-login and the like) is the
// caller's concern.
type Issuer struct {
	codec        Codec
	accessTTL    time.Duration
	now          func() time.Time
	newSessionID func() string
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithSessionIDSource overrides impersonation session id generation (tests).
func WithSessionIDSource(fn func() string) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.newSessionID = fn
		}
	}
}

// NewIssuer constructs an Issuer with the configured access token lifetime.
func NewIssuer(codec Codec, accessTTL time.Duration, opts ...IssuerOption) Issuer {
	iss := Issuer{
		codec:        codec,
		accessTTL:    accessTTL,
		now:          time.Now,
		newSessionID: newSessionID,
	}
	if iss.accessTTL <= 0 {
		iss.accessTTL = 30 * time.Minute
	}
	for _, opt := range opts {
		opt(&iss)
	}
	return iss
}

// AccessToken issues an access token carrying the superuser snapshot.
func (i Issuer) AccessToken(subject Subject) (string, error) {
	claims := i.codec.baseClaims(subject.ID, TypeAccess, i.now(), i.accessTTL)
	claims.IsSuperuser = subject.IsSuperuser
	return i.codec.Encode(claims)
}

// RefreshToken issues a refresh token. It never carries the superuser flag.
func (i Issuer) RefreshToken(subject Subject) (string, error) {
	claims := i.codec.baseClaims(subject.ID, TypeRefresh, i.now(), RefreshTTL)
	return i.codec.Encode(claims)
}

// ImpersonationAccessToken issues an access token for target on behalf of
// the administrator identified by adminID. When sessionID is empty a fresh
// random 128-bit hex identifier is generated; the returned value lets the
// caller link an access+refresh pair issued together.
//
// A non-positive adminID is a programming-contract violation and panics.
func (i Issuer) ImpersonationAccessToken(target Subject, adminID int64, ttl time.Duration, sessionID string) (string, string, error) {
	sessionID = i.impersonationSession(adminID, sessionID)
	claims := i.codec.baseClaims(target.ID, TypeAccess, i.now(), impersonationTTL(ttl))
	claims.IsSuperuser = target.IsSuperuser
	claims.Imp = true
	claims.ImpBy = adminID
	claims.ImpSID = sessionID
	tok, err := i.codec.Encode(claims)
	return tok, sessionID, err
}

// ImpersonationRefreshToken is the refresh counterpart of
// ImpersonationAccessToken. It shares the session id semantics but never
// carries the superuser flag.
func (i Issuer) ImpersonationRefreshToken(target Subject, adminID int64, ttl time.Duration, sessionID string) (string, string, error) {
	sessionID = i.impersonationSession(adminID, sessionID)
	claims := i.codec.baseClaims(target.ID, TypeRefresh, i.now(), impersonationTTL(ttl))
	claims.Imp = true
	claims.ImpBy = adminID
	claims.ImpSID = sessionID
	tok, err := i.codec.Encode(claims)
	return tok, sessionID, err
}

func (i Issuer) impersonationSession(adminID int64, sessionID string) string {
	if adminID <= 0 {
		panic(fmt.Sprintf("token: impersonation requires a positive admin id, got %d", adminID))
	}
	if sessionID == "" {
		return i.newSessionID()
	}
	return sessionID
}

func impersonationTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultImpersonationTTL
	}
	return ttl
}

// newSessionID returns a 32-hex-char random identifier.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
