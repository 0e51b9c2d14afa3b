// Package auth implements authentication on top of the token and registry
// packages: login, registration, refresh rotation, impersonation and token
// revocation. Authorization decisions live in registry; this package only
// establishes who is calling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"obser.dev/internal/obs"
	"obser.dev/internal/registry"
	"obser.dev/internal/token"
)

// TokenPair is the issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service wires the token issuer and validator to the user store and the
// revocation blacklist.
type Service struct {
	store     registry.Store
	issuer    token.Issuer
	validator token.Validator
	blacklist Blacklist
	resolver  Resolver
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the auth service. The blacklist is required; pass a
// no-op implementation only in tests.
func NewService(store registry.Store, issuer token.Issuer, validator token.Validator, blacklist Blacklist, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if blacklist == nil {
		return nil, errors.New("auth: blacklist is required")
	}
	s := &Service{
		store:     store,
		issuer:    issuer,
		validator: validator,
		blacklist: blacklist,
		resolver:  NewResolver(store.Users()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolver exposes the principal resolver for transport middleware.
func (s *Service) Resolver() Resolver { return s.resolver }

// Blacklist exposes the revocation list for transport middleware.
func (s *Service) Blacklist() Blacklist { return s.blacklist }

// Login authenticates by email and password and issues a token pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = normalizeEmail(email)
	u, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !CheckPassword(u.HashedPassword, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return TokenPair{}, ErrInactiveAccount
	}
	if err := s.store.Users().UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		obs.Logger().WithError(err).WithField("user_id", u.ID).Warn("last login update failed")
	}
	pair, err := s.issuePair(token.Subject{ID: u.ID, IsSuperuser: u.IsSuperuser})
	if err != nil {
		return TokenPair{}, err
	}
	obs.Audit("login", "user", fmt.Sprint(u.ID), nil)
	return pair, nil
}

// Register creates an account with a hashed password. Duplicate email is
// registry.ErrConflict.
func (s *Service) Register(ctx context.Context, email, password string) (registry.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return registry.User{}, fmt.Errorf("%w: invalid email", registry.ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		if errors.Is(err, ErrWeakPassword) {
			return registry.User{}, fmt.Errorf("%w: %v", registry.ErrInvalidInput, err)
		}
		return registry.User{}, err
	}
	u, err := s.store.Users().Create(ctx, email, hash)
	if err != nil {
		return registry.User{}, err
	}
	obs.Audit("register", "user", fmt.Sprint(u.ID), nil)
	return u, nil
}

// Refresh validates a refresh token, re-resolves the principal and issues a
// fresh pair. The superuser flag is re-read from the store, never copied
// from the old token. Impersonated sessions stay impersonated: the markers
// and session id carry over to the new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, ErrTokenRevoked
	}
	claims, err := s.validator.ValidateRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	subject := token.Subject{ID: u.ID, IsSuperuser: u.IsSuperuser}
	if claims.Imp {
		pair, _, err := s.issueImpersonationPair(subject, claims.ImpBy, 0, claims.ImpSID)
		return pair, err
	}
	return s.issuePair(subject)
}

// Impersonate issues a token pair for target on behalf of admin. The two
// tokens share one freshly generated session id. Superuser-only.
func (s *Service) Impersonate(ctx context.Context, admin *registry.User, targetID int64) (TokenPair, string, error) {
	if admin == nil {
		return TokenPair{}, "", registry.ErrNotFound
	}
	if !admin.IsSuperuser {
		return TokenPair{}, "", registry.ErrForbidden
	}
	target, err := s.store.Users().Find(ctx, targetID)
	if err != nil {
		return TokenPair{}, "", err
	}
	if !target.IsActive {
		return TokenPair{}, "", ErrInactiveAccount
	}
	subject := token.Subject{ID: target.ID, IsSuperuser: target.IsSuperuser}
	pair, sid, err := s.issueImpersonationPair(subject, admin.ID, 0, "")
	if err != nil {
		return TokenPair{}, "", err
	}
	obs.Audit("impersonate", "user", fmt.Sprint(target.ID), map[string]any{
		"admin_id":   admin.ID,
		"session_id": sid,
	})
	return pair, sid, nil
}

// Revoke blacklists a still-valid token for the remainder of its lifetime.
// Either family is accepted; an already-expired token is a no-op.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.validator.ValidateAccess(tokenString)
	if err != nil {
		if claims, err = s.validator.ValidateRefresh(tokenString); err != nil {
			if token.IsKind(err, token.KindExpired) {
				return nil
			}
			return err
		}
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	return s.blacklist.Revoke(ctx, tokenString, ttl)
}

func (s *Service) issuePair(subject token.Subject) (TokenPair, error) {
	access, err := s.issuer.AccessToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issuer.RefreshToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	obs.TokenIssued(token.TypeAccess)
	obs.TokenIssued(token.TypeRefresh)
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *Service) issueImpersonationPair(subject token.Subject, adminID int64, ttl time.Duration, sessionID string) (TokenPair, string, error) {
	access, sid, err := s.issuer.ImpersonationAccessToken(subject, adminID, ttl, sessionID)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, _, err := s.issuer.ImpersonationRefreshToken(subject, adminID, ttl, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	obs.TokenIssued(token.TypeAccess)
	obs.TokenIssued(token.TypeRefresh)
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, sid, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
