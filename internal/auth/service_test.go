package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"obser.dev/internal/auth"
	"obser.dev/internal/registry"
	"obser.dev/internal/registry/registrytest"
	"obser.dev/internal/token"
)

const testSecret = "unit-test-secret-please-rotate"

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{revoked: make(map[string]time.Time)}
}

func (b *memBlacklist) Revoke(_ context.Context, tok string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ttl > 0 {
		b.revoked[tok] = time.Now().Add(ttl)
	}
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, tok string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.revoked[tok]
	return ok && time.Now().Before(until), nil
}

func newAuthService(t *testing.T, store registry.Store) (*auth.Service, token.Validator) {
	t.Helper()
	codec, err := token.NewCodec(testSecret, "", "")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	issuer := token.NewIssuer(codec, 30*time.Minute)
	validator := token.NewValidator(codec)
	svc, err := auth.NewService(store, issuer, validator, newMemBlacklist())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, validator
}

func seedAccount(t *testing.T, store *registrytest.Store, email, password string, super bool) registry.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return store.SeedUser(registry.User{
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
		IsSuperuser:    super,
	})
}

func TestLogin(t *testing.T) {
	store := registrytest.New()
	svc, validator := newAuthService(t, store)
	ctx := context.Background()
	u := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	pair, err := svc.Login(ctx, " Dev@Obser.dev ", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("token type = %q, want bearer", pair.TokenType)
	}
	claims, err := validator.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id, _ := claims.UserID(); id != u.ID {
		t.Fatalf("access subject = %d, want %d", id, u.ID)
	}
	if _, err := validator.ValidateRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}

	got, err := store.Users().Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.LastLogin == nil {
		t.Fatal("last login not recorded")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()
	seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	_, errUnknown := svc.Login(ctx, "nobody@obser.dev", "correct-horse")
	_, errWrongPass := svc.Login(ctx, "dev@obser.dev", "wrong-horse")
	if !errors.Is(errUnknown, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrongPass, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", errWrongPass)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()
	u := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)
	store.SetActive(u.ID, false)

	if _, err := svc.Login(ctx, "dev@obser.dev", "correct-horse"); !errors.Is(err, auth.ErrInactiveAccount) {
		t.Fatalf("inactive login = %v, want ErrInactiveAccount", err)
	}
}

func TestRegister(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()

	u, err := svc.Register(ctx, "New@Obser.dev", "long-enough-pass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "new@obser.dev" {
		t.Fatalf("email = %q, want normalized lowercase", u.Email)
	}
	if !u.IsActive || u.IsSuperuser {
		t.Fatalf("defaults = active:%v super:%v, want active non-superuser", u.IsActive, u.IsSuperuser)
	}
	if u.HashedPassword == "long-enough-pass" {
		t.Fatal("password stored in plaintext")
	}

	if _, err := svc.Register(ctx, "new@obser.dev", "another-pass-123"); !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("duplicate email = %v, want ErrConflict", err)
	}
	if _, err := svc.Register(ctx, "not-an-email", "long-enough-pass"); !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("bad email = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Register(ctx, "short@obser.dev", "short"); !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("weak password = %v, want ErrInvalidInput", err)
	}
}

func TestRefreshReflectsCurrentAccountState(t *testing.T) {
	store := registrytest.New()
	svc, validator := newAuthService(t, store)
	ctx := context.Background()
	u := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	pair, err := svc.Login(ctx, "dev@obser.dev", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := validator.ValidateAccess(next.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.IsSuperuser {
		t.Fatal("refreshed access token carries superuser flag for regular user")
	}

	// Deactivation between issuance and use blocks the still-valid token.
	store.SetActive(u.ID, false)
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, auth.ErrInactiveAccount) {
		t.Fatalf("refresh after deactivation = %v, want ErrInactiveAccount", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()
	seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	pair, err := svc.Login(ctx, "dev@obser.dev", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err = svc.Refresh(ctx, pair.AccessToken)
	if !token.IsKind(err, token.KindWrongType) {
		t.Fatalf("refresh with access token = %v, want wrong-type token error", err)
	}
}

func TestRevokedRefreshTokenRejected(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()
	seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	pair, err := svc.Login(ctx, "dev@obser.dev", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("revoked refresh = %v, want ErrTokenRevoked", err)
	}
}

func TestImpersonate(t *testing.T) {
	store := registrytest.New()
	svc, validator := newAuthService(t, store)
	ctx := context.Background()
	admin := seedAccount(t, store, "root@obser.dev", "admin-password", true)
	target := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	pair, sid, err := svc.Impersonate(ctx, &admin, target.ID)
	if err != nil {
		t.Fatalf("Impersonate: %v", err)
	}
	if len(sid) != 32 {
		t.Fatalf("session id %q, want 32 hex chars", sid)
	}

	access, err := validator.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	refresh, err := validator.ValidateRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	for name, claims := range map[string]token.Claims{"access": access, "refresh": refresh} {
		if !claims.Imp || claims.ImpBy != admin.ID {
			t.Fatalf("%s impersonation markers = imp:%v imp_by:%d", name, claims.Imp, claims.ImpBy)
		}
		if claims.ImpSID != sid {
			t.Fatalf("%s session id = %q, want %q", name, claims.ImpSID, sid)
		}
		if id, _ := claims.UserID(); id != target.ID {
			t.Fatalf("%s subject = %d, want target %d", name, id, target.ID)
		}
	}

	// Refresh preserves the impersonation context.
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	nextClaims, err := validator.ValidateAccess(next.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess(next): %v", err)
	}
	if !nextClaims.Imp || nextClaims.ImpBy != admin.ID || nextClaims.ImpSID != sid {
		t.Fatalf("impersonation context lost on refresh: %+v", nextClaims)
	}
}

func TestImpersonateAuthorization(t *testing.T) {
	store := registrytest.New()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()
	admin := seedAccount(t, store, "root@obser.dev", "admin-password", true)
	regular := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)

	if _, _, err := svc.Impersonate(ctx, &regular, admin.ID); !errors.Is(err, registry.ErrForbidden) {
		t.Fatalf("regular user impersonate = %v, want ErrForbidden", err)
	}
	if _, _, err := svc.Impersonate(ctx, nil, regular.ID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("nil admin impersonate = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.Impersonate(ctx, &admin, regular.ID+999); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("missing target = %v, want ErrNotFound", err)
	}

	store.SetActive(regular.ID, false)
	if _, _, err := svc.Impersonate(ctx, &admin, regular.ID); !errors.Is(err, auth.ErrInactiveAccount) {
		t.Fatalf("inactive target = %v, want ErrInactiveAccount", err)
	}
}

func TestResolverGatesOnAccountState(t *testing.T) {
	store := registrytest.New()
	ctx := context.Background()
	u := seedAccount(t, store, "dev@obser.dev", "correct-horse", false)
	resolver := auth.NewResolver(store.Users())

	codec, err := token.NewCodec(testSecret, "", "")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	issuer := token.NewIssuer(codec, 30*time.Minute)
	validator := token.NewValidator(codec)

	access, err := issuer.AccessToken(token.Subject{ID: u.ID})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	claims, err := validator.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}

	got, err := resolver.Resolve(ctx, claims)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved %d, want %d", got.ID, u.ID)
	}

	store.SetActive(u.ID, false)
	if _, err := resolver.Resolve(ctx, claims); !errors.Is(err, auth.ErrInactiveAccount) {
		t.Fatalf("inactive resolve = %v, want ErrInactiveAccount", err)
	}

	missing := issueFor(t, issuer, u.ID+999)
	missingClaims, err := validator.ValidateAccess(missing)
	if err != nil {
		t.Fatalf("ValidateAccess(missing): %v", err)
	}
	if _, err := resolver.Resolve(ctx, missingClaims); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("missing user resolve = %v, want ErrNotFound", err)
	}
}

func issueFor(t *testing.T, issuer token.Issuer, id int64) string {
	t.Helper()
	tok, err := issuer.AccessToken(token.Subject{ID: id})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	return tok
}
