package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/localstore"

	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, store docstore.Store, local localstore.KV) *LocalProvider {
	t.Helper()
	tokens := NewHSProvider("test-secret", "deshikart", "deshikart-app")
	return NewLocalProvider(store, local, tokens, BcryptHasher{Cost: 4}, nil, nil, time.Hour, zap.NewNop())
}

func TestLocalProvider_SignUpAndSignIn(t *testing.T) {
	store := docstore.NewMemory()
	p := newTestProvider(t, store, localstore.NewMemory())
	ctx := context.Background()

	id, err := p.SignUp(ctx, "Ravi@Example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.UID == "" || id.Email != "ravi@example.com" {
		t.Fatalf("identity = %+v", id)
	}

	// повторная регистрация того же адреса
	if _, err := p.SignUp(ctx, "ravi@example.com", "secret1"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	got, err := p.SignIn(ctx, "ravi@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got.UID != id.UID {
		t.Fatalf("uid mismatch: %s vs %s", got.UID, id.UID)
	}

	if _, err := p.SignIn(ctx, "ravi@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, err := p.SignIn(ctx, "ghost@example.com", "secret1"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestLocalProvider_SignUpValidation(t *testing.T) {
	p := newTestProvider(t, docstore.NewMemory(), localstore.NewMemory())
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "not-an-email", "secret1"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestLocalProvider_SessionRestoredAfterRestart(t *testing.T) {
	store := docstore.NewMemory()
	local := localstore.NewMemory()
	p := newTestProvider(t, store, local)
	ctx := context.Background()

	id, err := p.SignUp(ctx, "asha@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	// новый провайдер над тем же локальным хранилищем
	again := newTestProvider(t, store, local)
	var fired []*Identity
	again.OnSessionChange(func(i *Identity) { fired = append(fired, i) })
	if err := again.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cur, ok := again.CurrentIdentity()
	if !ok || cur.UID != id.UID {
		t.Fatalf("session not restored: %+v ok=%v", cur, ok)
	}
	if len(fired) != 1 || fired[0] == nil {
		t.Fatalf("expected session handler fired with identity, got %v", fired)
	}

	token, ok := again.AccessToken()
	if !ok || token == "" {
		t.Fatal("expected restored access token")
	}
	uid, err := again.Introspect(ctx, token)
	if err != nil || uid != id.UID {
		t.Fatalf("Introspect: uid=%s err=%v", uid, err)
	}
}

func TestLocalProvider_SignOutIsIdempotent(t *testing.T) {
	p := newTestProvider(t, docstore.NewMemory(), localstore.NewMemory())
	ctx := context.Background()

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut on fresh provider: %v", err)
	}
	if _, err := p.SignUp(ctx, "x@y.z", "secret1"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
	if _, ok := p.CurrentIdentity(); ok {
		t.Fatal("expected no identity after sign out")
	}
	if _, ok := p.AccessToken(); ok {
		t.Fatal("expected no token after sign out")
	}
}

func TestLocalProvider_FederatedFlow(t *testing.T) {
	store := docstore.NewMemory()
	flow := func(ctx context.Context) (Identity, error) {
		return Identity{UID: "g-uid", Name: "Asha", Email: "asha@gmail.com"}, nil
	}
	tokens := NewHSProvider("test-secret", "deshikart", "deshikart-app")
	p := NewLocalProvider(store, localstore.NewMemory(), tokens, BcryptHasher{Cost: 4}, nil, flow, time.Hour, zap.NewNop())

	id, err := p.SignInFederated(context.Background())
	if err != nil {
		t.Fatalf("SignInFederated: %v", err)
	}
	if id.UID != "g-uid" {
		t.Fatalf("identity = %+v", id)
	}

	// без настроенного потока вход невозможен
	bare := newTestProvider(t, store, localstore.NewMemory())
	if _, err := bare.SignInFederated(context.Background()); !errors.Is(err, ErrFederatedUnavailable) {
		t.Fatalf("expected ErrFederatedUnavailable without federated flow, got %v", err)
	}
}

func TestHSProvider_RejectsForgedAndExpiredTokens(t *testing.T) {
	p := NewHSProvider("secret-a", "deshikart", "deshikart-app")
	ctx := context.Background()

	token, jti, _, err := p.SignAccess(ctx, "u1", time.Hour)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	claims, err := p.ParseAndValidateAccess(ctx, token)
	if err != nil {
		t.Fatalf("ParseAndValidateAccess: %v", err)
	}
	if claims.UID != "u1" || claims.JTI != jti {
		t.Fatalf("claims = %+v", claims)
	}

	// чужой секрет
	other := NewHSProvider("secret-b", "deshikart", "deshikart-app")
	if _, err := other.ParseAndValidateAccess(ctx, token); err == nil {
		t.Fatal("expected rejection of token signed with different secret")
	}

	// истёкший токен
	expired, _, _, err := p.SignAccess(ctx, "u1", -time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := p.ParseAndValidateAccess(ctx, expired); err == nil {
		t.Fatal("expected rejection of expired token")
	}
}
