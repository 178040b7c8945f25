// Package auth is the identity-provider port. The rest of the app only ever
// sees Identity values and the sentinel errors; which concrete provider sits
// behind the port is a wiring decision in main.
package auth

import "context"

// Identity — то, что отдаёт identity-провайдер. uid стабилен и неизменяем.
type Identity struct {
	UID   string
	Name  string
	Email string
}

// SessionHandler fires on every login/logout, including the startup
// resolution pass. nil means signed out.
type SessionHandler func(id *Identity)

// FederatedFlow opens the provider-driven sign-in flow (popup) and resolves
// to the federated identity. Implementations map their failure modes to
// ErrPopupBlocked, ErrPopupClosed and ErrUnauthorizedOrigin.
type FederatedFlow func(ctx context.Context) (Identity, error)

type Provider interface {
	// Start разрешает сохранённую сессию и рассылает первый SessionHandler.
	Start(ctx context.Context) error

	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignInFederated(ctx context.Context) (Identity, error)
	// SignOut is idempotent.
	SignOut(ctx context.Context) error

	CurrentIdentity() (Identity, bool)
	OnSessionChange(fn SessionHandler) (cancel func())

	// Introspect validates an access token and returns the identity uid.
	Introspect(ctx context.Context, token string) (string, error)
}
