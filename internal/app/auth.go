package app

import (
	"context"
	"encoding/json"
	"sync"

	"bookfair-service/internal/account"
	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
)

// AuthStorageKey is the fixed key the cached user persists under.
const AuthStorageKey = "auth-storage"

// AuthState is the session-verification state of the auth store.
type AuthState string

const (
	// AuthUnknown: nothing verified yet; a persisted user may be held but is
	// not trusted until a check completes.
	AuthUnknown AuthState = "unknown"
	// AuthChecking: a session check is in flight.
	AuthChecking AuthState = "checking"
	// AuthAuthenticated: the session endpoint confirmed the user.
	AuthAuthenticated AuthState = "authenticated"
	// AuthUnauthenticated: the session endpoint definitively reported no
	// session ("checked and absent", as opposed to "not yet checked").
	AuthUnauthenticated AuthState = "unauthenticated"
)

// Auth caches the current session's user. Only the user record is persisted;
// the verified flag always starts false so a stale persisted user is never
// trusted as proof of an active session.
type Auth struct {
	mu       sync.Mutex
	client   account.Client
	store    docstore.StateStore
	key      string
	user     *domain.User
	state    AuthState
	verified bool
}

// NewAuth restores the persisted user (if any) in the unverified state.
func NewAuth(ctx context.Context, client account.Client, store docstore.StateStore) *Auth {
	a := &Auth{client: client, store: store, key: AuthStorageKey, state: AuthUnknown}
	if raw, err := store.Load(ctx, a.key); err == nil {
		var user domain.User
		if json.Unmarshal(raw, &user) == nil && user.ID != "" {
			a.user = &user
		}
	}
	return a
}

// CheckSession validates the session against the account endpoint. A
// definitive auth failure clears the user; a transient failure leaves an
// already-held user untouched so a slow network cannot spuriously log a user
// out. Either way the check is marked completed.
func (a *Auth) CheckSession(ctx context.Context) {
	a.mu.Lock()
	a.state = AuthChecking
	a.mu.Unlock()

	user, err := a.client.CurrentUser(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case err == nil:
		a.user = &user
		a.state = AuthAuthenticated
		a.verified = true
		a.persistLocked(ctx)
	case account.IsAuthFailure(err):
		a.user = nil
		a.state = AuthUnauthenticated
		a.verified = true
		_ = a.store.Clear(ctx, a.key)
	default:
		// Transient failure: keep whatever we hold, just mark the check done.
		if a.user != nil {
			a.state = AuthAuthenticated
		} else {
			a.state = AuthUnknown
		}
		a.verified = true
	}
}

// Login clears any pre-existing session (ignoring failure; "no active
// session" is not an error here), creates a new one, and fetches the user.
// On failure the error is surfaced and the store stays uninitialized.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	_ = a.client.DeleteSession(ctx)

	if err := a.client.CreateSession(ctx, email, password); err != nil {
		return err
	}
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = &user
	a.state = AuthAuthenticated
	a.verified = true
	a.persistLocked(ctx)
	return nil
}

// Logout best-effort deletes the session and resets to the confirmed
// unauthenticated state. The verified flag drops with it: the next load
// starts from scratch.
func (a *Auth) Logout(ctx context.Context) {
	_ = a.client.DeleteSession(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = nil
	a.state = AuthUnauthenticated
	a.verified = false
	_ = a.store.Clear(ctx, a.key)
}

// User returns the held user, or nil.
func (a *Auth) User() *domain.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	user := *a.user
	return &user
}

// State returns the current verification state.
func (a *Auth) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Verified reports whether a session check has completed since construction.
func (a *Auth) Verified() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.verified
}

func (a *Auth) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(a.user)
	if err != nil {
		return
	}
	_ = a.store.Save(ctx, a.key, raw)
}
