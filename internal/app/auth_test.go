package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"bookfair-service/internal/account"
	"bookfair-service/internal/app"
	"bookfair-service/internal/domain"
	"bookfair-service/internal/infra/memory"
)

// fakeAccount lets tests script the account endpoint's behavior.
type fakeAccount struct {
	user       domain.User
	userErr    error
	sessionErr error
}

func (f *fakeAccount) CurrentUser(context.Context) (domain.User, error) {
	if f.userErr != nil {
		return domain.User{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeAccount) CreateSession(context.Context, string, string) error {
	return f.sessionErr
}

func (f *fakeAccount) DeleteSession(context.Context) error { return nil }

func TestCheckSessionSuccessPersistsUser(t *testing.T) {
	ctx := context.Background()
	state := memory.NewStateStore()
	client := &fakeAccount{user: domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}}

	auth := app.NewAuth(ctx, client, state)
	if auth.Verified() {
		t.Fatal("fresh auth store must start unverified")
	}
	auth.CheckSession(ctx)

	if auth.State() != app.AuthAuthenticated {
		t.Fatalf("expected authenticated, got %s", auth.State())
	}
	if !auth.Verified() {
		t.Fatal("expected verified after check")
	}
	if user := auth.User(); user == nil || user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// The user survives a reload, but unverified.
	reloaded := app.NewAuth(ctx, client, state)
	if user := reloaded.User(); user == nil || user.ID != "u1" {
		t.Fatalf("expected persisted user, got %+v", user)
	}
	if reloaded.Verified() {
		t.Fatal("restored user must not count as verified")
	}
}

func TestCheckSessionAuthFailureClearsUser(t *testing.T) {
	ctx := context.Background()
	state := memory.NewStateStore()
	raw, _ := json.Marshal(domain.User{ID: "u1", Name: "Ada"})
	if err := state.Save(ctx, app.AuthStorageKey, raw); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	client := &fakeAccount{userErr: &account.Error{Code: http.StatusUnauthorized, Type: "general_unauthorized_scope"}}
	auth := app.NewAuth(ctx, client, state)
	auth.CheckSession(ctx)

	if auth.State() != app.AuthUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", auth.State())
	}
	if auth.User() != nil {
		t.Fatal("definitive auth failure must clear the held user")
	}
}

func TestCheckSessionTransientFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	state := memory.NewStateStore()
	raw, _ := json.Marshal(domain.User{ID: "u1", Name: "Ada"})
	if err := state.Save(ctx, app.AuthStorageKey, raw); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	client := &fakeAccount{userErr: errors.New("dial tcp: connection refused")}
	auth := app.NewAuth(ctx, client, state)
	auth.CheckSession(ctx)

	if user := auth.User(); user == nil || user.ID != "u1" {
		t.Fatalf("transient failure must keep the held user, got %+v", user)
	}
	if auth.State() != app.AuthAuthenticated {
		t.Fatalf("expected authenticated from held user, got %s", auth.State())
	}
	if !auth.Verified() {
		t.Fatal("the check still counts as completed")
	}
}

func TestCheckSessionTransientFailureWithoutUser(t *testing.T) {
	ctx := context.Background()
	client := &fakeAccount{userErr: errors.New("timeout")}
	auth := app.NewAuth(ctx, client, memory.NewStateStore())
	auth.CheckSession(ctx)

	if auth.State() != app.AuthUnknown {
		t.Fatalf("expected unknown with no held user, got %s", auth.State())
	}
	if !auth.Verified() {
		t.Fatal("the check still counts as completed")
	}
}

func TestLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	state := memory.NewStateStore()
	client := account.NewStatic()
	client.AddUser(domain.User{ID: "admin", Name: "Admin", Email: "admin@example.com"}, "secret")

	auth := app.NewAuth(ctx, client, state)
	if err := auth.Login(ctx, "admin@example.com", "wrong"); err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if auth.User() != nil {
		t.Fatal("failed login must not set a user")
	}

	if err := auth.Login(ctx, "admin@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if auth.State() != app.AuthAuthenticated || !auth.Verified() {
		t.Fatalf("expected verified authenticated state, got %s", auth.State())
	}

	auth.Logout(ctx)
	if auth.State() != app.AuthUnauthenticated {
		t.Fatalf("expected unauthenticated after logout, got %s", auth.State())
	}
	if auth.User() != nil {
		t.Fatal("logout must clear the user")
	}
	if auth.Verified() {
		t.Fatal("logout resets the verified flag")
	}

	// Nothing survives the logout.
	reloaded := app.NewAuth(ctx, client, state)
	if reloaded.User() != nil {
		t.Fatal("cleared state must not restore a user")
	}
}
