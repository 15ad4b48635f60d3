package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"bookfair-service/internal/domain"
)

func TestIsAuthFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"401", &Error{Code: http.StatusUnauthorized, Type: "general_unauthorized_scope"}, true},
		{"user not found", &Error{Code: http.StatusNotFound, Type: "user_not_found"}, true},
		{"session not found", &Error{Code: http.StatusNotFound, Type: "general_session_not_found"}, true},
		{"server error", &Error{Code: http.StatusInternalServerError, Type: "general_server_error"}, false},
		{"plain error", errors.New("dial tcp: connection refused"), false},
		{"wrapped", &Error{Code: http.StatusUnauthorized}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAuthFailure(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHTTPClientConcurrentSessionUse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/account/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "t1"})
	})
	mux.HandleFunc("/account/sessions/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.User{ID: "u1"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	// One client is shared across request handlers, so login, session checks,
	// and logout all hit the token concurrently.
	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				switch i % 3 {
				case 0:
					_ = client.CreateSession(ctx, "admin@example.com", "secret")
				case 1:
					_, _ = client.CurrentUser(ctx)
				default:
					_ = client.DeleteSession(ctx)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestHTTPClientSessionFlow(t *testing.T) {
	const token = "session-token-1"
	mux := http.NewServeMux()
	mux.HandleFunc("/account/sessions", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "admin@example.com" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "user_invalid_credentials", "message": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session-Token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "general_unauthorized_scope"})
			return
		}
		_ = json.NewEncoder(w).Encode(domain.User{ID: "u1", Name: "Admin", Email: "admin@example.com"})
	})
	mux.HandleFunc("/account/sessions/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	// Unauthenticated reads classify as definitive auth failures.
	_, err := client.CurrentUser(ctx)
	if !IsAuthFailure(err) {
		t.Fatalf("expected auth failure, got %v", err)
	}

	if err := client.CreateSession(ctx, "admin@example.com", "wrong"); !IsAuthFailure(err) {
		t.Fatalf("expected auth failure for bad credentials, got %v", err)
	}
	if err := client.CreateSession(ctx, "admin@example.com", "secret"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != "u1" || user.Email != "admin@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := client.DeleteSession(ctx); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	// The token is dropped with the session.
	if _, err := client.CurrentUser(ctx); !IsAuthFailure(err) {
		t.Fatalf("expected auth failure after logout, got %v", err)
	}
}
