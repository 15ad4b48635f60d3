// Package account talks to the external session/account endpoint and
// classifies its failures, so callers can tell a definitive "not
// authenticated" apart from a transient network error.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"bookfair-service/internal/domain"
)

// Client is the session/account surface the auth store depends on.
type Client interface {
	// CurrentUser returns the user bound to the active session.
	CurrentUser(ctx context.Context) (domain.User, error)
	// CreateSession starts a session for the credentials.
	CreateSession(ctx context.Context, email, password string) error
	// DeleteSession ends the active session. "No active session" is an error
	// here; callers that don't care ignore it.
	DeleteSession(ctx context.Context) error
}

// Error is a failure reported by the account endpoint, carrying the status
// code and error type the endpoint classified it with.
type Error struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("account error %d (%s)", e.Code, e.Type)
}

// IsAuthFailure reports whether err is a definitive authentication failure:
// a 401, or an error type naming a missing user or session. Anything else is
// treated as transient and must not destroy trusted local state.
func IsAuthFailure(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == http.StatusUnauthorized ||
		strings.Contains(ae.Type, "unauthorized") ||
		strings.Contains(ae.Type, "user_not_found") ||
		strings.Contains(ae.Type, "session_not_found")
}

// HTTPClient talks JSON to a remote account endpoint. One client is shared by
// every request handler, so the session token is guarded.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/account", nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	var session struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/account/sessions", payload, &session); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session.Token
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) DeleteSession(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/account/sessions/current", nil, nil)
	if err == nil {
		c.mu.Lock()
		c.session = ""
		c.mu.Unlock()
	}
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != "" {
		req.Header.Set("X-Session-Token", session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("account request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Code: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		apiErr.Code = resp.StatusCode
		return apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode account response: %w", err)
		}
	}
	return nil
}
