package account

import (
	"context"
	"net/http"
	"sync"

	"bookfair-service/internal/domain"
)

// Static is an in-memory account backend with a fixed credential table,
// used in tests and when no account endpoint is configured.
type Static struct {
	mu        sync.Mutex
	users     map[string]staticUser
	active    bool
	activeKey string
}

type staticUser struct {
	user     domain.User
	password string
}

func NewStatic() *Static {
	return &Static{users: make(map[string]staticUser)}
}

// AddUser registers a credential pair.
func (s *Static) AddUser(user domain.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = staticUser{user: user, password: password}
}

func (s *Static) CurrentUser(_ context.Context) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return domain.User{}, &Error{Code: http.StatusUnauthorized, Type: "general_session_not_found", Message: "no active session"}
	}
	return s.users[s.activeKey].user, nil
}

func (s *Static) CreateSession(_ context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.users[email]
	if !ok || entry.password != password {
		return &Error{Code: http.StatusUnauthorized, Type: "user_invalid_credentials", Message: "invalid credentials"}
	}
	s.active = true
	s.activeKey = email
	return nil
}

func (s *Static) DeleteSession(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return &Error{Code: http.StatusUnauthorized, Type: "general_session_not_found", Message: "no active session"}
	}
	s.active = false
	s.activeKey = ""
	return nil
}
