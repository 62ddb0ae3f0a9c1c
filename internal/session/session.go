// Package session holds the current user as an explicit store object passed
// to the components that need it. There is deliberately no package-level
// singleton: logout invalidates one store, not hidden global state.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"assetline/internal/domain"
	"assetline/internal/fault"
)

// AuthRequiredError reports an operation attempted with no usable session.
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return "authentication required: " + e.Reason
}

func (e *AuthRequiredError) Kind() fault.Kind { return fault.KindAuthRequired }

// Claims are the token fields the backend issues for staff users.
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role,omitempty"`
	DepartmentID int64  `json:"department_id,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Store owns the session for one client instance.
type Store struct {
	mu      sync.Mutex
	token   string
	user    *domain.User
	expires time.Time
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// SetToken installs a bearer token and derives the current user from its
// claims. The client never holds the signing secret, so claims are read
// unverified; expiry is still enforced locally on every access.
func (s *Store) SetToken(token string) (domain.User, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return domain.User{}, fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" {
		return domain.User{}, &AuthRequiredError{Reason: "token missing subject"}
	}
	var id int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &id); err != nil {
		return domain.User{}, fmt.Errorf("session token subject %q is not a user id", claims.Subject)
	}
	u := domain.User{
		ID:           id,
		Role:         claims.Role,
		DepartmentID: claims.DepartmentID,
		Name:         claims.Name,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &u
	s.expires = time.Time{}
	if claims.ExpiresAt != nil {
		s.expires = claims.ExpiresAt.Time
	}
	return u, nil
}

// Current returns the logged-in user, or AuthRequiredError when no session
// exists or the token has expired. There is no fallback identity for
// anonymous calls.
func (s *Store) Current() (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, &AuthRequiredError{}
	}
	if !s.expires.IsZero() && s.clock().After(s.expires) {
		return domain.User{}, &AuthRequiredError{Reason: "session expired"}
	}
	return *s.user, nil
}

// Token returns the raw bearer token for transport attachment.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.token == "" {
		return "", false
	}
	if !s.expires.IsZero() && s.clock().After(s.expires) {
		return "", false
	}
	return s.token, true
}

// Logout clears the session.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.expires = time.Time{}
}

// SetNow overrides the clock for tests.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
