package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"assetline/internal/fault"
	"assetline/internal/session"
)

func makeToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":           subject,
		"role":          "reviewer",
		"department_id": int64(2),
		"name":          "Sam I.",
	}
	if !expires.IsZero() {
		claims["exp"] = expires.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestSetTokenDerivesUser(t *testing.T) {
	store := session.NewStore()
	user, err := store.SetToken(makeToken(t, "17", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("set token: %v", err)
	}
	if user.ID != 17 || user.Role != "reviewer" || user.DepartmentID != 2 {
		t.Fatalf("unexpected user %+v", user)
	}
	current, err := store.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != 17 {
		t.Fatalf("unexpected current user %+v", current)
	}
}

func TestEmptyStoreRequiresAuth(t *testing.T) {
	store := session.NewStore()
	_, err := store.Current()
	var authErr *session.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRequiredError, got %v", err)
	}
	if fault.KindOf(err) != fault.KindAuthRequired {
		t.Fatalf("unexpected kind %s", fault.KindOf(err))
	}
	if _, ok := store.Token(); ok {
		t.Fatal("empty store must not hand out a token")
	}
}

func TestExpiredSession(t *testing.T) {
	store := session.NewStore()
	if _, err := store.SetToken(makeToken(t, "5", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("set token: %v", err)
	}
	store.SetNow(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err := store.Current()
	var authErr *session.AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected expiry to require auth, got %v", err)
	}
	if _, ok := store.Token(); ok {
		t.Fatal("expired store must not hand out a token")
	}
}

func TestLogoutInvalidates(t *testing.T) {
	store := session.NewStore()
	if _, err := store.SetToken(makeToken(t, "5", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("set token: %v", err)
	}
	store.Logout()
	if _, err := store.Current(); err == nil {
		t.Fatal("expected auth error after logout")
	}
}

func TestTokenWithoutSubjectRejected(t *testing.T) {
	claims := jwt.MapClaims{"role": "tech"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	store := session.NewStore()
	if _, err := store.SetToken(token); err == nil {
		t.Fatal("expected rejection of token without subject")
	}
}

func TestNonNumericSubjectRejected(t *testing.T) {
	store := session.NewStore()
	if _, err := store.SetToken(makeToken(t, "alice", time.Time{})); err == nil {
		t.Fatal("expected rejection of non-numeric subject")
	}
}
