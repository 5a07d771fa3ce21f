package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	name := "Ada"
	tok, err := m.Generate(&models.User{ID: 42, OpenID: "oid", Name: &name})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 || claims.OpenID != "oid" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims %+v (id=%d err=%v)", claims, id, err)
	}
}

func TestJWTRejects(t *testing.T) {
	u := &models.User{ID: 1, OpenID: "oid"}
	expired, _ := NewJWTManager("secret", -time.Minute).Generate(u)
	other, _ := NewJWTManager("other", time.Hour).Generate(u)

	m := NewJWTManager("secret", time.Hour)
	for name, tok := range map[string]string{"expired": expired, "wrong secret": other, "garbage": "not.a.jwt"} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := TokenFromRequest(r, "sid"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	r.AddCookie(&http.Cookie{Name: "sid", Value: "from-cookie"})
	if tok, _ := TokenFromRequest(r, "sid"); tok != "from-cookie" {
		t.Fatalf("cookie token: %q", tok)
	}
	r.Header.Set("Authorization", "Bearer from-header")
	if tok, _ := TokenFromRequest(r, "sid"); tok != "from-header" {
		t.Fatalf("header token should win: %q", tok)
	}
	r.Header.Set("Authorization", "Basic abc")
	if _, err := TokenFromRequest(r, "sid"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := NewSessions(store, NewJWTManager("secret", time.Hour), "owner")

	owner, tok, err := s.SignIn(ctx, Identity{OpenID: "owner"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if owner.Role != models.RoleAdmin {
		t.Fatalf("owner should be admin, got %s", owner.Role)
	}
	got, err := s.Authenticate(ctx, tok)
	if err != nil || got.ID != owner.ID {
		t.Fatalf("authenticate: %v %+v", err, got)
	}

	guest, _, err := s.SignIn(ctx, Identity{OpenID: "guest"})
	if err != nil || guest.Role != models.RoleUser {
		t.Fatalf("guest: %v %+v", err, guest)
	}

	ghost, _ := NewJWTManager("secret", time.Hour).Generate(&models.User{ID: 999, OpenID: "ghost"})
	if _, err := s.Authenticate(ctx, ghost); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown user, got %v", err)
	}
}

func TestUserContext(t *testing.T) {
	if UserFrom(context.Background()) != nil {
		t.Fatal("anonymous context should carry no user")
	}
	u := &models.User{ID: 7}
	if got := UserFrom(WithUser(context.Background(), u)); got != u {
		t.Fatalf("got %+v", got)
	}
}
