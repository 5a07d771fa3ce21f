package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

// Identity is what the upstream sign-in provider tells us about a user.
type Identity struct {
	OpenID      string
	Name        *string
	Email       *string
	LoginMethod *string
}

// Sessions turns identities into users and tokens back into users.
type Sessions struct {
	store       storage.Store
	jwt         *JWTManager
	ownerOpenID string
}

func NewSessions(store storage.Store, jwt *JWTManager, ownerOpenID string) *Sessions {
	return &Sessions{store: store, jwt: jwt, ownerOpenID: ownerOpenID}
}

// SignIn upserts the user and issues a session token. The configured owner is always admin.
func (s *Sessions) SignIn(ctx context.Context, id Identity) (*models.User, string, error) {
	u := &models.User{
		OpenID:      id.OpenID,
		Name:        id.Name,
		Email:       id.Email,
		LoginMethod: id.LoginMethod,
	}
	if s.ownerOpenID != "" && id.OpenID == s.ownerOpenID {
		u.Role = models.RoleAdmin
	}
	user, err := s.store.UpsertUser(ctx, u)
	if err != nil {
		return nil, "", fmt.Errorf("sign in: %w", err)
	}
	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a token to its user. Tokens of deleted users are invalid.
func (s *Sessions) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.OpenID != claims.OpenID {
		return nil, ErrInvalidToken
	}
	return user, nil
}
