package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/akilli-icerik/apiserver/internal/store"
	"github.com/akilli-icerik/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// accessTokenBytes is the raw entropy of a minted token before encoding.
const accessTokenBytes = 32

// ErrInvalidCredentials is returned on any login failure. Callers must not
// distinguish "no such handle" from "wrong password".
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByHandle(ctx context.Context, handle string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// TokenRepository defines persistence operations for bearer tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token types.Token) (types.Token, error)
	GetUserByToken(ctx context.Context, accessToken string) (types.User, error)
}

// UserService encapsulates registration, login and token resolution.
type UserService struct {
	users  UserRepository
	tokens TokenRepository
}

func NewUserService(users UserRepository, tokens TokenRepository) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Register creates a new user and mints its first token. A duplicate handle
// or email surfaces as store.ErrConflict.
func (s *UserService) Register(ctx context.Context, handle, email, password string) (types.User, string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		UserIDStr:    handle,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, "", err
	}

	token, err := s.MintToken(ctx, user)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// Login verifies a handle/password pair and mints a fresh token.
func (s *UserService) Login(ctx context.Context, handle, password string) (string, error) {
	user, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.MintToken(ctx, user)
}

// MintToken generates an unguessable token, persists it against the user
// and returns the raw string. The raw string is never retrievable again.
func (s *UserService) MintToken(ctx context.Context, user types.User) (string, error) {
	raw, err := newAccessToken()
	if err != nil {
		return "", err
	}
	if _, err := s.tokens.CreateToken(ctx, types.Token{
		AccessToken: raw,
		UserID:      user.ID,
	}); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return raw, nil
}

// ResolveToken returns the owning user for a raw token string, or
// store.ErrNotFound for any string never minted.
func (s *UserService) ResolveToken(ctx context.Context, accessToken string) (types.User, error) {
	return s.tokens.GetUserByToken(ctx, accessToken)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

func newAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
