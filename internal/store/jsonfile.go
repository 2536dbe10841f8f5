package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/akilli-icerik/apiserver/types"
)

// jsonUserRecord is the on-disk shape of one users.json entry. The file is
// a single JSON document keyed by raw token string.
type jsonUserRecord struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// JSONFileStore is the file-backed credential store variant. It keeps the
// whole user/token map in memory and rewrites the backing file on every
// mutation. Writes are serialized with a mutex within this process only;
// multiple processes sharing one file are not safe, matching the original
// single-writer design. Report metadata is not supported in this variant.
type JSONFileStore struct {
	mu      sync.Mutex
	path    string
	byToken map[string]jsonUserRecord
	byID    map[int]types.User
	nextID  int
}

// NewJSONFileStore loads (or creates) the users.json document at path.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{
		path:    path,
		byToken: make(map[string]jsonUserRecord),
		byID:    make(map[int]types.User),
		nextID:  1,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read user db: %w", err)
		}
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.byToken); err != nil {
			return nil, fmt.Errorf("parse user db: %w", err)
		}
	}

	// Assign stable numeric ids: one per distinct handle, in sorted token
	// order so a reload keeps the same assignment.
	tokens := make([]string, 0, len(s.byToken))
	for token := range s.byToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	seen := make(map[string]int)
	for _, token := range tokens {
		rec := s.byToken[token]
		if _, ok := seen[rec.UserID]; ok {
			continue
		}
		user := types.User{
			ID:           s.nextID,
			UserIDStr:    rec.UserID,
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
		}
		s.byID[user.ID] = user
		seen[rec.UserID] = user.ID
		s.nextID++
	}

	return s, nil
}

func (s *JSONFileStore) GetByID(ctx context.Context, id int) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (s *JSONFileStore) GetByHandle(ctx context.Context, handle string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u types.User) bool { return u.UserIDStr == handle })
}

func (s *JSONFileStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u types.User) bool { return u.Email == email })
}

func (s *JSONFileStore) Create(ctx context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.UserIDStr == user.UserIDStr || existing.Email == user.Email {
			return types.User{}, ErrConflict
		}
	}

	user.ID = s.nextID
	user.CreatedAt = time.Now()
	s.nextID++
	s.byID[user.ID] = user
	return user, nil
}

// CreateToken records a minted token against its owning user and rewrites
// the backing file.
func (s *JSONFileStore) CreateToken(ctx context.Context, token types.Token) (types.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[token.UserID]
	if !ok {
		return types.Token{}, ErrNotFound
	}

	s.byToken[token.AccessToken] = jsonUserRecord{
		UserID:       user.UserIDStr,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
	}
	if err := s.persistLocked(); err != nil {
		delete(s.byToken, token.AccessToken)
		return types.Token{}, err
	}

	token.ID = len(s.byToken)
	token.CreatedAt = time.Now()
	return token, nil
}

func (s *JSONFileStore) GetUserByToken(ctx context.Context, accessToken string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[accessToken]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return s.findLocked(func(u types.User) bool { return u.UserIDStr == rec.UserID })
}

func (s *JSONFileStore) findLocked(match func(types.User) bool) (types.User, error) {
	for _, user := range s.byID {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (s *JSONFileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.byToken, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
