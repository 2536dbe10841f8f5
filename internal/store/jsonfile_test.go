package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/akilli-icerik/apiserver/types"
)

func newTestStore(t *testing.T) (*JSONFileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	return s, path
}

func TestJSONFileStoreCreateAndLookup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user, err := s.Create(ctx, types.User{UserIDStr: "ali123", Email: "ali@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID < 1 {
		t.Fatalf("user id = %d, want positive", user.ID)
	}

	byHandle, err := s.GetByHandle(ctx, "ali123")
	if err != nil {
		t.Fatalf("GetByHandle: %v", err)
	}
	if byHandle.ID != user.ID {
		t.Fatalf("GetByHandle id = %d, want %d", byHandle.ID, user.ID)
	}

	byEmail, err := s.GetByEmail(ctx, "ali@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("GetByEmail id = %d, want %d", byEmail.ID, user.ID)
	}

	if _, err := s.GetByHandle(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByHandle(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestJSONFileStoreDuplicateHandleOrEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, types.User{UserIDStr: "ali123", Email: "ali@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Create(ctx, types.User{UserIDStr: "ali123", Email: "other@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate handle error = %v, want ErrConflict", err)
	}
	if _, err := s.Create(ctx, types.User{UserIDStr: "veli456", Email: "ali@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestJSONFileStoreTokenRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	user, err := s.Create(ctx, types.User{UserIDStr: "ali123", Email: "ali@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.CreateToken(ctx, types.Token{AccessToken: "tok-abc", UserID: user.ID}); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	got, err := s.GetUserByToken(ctx, "tok-abc")
	if err != nil {
		t.Fatalf("GetUserByToken: %v", err)
	}
	if got.UserIDStr != "ali123" {
		t.Fatalf("GetUserByToken handle = %q, want ali123", got.UserIDStr)
	}

	if _, err := s.GetUserByToken(ctx, "never-minted"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token error = %v, want ErrNotFound", err)
	}

	// The on-disk document is a map keyed by raw token.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read user db: %v", err)
	}
	var onDisk map[string]map[string]string
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse user db: %v", err)
	}
	rec, ok := onDisk["tok-abc"]
	if !ok {
		t.Fatal("minted token missing from user db file")
	}
	if rec["user_id"] != "ali123" || rec["email"] != "ali@example.com" {
		t.Fatalf("on-disk record = %v", rec)
	}
}

func TestJSONFileStoreTokenForUnknownUser(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CreateToken(context.Background(), types.Token{AccessToken: "tok", UserID: 99})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateToken error = %v, want ErrNotFound", err)
	}
}

func TestJSONFileStoreReload(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	user, err := s.Create(ctx, types.User{UserIDStr: "ali123", Email: "ali@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CreateToken(ctx, types.Token{AccessToken: "tok-abc", UserID: user.ID}); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	reloaded, err := NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, err := reloaded.GetUserByToken(ctx, "tok-abc")
	if err != nil {
		t.Fatalf("GetUserByToken after reload: %v", err)
	}
	if got.UserIDStr != "ali123" || got.PasswordHash != "hash" {
		t.Fatalf("reloaded user = %+v", got)
	}

	if _, err := reloaded.GetByHandle(ctx, "ali123"); err != nil {
		t.Fatalf("GetByHandle after reload: %v", err)
	}
}

func TestJSONFileStoreCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := NewJSONFileStore(path); err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("user db file not created: %v", err)
	}
}
