package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/model"
)

func TestUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	if err := users.Create(ctx, &model.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := users.Create(ctx, &model.User{ID: "u2", Email: "a@example.com"})
	if !errors.Is(err, common.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestOwnerScoping_CollapsesToNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Folders().Create(ctx, &model.Folder{ID: "f1", OwnerID: "alice"}); err != nil {
		t.Fatalf("Create folder failed: %v", err)
	}
	if err := s.Files().Put(ctx, &model.File{
		FileMetadata: model.FileMetadata{ID: "d1", OwnerID: "alice"},
		Content:      []byte("ciphertext"),
	}); err != nil {
		t.Fatalf("Put file failed: %v", err)
	}

	// Another caller's id behaves exactly like a nonexistent one.
	if _, err := s.Folders().Get(ctx, "bob", "f1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Folder Get: expected ErrNotFound, got %v", err)
	}
	if err := s.Folders().Delete(ctx, "bob", "f1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Folder Delete: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Files().Get(ctx, "bob", "d1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("File Get: expected ErrNotFound, got %v", err)
	}
	if err := s.Files().Move(ctx, "bob", "d1", ""); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("File Move: expected ErrNotFound, got %v", err)
	}

	// The owner still sees everything.
	if _, err := s.Folders().Get(ctx, "alice", "f1"); err != nil {
		t.Errorf("Owner folder Get failed: %v", err)
	}
	if _, err := s.Files().Get(ctx, "alice", "d1"); err != nil {
		t.Errorf("Owner file Get failed: %v", err)
	}
}

func TestFiles_ContentIsCopied(t *testing.T) {
	ctx := context.Background()
	files := New().Files()

	content := []byte("original")
	if err := files.Put(ctx, &model.File{
		FileMetadata: model.FileMetadata{ID: "d1", OwnerID: "alice"},
		Content:      content,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	content[0] = 'X'

	got, err := files.Get(ctx, "alice", "d1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Content) != "original" {
		t.Errorf("Stored content aliased the caller's slice: %q", got.Content)
	}
}

func TestRewrapKeys_SkipsUnowned(t *testing.T) {
	ctx := context.Background()
	files := New().Files()

	put := func(id, owner, key string) {
		t.Helper()
		err := files.Put(ctx, &model.File{
			FileMetadata: model.FileMetadata{ID: id, OwnerID: owner, WrappedKey: key},
		})
		if err != nil {
			t.Fatalf("Put %s failed: %v", id, err)
		}
	}
	put("mine", "alice", "old-wrap")
	put("theirs", "bob", "bob-wrap")

	err := files.RewrapKeys(ctx, "alice", []model.FileKeyUpdate{
		{FileID: "mine", WrappedKey: "new-wrap", KeyWrapIV: "iv2", EncryptedName: "n2", NameIV: "niv2"},
		{FileID: "theirs", WrappedKey: "stolen"},
		{FileID: "ghost", WrappedKey: "nothing"},
	})
	if err != nil {
		t.Fatalf("RewrapKeys failed: %v", err)
	}

	mine, err := files.GetMetadata(ctx, "alice", "mine")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if mine.WrappedKey != "new-wrap" || mine.KeyWrapIV != "iv2" || mine.EncryptedName != "n2" {
		t.Errorf("Owned file not rewrapped: %+v", mine)
	}

	theirs, err := files.GetMetadata(ctx, "bob", "theirs")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if theirs.WrappedKey != "bob-wrap" {
		t.Errorf("Unowned file was modified: %+v", theirs)
	}
}

func TestActivity_RecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	logs := New().Activity()

	base := time.Now().UTC()
	for i := 0; i < 15; i++ {
		err := logs.Append(ctx, &model.ActivityEntry{
			ID:      string(rune('a' + i)),
			OwnerID: "alice",
			TS:      base.Add(time.Duration(i) * time.Second).UnixNano(),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := logs.Append(ctx, &model.ActivityEntry{ID: "other", OwnerID: "bob", TS: base.UnixNano()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	recent, err := logs.Recent(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("Expected 10 entries, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i-1].TS < recent[i].TS {
			t.Fatalf("Entries not timestamp-descending at %d", i)
		}
	}
	for _, e := range recent {
		if e.OwnerID != "alice" {
			t.Errorf("Foreign entry leaked into feed: %+v", e)
		}
	}
}
