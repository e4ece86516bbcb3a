// Package memory is a map-backed implementation of the store interfaces,
// used by tests and DEV_MODE. It mirrors the DynamoDB implementation's
// semantics: owner scoping collapses to not-found, single-record writes are
// atomic under one mutex, and the rotation batch skips unowned targets.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/model"
)

// Store holds all four collections behind one mutex. The per-collection
// views returned by Users, Folders, Files and Activity satisfy the
// corresponding store interfaces.
type Store struct {
	mu      sync.RWMutex
	users   map[string]model.User
	folders map[string]model.Folder
	files   map[string]model.File
	logs    []model.ActivityEntry
}

func New() *Store {
	return &Store{
		users:   make(map[string]model.User),
		folders: make(map[string]model.Folder),
		files:   make(map[string]model.File),
	}
}

func (s *Store) Users() *UserStore      { return &UserStore{s} }
func (s *Store) Folders() *FolderStore  { return &FolderStore{s} }
func (s *Store) Files() *FileStore      { return &FileStore{s} }
func (s *Store) Activity() *ActivityLog { return &ActivityLog{s} }

// UserStore implements store.Users.
type UserStore struct{ s *Store }

func (u *UserStore) Create(ctx context.Context, rec *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == rec.Email {
			return common.ErrConflict
		}
	}
	u.s.users[rec.ID] = *rec
	return nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, rec := range u.s.users {
		if rec.Email == email {
			out := rec
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (u *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	rec, ok := u.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (u *UserStore) UpdateLoginHash(ctx context.Context, id, loginHash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	rec, ok := u.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	rec.LoginHash = loginHash
	u.s.users[id] = rec
	return nil
}

func (u *UserStore) UpdateVaultKeys(ctx context.Context, id, salt, vaultMetadata string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	rec, ok := u.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	rec.Salt = salt
	rec.VaultMetadata = vaultMetadata
	u.s.users[id] = rec
	return nil
}

// FolderStore implements store.Folders.
type FolderStore struct{ s *Store }

func (f *FolderStore) Create(ctx context.Context, rec *model.Folder) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.folders[rec.ID] = *rec
	return nil
}

func (f *FolderStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Folder, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var out []model.Folder
	for _, rec := range f.s.folders {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *FolderStore) Get(ctx context.Context, ownerID, id string) (*model.Folder, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	rec, ok := f.s.folders[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (f *FolderStore) Rename(ctx context.Context, ownerID, id, encryptedName, nameIV string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rec, ok := f.s.folders[id]
	if !ok || rec.OwnerID != ownerID {
		return common.ErrNotFound
	}
	rec.EncryptedName = encryptedName
	rec.NameIV = nameIV
	f.s.folders[id] = rec
	return nil
}

func (f *FolderStore) Move(ctx context.Context, ownerID, id, parentID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rec, ok := f.s.folders[id]
	if !ok || rec.OwnerID != ownerID {
		return common.ErrNotFound
	}
	rec.ParentID = parentID
	f.s.folders[id] = rec
	return nil
}

func (f *FolderStore) Delete(ctx context.Context, ownerID, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rec, ok := f.s.folders[id]
	if !ok || rec.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(f.s.folders, id)
	return nil
}

func (f *FolderStore) HasChildren(ctx context.Context, ownerID, parentID string) (bool, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	for _, rec := range f.s.folders {
		if rec.OwnerID == ownerID && rec.ParentID == parentID {
			return true, nil
		}
	}
	return false, nil
}

// FileStore implements store.Files.
type FileStore struct{ s *Store }

func (f *FileStore) Put(ctx context.Context, rec *model.File) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *rec
	cp.Content = append([]byte(nil), rec.Content...)
	f.s.files[rec.ID] = cp
	return nil
}

func (f *FileStore) Get(ctx context.Context, ownerID, id string) (*model.File, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	rec, ok := f.s.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	cp := rec
	cp.Content = append([]byte(nil), rec.Content...)
	return &cp, nil
}

func (f *FileStore) GetMetadata(ctx context.Context, ownerID, id string) (*model.FileMetadata, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	rec, ok := f.s.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	meta := rec.FileMetadata
	return &meta, nil
}

func (f *FileStore) List(ctx context.Context, ownerID string, limit int) ([]model.FileMetadata, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var out []model.FileMetadata
	for _, rec := range f.s.files {
		if rec.OwnerID != ownerID {
			continue
		}
		out = append(out, rec.FileMetadata)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *FileStore) Move(ctx context.Context, ownerID, id, folderID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rec, ok := f.s.files[id]
	if !ok || rec.OwnerID != ownerID {
		return common.ErrNotFound
	}
	rec.FolderID = folderID
	f.s.files[id] = rec
	return nil
}

func (f *FileStore) Delete(ctx context.Context, ownerID, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rec, ok := f.s.files[id]
	if !ok || rec.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(f.s.files, id)
	return nil
}

func (f *FileStore) AnyInFolder(ctx context.Context, ownerID, folderID string) (bool, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	for _, rec := range f.s.files {
		if rec.OwnerID == ownerID && rec.FolderID == folderID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FileStore) RewrapKeys(ctx context.Context, ownerID string, updates []model.FileKeyUpdate) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, up := range updates {
		rec, ok := f.s.files[up.FileID]
		if !ok || rec.OwnerID != ownerID {
			continue // zero-match, never an error
		}
		rec.WrappedKey = up.WrappedKey
		rec.KeyWrapIV = up.KeyWrapIV
		rec.EncryptedName = up.EncryptedName
		rec.NameIV = up.NameIV
		f.s.files[up.FileID] = rec
	}
	return nil
}

// ActivityLog implements store.Activity.
type ActivityLog struct{ s *Store }

func (a *ActivityLog) Append(ctx context.Context, e *model.ActivityEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.logs = append(a.s.logs, *e)
	return nil
}

func (a *ActivityLog) Recent(ctx context.Context, ownerID string, limit int) ([]model.ActivityEntry, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []model.ActivityEntry
	for _, e := range a.s.logs {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
