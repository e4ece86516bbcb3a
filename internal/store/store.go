// Package store defines the persistence interfaces for the vault's four
// record collections. Implementations exist for DynamoDB (production) and an
// in-memory map (tests, dev mode).
//
// Every read or mutation that takes an ownerID is scoped to it: a record with
// a matching id but a different owner behaves exactly like an absent record
// (common.ErrNotFound). Each single-record write is atomic; nothing here
// spans records transactionally.
package store

import (
	"context"

	"github.com/secsky/secsky/backend/internal/model"
)

// Users persists identity records.
type Users interface {
	// Create inserts a new user. ErrConflict if the email is taken.
	Create(ctx context.Context, u *model.User) error

	// GetByEmail resolves a login email. ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByID resolves a user id. ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// UpdateLoginHash overwrites the stored credential hash.
	UpdateLoginHash(ctx context.Context, id, loginHash string) error

	// UpdateVaultKeys overwrites salt and vault metadata unconditionally.
	// This is rotation step (a).
	UpdateVaultKeys(ctx context.Context, id, salt, vaultMetadata string) error
}

// Folders persists the per-user folder forest. ParentID "" means root.
type Folders interface {
	Create(ctx context.Context, f *model.Folder) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Folder, error)
	Get(ctx context.Context, ownerID, id string) (*model.Folder, error)
	Rename(ctx context.Context, ownerID, id, encryptedName, nameIV string) error
	Move(ctx context.Context, ownerID, id, parentID string) error
	Delete(ctx context.Context, ownerID, id string) error

	// HasChildren reports whether any folder of the owner has the given
	// parent. Used by the non-empty deletion guard.
	HasChildren(ctx context.Context, ownerID, parentID string) (bool, error)
}

// Files persists encrypted blobs with their key-wrap metadata. Content is
// written once with the metadata in a single atomic put.
type Files interface {
	Put(ctx context.Context, f *model.File) error
	Get(ctx context.Context, ownerID, id string) (*model.File, error)
	GetMetadata(ctx context.Context, ownerID, id string) (*model.FileMetadata, error)
	List(ctx context.Context, ownerID string, limit int) ([]model.FileMetadata, error)
	Move(ctx context.Context, ownerID, id, folderID string) error
	Delete(ctx context.Context, ownerID, id string) error

	// AnyInFolder reports whether the owner has any file placed in folderID.
	AnyInFolder(ctx context.Context, ownerID, folderID string) (bool, error)

	// RewrapKeys applies rotation step (b) as one batched write: for each
	// update it overwrites the wrapped key, key-wrap IV and name fields of
	// the file matching (file_id, owner). Updates targeting files the owner
	// does not hold match zero records silently. The batch is not atomic
	// with any other write.
	RewrapKeys(ctx context.Context, ownerID string, updates []model.FileKeyUpdate) error
}

// Activity is the append-only mutation ledger.
type Activity interface {
	Append(ctx context.Context, e *model.ActivityEntry) error

	// Recent returns the owner's newest entries, timestamp-descending.
	Recent(ctx context.Context, ownerID string, limit int) ([]model.ActivityEntry, error)
}
