package vault

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/store"
)

// Tree owns the per-user folder forest. Every operation is scoped to the
// caller; a folder outside that scope behaves as absent. Destination parents
// are verified to exist and belong to the caller before placement — note
// that no cycle check is performed on move, matching the upstream behavior.
type Tree struct {
	folders store.Folders
	files   store.Files
	ledger  *Ledger
	log     logging.Logger
}

func NewTree(folders store.Folders, files store.Files, ledger *Ledger, log logging.Logger) *Tree {
	return &Tree{folders: folders, files: files, ledger: ledger, log: log}
}

// Create makes a folder under parentID ("" for root).
func (t *Tree) Create(ctx context.Context, ownerID, encryptedName, nameIV, parentID string) (*model.Folder, error) {
	if err := t.checkParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	folder := &model.Folder{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		EncryptedName: encryptedName,
		NameIV:        nameIV,
		ParentID:      parentID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := t.folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	t.ledger.Record(ctx, ownerID, model.ActivityCreateFolder, folder.ID, encryptedName)
	return folder, nil
}

// List returns all of the owner's folders, unordered.
func (t *Tree) List(ctx context.Context, ownerID string) ([]model.Folder, error) {
	return t.folders.ListByOwner(ctx, ownerID)
}

// Rename replaces the folder's name ciphertext.
func (t *Tree) Rename(ctx context.Context, ownerID, id, encryptedName, nameIV string) error {
	if err := t.folders.Rename(ctx, ownerID, id, encryptedName, nameIV); err != nil {
		return err
	}
	t.ledger.Record(ctx, ownerID, model.ActivityRenameFolder, id, encryptedName)
	return nil
}

// Move reparents the folder.
func (t *Tree) Move(ctx context.Context, ownerID, id, newParentID string) error {
	if err := t.checkParent(ctx, ownerID, newParentID); err != nil {
		return err
	}
	if err := t.folders.Move(ctx, ownerID, id, newParentID); err != nil {
		return err
	}
	t.ledger.Record(ctx, ownerID, model.ActivityMoveFolder, id, "")
	return nil
}

// Delete removes an empty folder. Both child probes (files placed in it,
// subfolders under it) run before any deletion; a match on either yields
// common.ErrNotEmpty and nothing is deleted.
func (t *Tree) Delete(ctx context.Context, ownerID, id string) error {
	hasFiles, err := t.files.AnyInFolder(ctx, ownerID, id)
	if err != nil {
		return err
	}
	hasSubfolders, err := t.folders.HasChildren(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if hasFiles || hasSubfolders {
		return common.ErrNotEmpty
	}

	if err := t.folders.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	t.ledger.Record(ctx, ownerID, model.ActivityDeleteFolder, id, "")
	return nil
}

func (t *Tree) checkParent(ctx context.Context, ownerID, parentID string) error {
	if parentID == "" {
		return nil
	}
	_, err := t.folders.Get(ctx, ownerID, parentID)
	return err
}
