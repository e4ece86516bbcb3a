package vault

import (
	"context"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/store"
)

// Rotation coordinates a master-password rotation across the identity record
// and the file collection. The caller has already, client-side, derived a new
// master key, re-wrapped each file key under it and re-encrypted each
// filename; the coordinator only persists the results.
//
// Step (a) — the user's salt and vault metadata — and step (b) — the batched
// file rewrite — are separate writes with no transaction spanning them. A
// failure between the two leaves the new salt disagreeing with some files'
// old key wrap. That gap is inherent to the storage model and is surfaced,
// not papered over with rollback logic. Concurrent rotations for the same
// user are likewise not serialized here.
type Rotation struct {
	users store.Users
	files store.Files
	log   logging.Logger
}

func NewRotation(users store.Users, files store.Files, log logging.Logger) *Rotation {
	return &Rotation{users: users, files: files, log: log}
}

// Rotate overwrites the user's salt and vault metadata, then applies the
// per-file key updates as one batched write. Updates naming files the caller
// does not own match zero records silently. Files omitted from the update
// list keep their existing key wrap; partial coverage is the caller's choice.
func (r *Rotation) Rotate(ctx context.Context, ownerID, newSalt, newVaultMetadata string, updates []model.FileKeyUpdate) error {
	if err := r.users.UpdateVaultKeys(ctx, ownerID, newSalt, newVaultMetadata); err != nil {
		return err
	}

	if err := r.files.RewrapKeys(ctx, ownerID, updates); err != nil {
		// Step (a) already committed: salt and file key wraps now disagree
		// until the client retries.
		r.log.Error(ctx, "rotation file rewrap failed after metadata update",
			"user_id", ownerID, "updates", len(updates), "error", err)
		return err
	}

	r.log.Info(ctx, "master password rotated", "user_id", ownerID, "files", len(updates))
	return nil
}
