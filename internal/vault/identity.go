// Package vault holds the core services: identity, the folder tree, the file
// store, the activity ledger and the master-password rotation coordinator.
// Services depend on the store interfaces and never touch the persistence
// layer directly, which keeps them testable against the in-memory store.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/password"
	"github.com/secsky/secsky/backend/internal/store"
)

// Identity implements registration, authentication and credential change.
// The login hash arriving from the client is already a derived value; it is
// hashed once more for storage and never compared directly.
type Identity struct {
	users  store.Users
	hasher password.Hasher
	log    logging.Logger
}

func NewIdentity(users store.Users, hasher password.Hasher, log logging.Logger) *Identity {
	return &Identity{users: users, hasher: hasher, log: log}
}

// Register creates a new user with a fresh opaque id.
// Returns common.ErrConflict if the email is already registered.
func (s *Identity) Register(ctx context.Context, email, loginHash, salt, vaultMetadata string) (*model.User, error) {
	stored, err := s.hasher.Hash(loginHash)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	user := &model.User{
		ID:            uuid.New().String(),
		Email:         email,
		LoginHash:     stored,
		Salt:          salt,
		VaultMetadata: vaultMetadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate resolves an email and verifies the credential. A missing user
// and a wrong credential are both common.ErrUnauthorized.
func (s *Identity) Authenticate(ctx context.Context, email, loginHash string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	if !s.hasher.Verify(user.LoginHash, loginHash) {
		return nil, common.ErrUnauthorized
	}
	return user, nil
}

// Get resolves a user id, for the authenticated profile lookup.
func (s *Identity) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ChangeLoginHash swaps the stored credential after verifying the old one.
// A mismatched old credential is common.ErrBadCredential.
func (s *Identity) ChangeLoginHash(ctx context.Context, userID, oldHash, newHash string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.LoginHash, oldHash) {
		return common.ErrBadCredential
	}

	stored, err := s.hasher.Hash(newHash)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	if err := s.users.UpdateLoginHash(ctx, userID, stored); err != nil {
		return err
	}

	s.log.Info(ctx, "login credential changed", "user_id", userID)
	return nil
}
