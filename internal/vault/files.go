package vault

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/store"
)

// MaxContentBytes caps an upload. Content is stored in a single document
// write next to its metadata, so the limit must fit one storage item:
// DynamoDB items are bounded at 400 KB, and the remainder is headroom for
// the metadata attributes.
const MaxContentBytes = 380 * 1024

// ListFilesLimit caps a file listing.
const ListFilesLimit = 100

// UploadInput carries the client-encrypted material for a new file. Every
// field except Size and FolderID is opaque ciphertext or IV text.
type UploadInput struct {
	EncryptedName     string
	NameIV            string
	Content           []byte
	ContentIV         string
	WrappedKey        string
	KeyWrapIV         string
	PasswordProtected bool
	PasswordSalt      string
	PasswordIV        string
	FolderID          string
	OriginalSize      int64
}

// Download is the result of a content fetch: the ciphertext plus what the
// client needs to decrypt and name it.
type Download struct {
	Content       []byte
	ContentIV     string
	EncryptedName string
	NameIV        string
}

// FilesService owns encrypted file blobs and their key-wrap metadata.
type FilesService struct {
	files   store.Files
	folders store.Folders
	ledger  *Ledger
	log     logging.Logger
}

func NewFilesService(files store.Files, folders store.Folders, ledger *Ledger, log logging.Logger) *FilesService {
	return &FilesService{files: files, folders: folders, ledger: ledger, log: log}
}

// Upload stores a new file. Content is write-once; there is no operation
// that replaces it. common.ErrPayloadTooLarge above MaxContentBytes.
func (s *FilesService) Upload(ctx context.Context, ownerID string, in UploadInput) (*model.FileMetadata, error) {
	if int64(len(in.Content)) > MaxContentBytes {
		return nil, common.ErrPayloadTooLarge
	}
	if err := s.checkFolder(ctx, ownerID, in.FolderID); err != nil {
		return nil, err
	}

	file := &model.File{
		FileMetadata: model.FileMetadata{
			ID:                uuid.New().String(),
			OwnerID:           ownerID,
			FolderID:          in.FolderID,
			EncryptedName:     in.EncryptedName,
			NameIV:            in.NameIV,
			Size:              in.OriginalSize,
			ContentIV:         in.ContentIV,
			WrappedKey:        in.WrappedKey,
			KeyWrapIV:         in.KeyWrapIV,
			PasswordProtected: in.PasswordProtected,
			PasswordSalt:      in.PasswordSalt,
			PasswordIV:        in.PasswordIV,
			CreatedAt:         time.Now().UTC(),
		},
		Content: in.Content,
	}
	if err := s.files.Put(ctx, file); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "file uploaded", "user_id", ownerID, "file_id", file.ID, "size", len(in.Content))
	s.ledger.Record(ctx, ownerID, model.ActivityUpload, file.ID, in.EncryptedName)
	meta := file.FileMetadata
	return &meta, nil
}

// Metadata returns a file without its content.
func (s *FilesService) Metadata(ctx context.Context, ownerID, id string) (*model.FileMetadata, error) {
	return s.files.GetMetadata(ctx, ownerID, id)
}

// GetContent returns the ciphertext for download. A record whose content is
// absent (a remnant of an external-blob migration) is common.ErrContentMissing,
// distinguishable from a missing record.
func (s *FilesService) GetContent(ctx context.Context, ownerID, id string) (*Download, error) {
	file, err := s.files.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if len(file.Content) == 0 {
		return nil, common.ErrContentMissing
	}
	return &Download{
		Content:       file.Content,
		ContentIV:     file.ContentIV,
		EncryptedName: file.EncryptedName,
		NameIV:        file.NameIV,
	}, nil
}

// List returns the owner's files without content, unordered, capped.
func (s *FilesService) List(ctx context.Context, ownerID string) ([]model.FileMetadata, error) {
	return s.files.List(ctx, ownerID, ListFilesLimit)
}

// Move replaces the file's placement ("" for root) after verifying the
// destination folder belongs to the caller.
func (s *FilesService) Move(ctx context.Context, ownerID, id, folderID string) error {
	if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
		return err
	}
	if err := s.files.Move(ctx, ownerID, id, folderID); err != nil {
		return err
	}
	s.ledger.Record(ctx, ownerID, model.ActivityMove, id, "")
	return nil
}

// Delete removes the file record and its content.
func (s *FilesService) Delete(ctx context.Context, ownerID, id string) error {
	meta, err := s.files.GetMetadata(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.ledger.Record(ctx, ownerID, model.ActivityDelete, id, meta.EncryptedName)
	return nil
}

func (s *FilesService) checkFolder(ctx context.Context, ownerID, folderID string) error {
	if folderID == "" {
		return nil
	}
	_, err := s.folders.Get(ctx, ownerID, folderID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrNotFound
	}
	return err
}
