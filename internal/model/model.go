// Package model defines the persisted record shapes for the vault.
// All cryptographic material (names, content, keys, IVs, salts) is opaque
// ciphertext produced client-side; the service never interprets it.
package model

import "time"

// User is a registered identity. LoginHash is the server-side hash of the
// client-supplied login hash; Salt and VaultMetadata are opaque client state
// used to derive and unwrap the vault master key.
type User struct {
	ID            string    `json:"id" dynamodbav:"id"`
	Email         string    `json:"email" dynamodbav:"email"`
	LoginHash     string    `json:"-" dynamodbav:"login_hash"`
	Salt          string    `json:"salt" dynamodbav:"salt"`
	VaultMetadata string    `json:"vault_metadata,omitempty" dynamodbav:"vault_metadata"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Folder is a node in a per-user forest. ParentID is empty for root-level
// folders. The name is ciphertext paired with its IV.
type Folder struct {
	ID            string    `json:"id" dynamodbav:"id"`
	OwnerID       string    `json:"user_id" dynamodbav:"user_id"`
	EncryptedName string    `json:"name_encrypted" dynamodbav:"name_encrypted"`
	NameIV        string    `json:"name_iv" dynamodbav:"name_iv"`
	ParentID      string    `json:"parent_id,omitempty" dynamodbav:"parent_id"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
}

// File is an encrypted blob plus its key-wrap metadata. Content is write-once;
// the wrapped key and name fields are rewritten in bulk by master-password
// rotation. FolderID is empty for root placement.
type File struct {
	FileMetadata
	Content []byte `json:"-" dynamodbav:"content"`
}

// FileMetadata is a File without its content, the shape returned by list and
// metadata lookups.
type FileMetadata struct {
	ID                string    `json:"id" dynamodbav:"id"`
	OwnerID           string    `json:"user_id" dynamodbav:"user_id"`
	FolderID          string    `json:"folder_id,omitempty" dynamodbav:"folder_id"`
	EncryptedName     string    `json:"filename" dynamodbav:"filename"`
	NameIV            string    `json:"filename_iv" dynamodbav:"filename_iv"`
	Size              int64     `json:"file_size" dynamodbav:"file_size"`
	ContentIV         string    `json:"file_iv" dynamodbav:"file_iv"`
	WrappedKey        string    `json:"encrypted_file_key" dynamodbav:"encrypted_file_key"`
	KeyWrapIV         string    `json:"key_wrap_iv" dynamodbav:"key_wrap_iv"`
	PasswordProtected bool      `json:"password_protected" dynamodbav:"password_protected"`
	PasswordSalt      string    `json:"password_salt,omitempty" dynamodbav:"password_salt"`
	PasswordIV        string    `json:"password_iv,omitempty" dynamodbav:"password_iv"`
	CreatedAt         time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Activity event types.
const (
	ActivityUpload       = "UPLOAD"
	ActivityDelete       = "DELETE"
	ActivityMove         = "MOVE"
	ActivityCreateFolder = "CREATE_FOLDER"
	ActivityRenameFolder = "RENAME_FOLDER"
	ActivityMoveFolder   = "MOVE_FOLDER"
	ActivityDeleteFolder = "DELETE_FOLDER"
)

// ActivityEntry is one append-only mutation event. TS duplicates Timestamp as
// unix nanoseconds for the store's time-ordered index. NameSnapshot, when
// present, carries the subject's encrypted name at event time so the client
// can still label the event after the subject is deleted.
type ActivityEntry struct {
	ID           string    `json:"id" dynamodbav:"id"`
	OwnerID      string    `json:"user_id" dynamodbav:"user_id"`
	Type         string    `json:"type" dynamodbav:"type"`
	SubjectID    string    `json:"subject_id" dynamodbav:"subject_id"`
	Timestamp    time.Time `json:"timestamp" dynamodbav:"timestamp"`
	TS           int64     `json:"-" dynamodbav:"ts"`
	NameSnapshot string    `json:"name_snapshot,omitempty" dynamodbav:"name_snapshot"`
}

// FileKeyUpdate is one entry of a master-password rotation: the file's key
// re-wrapped under the new master key and its name re-encrypted under the
// unchanged per-file key.
type FileKeyUpdate struct {
	FileID        string `json:"file_id"`
	WrappedKey    string `json:"encrypted_file_key"`
	KeyWrapIV     string `json:"key_wrap_iv"`
	EncryptedName string `json:"encrypted_filename"`
	NameIV        string `json:"filename_iv"`
}
