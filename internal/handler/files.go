package handler

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/vault"
)

// FileHandler serves the encrypted-file operations.
type FileHandler struct {
	files     *vault.FilesService
	authority *session.Authority
	log       logging.Logger
}

func NewFileHandler(files *vault.FilesService, authority *session.Authority, log logging.Logger) *FileHandler {
	return &FileHandler{files: files, authority: authority, log: log}
}

// List returns the caller's files without content.
func (h *FileHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	files, err := h.files.List(ctx, uid)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, files), nil
}

type uploadRequest struct {
	Content           string `json:"content"` // base64 ciphertext
	ContentIV         string `json:"file_iv"`
	EncryptedName     string `json:"encrypted_filename"`
	NameIV            string `json:"filename_iv"`
	WrappedKey        string `json:"encrypted_file_key"`
	KeyWrapIV         string `json:"key_wrap_iv"`
	PasswordProtected bool   `json:"requires_file_password"`
	PasswordSalt      string `json:"password_salt"`
	PasswordIV        string `json:"password_iv"`
	FolderID          string `json:"folder_id"`
	OriginalSize      int64  `json:"original_size"`
}

// Upload stores a new encrypted file.
func (h *FileHandler) Upload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body uploadRequest
	if err := parseBody(req, &body); err != nil || body.EncryptedName == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		return detailResponse(http.StatusBadRequest, "invalid content encoding"), nil
	}

	meta, err := h.files.Upload(ctx, uid, vault.UploadInput{
		EncryptedName:     body.EncryptedName,
		NameIV:            body.NameIV,
		Content:           content,
		ContentIV:         body.ContentIV,
		WrappedKey:        body.WrappedKey,
		KeyWrapIV:         body.KeyWrapIV,
		PasswordProtected: body.PasswordProtected,
		PasswordSalt:      body.PasswordSalt,
		PasswordIV:        body.PasswordIV,
		FolderID:          body.FolderID,
		OriginalSize:      body.OriginalSize,
	})
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"message": "file uploaded",
		"id":      meta.ID,
		"file_id": meta.ID,
	}), nil
}

// Metadata returns a single file without content.
func (h *FileHandler) Metadata(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	meta, err := h.files.Metadata(ctx, uid, req.PathParameters["id"])
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, meta), nil
}

// Download returns the ciphertext with the metadata the client needs to
// decrypt it. Content travels base64-encoded in the JSON body.
func (h *FileHandler) Download(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	dl, err := h.files.GetContent(ctx, uid, req.PathParameters["id"])
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"content":     base64.StdEncoding.EncodeToString(dl.Content),
		"file_iv":     dl.ContentIV,
		"filename":    dl.EncryptedName,
		"filename_iv": dl.NameIV,
	}), nil
}

type moveRequest struct {
	FolderID string `json:"folder_id"`
	ParentID string `json:"parent_id"`
}

// Move replaces the file's folder placement.
func (h *FileHandler) Move(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body moveRequest
	if err := parseBody(req, &body); err != nil {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := h.files.Move(ctx, uid, req.PathParameters["id"], body.FolderID); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "file moved"}), nil
}

// Delete removes a file.
func (h *FileHandler) Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	if err := h.files.Delete(ctx, uid, req.PathParameters["id"]); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "file deleted"}), nil
}
