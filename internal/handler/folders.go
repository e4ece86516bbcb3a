package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/vault"
)

// FolderHandler serves the folder-tree operations.
type FolderHandler struct {
	tree      *vault.Tree
	authority *session.Authority
	log       logging.Logger
}

func NewFolderHandler(tree *vault.Tree, authority *session.Authority, log logging.Logger) *FolderHandler {
	return &FolderHandler{tree: tree, authority: authority, log: log}
}

// List returns all of the caller's folders.
func (h *FolderHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	folders, err := h.tree.List(ctx, uid)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, folders), nil
}

type createFolderRequest struct {
	EncryptedName string `json:"name_encrypted"`
	NameIV        string `json:"name_iv"`
	ParentID      string `json:"parent_id"`
}

// Create makes a new folder.
func (h *FolderHandler) Create(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body createFolderRequest
	if err := parseBody(req, &body); err != nil || body.EncryptedName == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	folder, err := h.tree.Create(ctx, uid, body.EncryptedName, body.NameIV, body.ParentID)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, folder), nil
}

type renameFolderRequest struct {
	EncryptedName string `json:"name_encrypted"`
	NameIV        string `json:"name_iv"`
}

// Rename replaces a folder's name ciphertext.
func (h *FolderHandler) Rename(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body renameFolderRequest
	if err := parseBody(req, &body); err != nil || body.EncryptedName == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := h.tree.Rename(ctx, uid, req.PathParameters["id"], body.EncryptedName, body.NameIV); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "folder renamed"}), nil
}

// Move reparents a folder.
func (h *FolderHandler) Move(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body moveRequest
	if err := parseBody(req, &body); err != nil {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := h.tree.Move(ctx, uid, req.PathParameters["id"], body.ParentID); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "folder moved"}), nil
}

// Delete removes an empty folder.
func (h *FolderHandler) Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	if err := h.tree.Delete(ctx, uid, req.PathParameters["id"]); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "folder deleted"}), nil
}
