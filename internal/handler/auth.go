package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/vault"
)

const cookieMaxAge = 60 * 60 * 24 * 30 // matches the 30-day session lifetime

// AuthHandler serves registration, login/logout, profile, login-password
// change and master-password rotation.
type AuthHandler struct {
	identity  *vault.Identity
	rotation  *vault.Rotation
	authority *session.Authority
	log       logging.Logger
}

func NewAuthHandler(identity *vault.Identity, rotation *vault.Rotation, authority *session.Authority, log logging.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, rotation: rotation, authority: authority, log: log}
}

type registerRequest struct {
	Email         string `json:"email"`
	LoginHash     string `json:"password"`
	Salt          string `json:"salt"`
	VaultMetadata string `json:"vault_metadata"`
}

// Register creates the user and logs them straight in.
func (h *AuthHandler) Register(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body registerRequest
	if err := parseBody(req, &body); err != nil || body.Email == "" || body.LoginHash == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	user, err := h.identity.Register(ctx, body.Email, body.LoginHash, body.Salt, body.VaultMetadata)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	token, err := h.authority.Issue(user.ID, user.Email)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	resp := jsonResponse(http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
	return withSessionCookie(resp, token), nil
}

type loginRequest struct {
	Email     string `json:"email"`
	LoginHash string `json:"password"`
}

// Login verifies the credential and returns the client-side key material
// (salt, vault metadata) alongside the session cookie.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body loginRequest
	if err := parseBody(req, &body); err != nil || body.Email == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	user, err := h.identity.Authenticate(ctx, body.Email, body.LoginHash)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	token, err := h.authority.Issue(user.ID, user.Email)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	resp := jsonResponse(http.StatusOK, map[string]string{
		"user_id":        user.ID,
		"salt":           user.Salt,
		"vault_metadata": user.VaultMetadata,
	})
	return withSessionCookie(resp, token), nil
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := jsonResponse(http.StatusOK, map[string]string{"message": "logged out"})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {fmt.Sprintf("%s=; HttpOnly; Path=/; Max-Age=0; SameSite=None; Secure", sessionCookie)},
	}
	return resp, nil
}

// Me returns the authenticated user's profile and key material.
func (h *AuthHandler) Me(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	user, err := h.identity.Get(ctx, uid)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, user), nil
}

type changeLoginPasswordRequest struct {
	OldLoginHash string `json:"old_password"`
	NewLoginHash string `json:"new_password"`
}

// ChangeLoginPassword swaps the login credential.
func (h *AuthHandler) ChangeLoginPassword(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body changeLoginPasswordRequest
	if err := parseBody(req, &body); err != nil || body.NewLoginHash == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := h.identity.ChangeLoginHash(ctx, uid, body.OldLoginHash, body.NewLoginHash); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "login password updated"}), nil
}

type changeMasterPasswordRequest struct {
	Salt          string                `json:"salt"`
	VaultMetadata string                `json:"vault_metadata"`
	FileUpdates   []model.FileKeyUpdate `json:"file_updates"`
}

// ChangeMasterPassword runs the rotation protocol: new salt and vault
// metadata, plus the batched per-file key rewrap.
func (h *AuthHandler) ChangeMasterPassword(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	var body changeMasterPasswordRequest
	if err := parseBody(req, &body); err != nil || body.Salt == "" {
		return detailResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := h.rotation.Rotate(ctx, uid, body.Salt, body.VaultMetadata, body.FileUpdates); err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"message": "master password and keys updated"}), nil
}

func withSessionCookie(resp events.APIGatewayProxyResponse, token string) events.APIGatewayProxyResponse {
	cookie := fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=None; Secure",
		sessionCookie, token, cookieMaxAge)
	if resp.MultiValueHeaders == nil {
		resp.MultiValueHeaders = map[string][]string{}
	}
	resp.MultiValueHeaders["Set-Cookie"] = []string{cookie}
	return resp
}
