package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/password"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/store/memory"
	"github.com/secsky/secsky/backend/internal/vault"
)

type fixture struct {
	auth      *AuthHandler
	files     *FileHandler
	folders   *FolderHandler
	activity  *ActivityHandler
	authority *session.Authority
	ledger    *vault.Ledger
}

func newFixture() *fixture {
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	st := memory.New()
	authority := session.NewAuthority([]byte("test-secret"), 0)
	ledger := vault.NewLedger(st.Activity(), log)
	identity := vault.NewIdentity(st.Users(), password.NewMockHasher(), log)
	tree := vault.NewTree(st.Folders(), st.Files(), ledger, log)
	files := vault.NewFilesService(st.Files(), st.Folders(), ledger, log)
	rotation := vault.NewRotation(st.Users(), st.Files(), log)
	return &fixture{
		auth:      NewAuthHandler(identity, rotation, authority, log),
		files:     NewFileHandler(files, authority, log),
		folders:   NewFolderHandler(tree, authority, log),
		activity:  NewActivityHandler(ledger, authority, log),
		authority: authority,
		ledger:    ledger,
	}
}

func jsonReq(t *testing.T, body any) events.APIGatewayProxyRequest {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return events.APIGatewayProxyRequest{Body: string(raw)}
}

func withToken(req events.APIGatewayProxyRequest, token string) events.APIGatewayProxyRequest {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	return req
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body, err)
	}
	return out
}

// register creates a user through the handler and returns a session token.
func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), jsonReq(t, map[string]string{
		"email":          email,
		"password":       "login-hash",
		"salt":           "salt",
		"vault_metadata": "meta",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Register status %d: %s", resp.StatusCode, resp.Body)
	}
	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 1 || !strings.Contains(cookies[0], "HttpOnly") {
		t.Fatalf("Expected one HttpOnly session cookie, got %v", cookies)
	}
	token := strings.TrimPrefix(strings.SplitN(cookies[0], ";", 2)[0], sessionCookie+"=")
	if token == "" {
		t.Fatal("Empty session token in cookie")
	}
	return token
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture()
	f.register(t, "a@example.com")

	resp, err := f.auth.Register(context.Background(), jsonReq(t, map[string]string{
		"email":    "a@example.com",
		"password": "other",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture()
	f.register(t, "a@example.com")
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, jsonReq(t, map[string]string{
		"email":    "a@example.com",
		"password": "login-hash",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login status %d: %s", resp.StatusCode, resp.Body)
	}
	body := decodeBody(t, resp)
	if body["salt"] != "salt" || body["vault_metadata"] != "meta" {
		t.Errorf("Login must return key material, got %v", body)
	}

	resp, err = f.auth.Login(ctx, jsonReq(t, map[string]string{
		"email":    "a@example.com",
		"password": "wrong",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Wrong credential: expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp, err := f.files.List(ctx, events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("No token: expected 401, got %d", resp.StatusCode)
	}

	resp, err = f.files.List(ctx, withToken(events.APIGatewayProxyRequest{}, "garbage"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Bad token: expected 401, got %d", resp.StatusCode)
	}
}

func TestTokenFromCookie(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")

	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{"Cookie": "other=1; " + sessionCookie + "=" + token},
	}
	resp, err := f.files.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Cookie auth: expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestUploadDownload(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")
	ctx := context.Background()

	content := []byte("ciphertext blob")
	resp, err := f.files.Upload(ctx, withToken(jsonReq(t, map[string]any{
		"content":            base64.StdEncoding.EncodeToString(content),
		"file_iv":            "civ",
		"encrypted_filename": "ename",
		"filename_iv":        "niv",
		"encrypted_file_key": "ekey",
		"key_wrap_iv":        "kiv",
		"original_size":      15,
	}), token))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload status %d: %s", resp.StatusCode, resp.Body)
	}
	fileID, _ := decodeBody(t, resp)["file_id"].(string)
	if fileID == "" {
		t.Fatalf("Upload returned no file id: %s", resp.Body)
	}

	dlReq := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": fileID},
	}, token)
	resp, err = f.files.Download(ctx, dlReq)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Download status %d: %s", resp.StatusCode, resp.Body)
	}
	body := decodeBody(t, resp)
	got, err := base64.StdEncoding.DecodeString(body["content"].(string))
	if err != nil {
		t.Fatalf("Content not base64: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Content mismatch: %q", got)
	}
	if body["file_iv"] != "civ" || body["filename"] != "ename" || body["filename_iv"] != "niv" {
		t.Errorf("Unexpected download metadata: %v", body)
	}
}

func TestDownload_MissingContent(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")
	ctx := context.Background()

	resp, err := f.files.Upload(ctx, withToken(jsonReq(t, map[string]any{
		"content":            "",
		"encrypted_filename": "hollow",
	}), token))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	fileID := decodeBody(t, resp)["file_id"].(string)

	req := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": fileID},
	}, token)
	resp, err = f.files.Download(ctx, req)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 for contentless record, got %d: %s", resp.StatusCode, resp.Body)
	}
	if decodeBody(t, resp)["detail"] != "file content not found" {
		t.Errorf("Unexpected detail: %s", resp.Body)
	}
}

func TestFileIsolationAcrossUsers(t *testing.T) {
	f := newFixture()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")
	ctx := context.Background()

	resp, err := f.files.Upload(ctx, withToken(jsonReq(t, map[string]any{
		"content":            base64.StdEncoding.EncodeToString([]byte("x")),
		"encrypted_filename": "ename",
	}), alice))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	fileID := decodeBody(t, resp)["file_id"].(string)

	req := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": fileID},
	}, bob)
	resp, err = f.files.Metadata(ctx, req)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Foreign file must be 404, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestFolderLifecycle(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")
	ctx := context.Background()

	resp, err := f.folders.Create(ctx, withToken(jsonReq(t, map[string]string{
		"name_encrypted": "enc",
		"name_iv":        "iv",
	}), token))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Create failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	folderID := decodeBody(t, resp)["id"].(string)

	resp, err = f.files.Upload(ctx, withToken(jsonReq(t, map[string]any{
		"content":            base64.StdEncoding.EncodeToString([]byte("x")),
		"encrypted_filename": "ename",
		"folder_id":          folderID,
	}), token))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	fileID := decodeBody(t, resp)["file_id"].(string)

	// Delete is refused while the folder holds a file.
	delReq := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": folderID},
	}, token)
	resp, err = f.folders.Delete(ctx, delReq)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Non-empty delete: expected 400, got %d: %s", resp.StatusCode, resp.Body)
	}

	fileDel := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": fileID},
	}, token)
	resp, err = f.files.Delete(ctx, fileDel)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("File delete failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}

	resp, err = f.folders.Delete(ctx, delReq)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Emptied folder delete failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
}

func TestChangeMasterPassword(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")
	ctx := context.Background()

	resp, err := f.files.Upload(ctx, withToken(jsonReq(t, map[string]any{
		"content":            base64.StdEncoding.EncodeToString([]byte("x")),
		"encrypted_filename": "old-name",
		"encrypted_file_key": "old-key",
	}), token))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	fileID := decodeBody(t, resp)["file_id"].(string)

	resp, err = f.auth.ChangeMasterPassword(ctx, withToken(jsonReq(t, map[string]any{
		"salt":           "new-salt",
		"vault_metadata": "new-meta",
		"file_updates": []map[string]string{{
			"file_id":            fileID,
			"encrypted_file_key": "new-key",
			"key_wrap_iv":        "new-kiv",
			"encrypted_filename": "new-name",
			"filename_iv":        "new-niv",
		}},
	}), token))
	if err != nil {
		t.Fatalf("ChangeMasterPassword failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ChangeMasterPassword status %d: %s", resp.StatusCode, resp.Body)
	}

	resp, err = f.auth.Login(ctx, jsonReq(t, map[string]string{
		"email":    "a@example.com",
		"password": "login-hash",
	}))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Login failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	body := decodeBody(t, resp)
	if body["salt"] != "new-salt" || body["vault_metadata"] != "new-meta" {
		t.Errorf("Rotation did not update key material: %v", body)
	}

	metaReq := withToken(events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"id": fileID},
	}, token)
	resp, err = f.files.Metadata(ctx, metaReq)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Metadata failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	meta := decodeBody(t, resp)
	if meta["encrypted_file_key"] != "new-key" || meta["filename"] != "new-name" {
		t.Errorf("File key wrap not rotated: %v", meta)
	}
}

func TestRecentActivity(t *testing.T) {
	f := newFixture()
	token := f.register(t, "a@example.com")
	ctx := context.Background()

	resp, err := f.folders.Create(ctx, withToken(jsonReq(t, map[string]string{
		"name_encrypted": "enc",
		"name_iv":        "iv",
	}), token))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Create failed: %v %d %s", err, resp.StatusCode, resp.Body)
	}
	f.ledger.Flush()

	resp, err = f.activity.Recent(ctx, withToken(events.APIGatewayProxyRequest{}, token))
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Recent status %d: %s", resp.StatusCode, resp.Body)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0]["type"] != "CREATE_FOLDER" {
		t.Errorf("Unexpected feed: %v", entries)
	}
}
