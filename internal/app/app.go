// Package app wires the vault services together and routes API Gateway
// requests to the handlers.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/secsky/secsky/backend/internal/config"
	"github.com/secsky/secsky/backend/internal/handler"
	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/password"
	"github.com/secsky/secsky/backend/internal/secret"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/store"
	"github.com/secsky/secsky/backend/internal/store/dynamo"
	"github.com/secsky/secsky/backend/internal/store/memory"
	"github.com/secsky/secsky/backend/internal/vault"
)

type stores struct {
	users    store.Users
	folders  store.Folders
	files    store.Files
	activity store.Activity
}

// App holds the wired handlers and routes requests to them.
type App struct {
	cfg      *config.Config
	log      logging.Logger
	auth     *handler.AuthHandler
	files    *handler.FileHandler
	folders  *handler.FolderHandler
	activity *handler.ActivityHandler

	originVerifySecret string
}

// New initializes the application. In dev mode the store is in-memory and
// secrets come from environment variables; otherwise DynamoDB and SSM.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	log := logging.NewDefault()

	var st stores
	var resolver secret.Resolver
	if cfg.DevMode {
		mem := memory.New()
		st = stores{mem.Users(), mem.Folders(), mem.Files(), mem.Activity()}
		resolver = secret.NewEnvResolver()
		log.Info(ctx, "dev mode: in-memory store, env secrets")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithDialerOptions(func(d *net.Dialer) {
				d.Timeout = cfg.ConnectTimeout
			})),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		db := dynamo.New(dynamodb.NewFromConfig(awsCfg), dynamo.Tables{
			Users:    cfg.UsersTable,
			Folders:  cfg.FoldersTable,
			Files:    cfg.FilesTable,
			Activity: cfg.ActivityTable,
		})
		st = stores{db.Users(), db.Folders(), db.Files(), db.Activity()}
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
	}

	jwtSecret, err := resolver.GetSecret(ctx, cfg.JWTSecretParam)
	if err != nil {
		if !cfg.DevMode {
			return nil, fmt.Errorf("resolve jwt secret: %w", err)
		}
		log.Warn(ctx, "jwt secret not configured, using dev default")
		jwtSecret = "dev-insecure-secret"
	}

	originVerifySecret, err := resolver.GetSecret(ctx, cfg.OriginVerifySecretParam)
	if err != nil && !cfg.DevMode {
		log.Warn(ctx, "origin-verify secret not resolved", "error", err)
	}

	authority := session.NewAuthority([]byte(jwtSecret), cfg.SessionLifetime)
	hasher := password.NewBcryptHasher()

	ledger := vault.NewLedger(st.activity, log)
	identity := vault.NewIdentity(st.users, hasher, log)
	tree := vault.NewTree(st.folders, st.files, ledger, log)
	files := vault.NewFilesService(st.files, st.folders, ledger, log)
	rotation := vault.NewRotation(st.users, st.files, log)

	return &App{
		cfg:                cfg,
		log:                log,
		auth:               handler.NewAuthHandler(identity, rotation, authority, log),
		files:              handler.NewFileHandler(files, authority, log),
		folders:            handler.NewFolderHandler(tree, authority, log),
		activity:           handler.NewActivityHandler(ledger, authority, log),
		originVerifySecret: originVerifySecret,
	}, nil
}

// Config returns the loaded runtime configuration.
func (a *App) Config() *config.Config { return a.cfg }

// HandleRequest routes one API Gateway request.
func (a *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimPrefix(req.Path, "/api")
	method := req.HTTPMethod

	if method == http.MethodOptions {
		return a.finish(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Production traffic must arrive through the CDN, which stamps the
	// shared origin-verify header.
	if !a.cfg.DevMode && a.originVerifySecret != "" {
		if header(req, "X-Origin-Verify") != a.originVerifySecret {
			return a.finish(events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       `{"detail":"forbidden"}`,
			}), nil
		}
	}

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	resp, err := a.route(ctx, path, method, req)
	if err != nil {
		a.log.Error(ctx, "handler error", "method", method, "path", path, "error", err)
		resp = events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"detail":"internal server error"}`,
		}
	}
	return a.finish(resp), nil
}

func (a *App) route(ctx context.Context, path, method string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if path == "/health" && method == http.MethodGet {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: `{"status":"ok"}`}, nil
	}

	if strings.HasPrefix(path, "/auth/") {
		switch {
		case path == "/auth/register" && method == http.MethodPost:
			return a.auth.Register(ctx, req)
		case path == "/auth/login" && method == http.MethodPost:
			return a.auth.Login(ctx, req)
		case path == "/auth/logout" && method == http.MethodPost:
			return a.auth.Logout(ctx, req)
		case path == "/auth/me" && method == http.MethodGet:
			return a.auth.Me(ctx, req)
		case path == "/auth/login-password" && method == http.MethodPut:
			return a.auth.ChangeLoginPassword(ctx, req)
		case path == "/auth/master-password" && method == http.MethodPut:
			return a.auth.ChangeMasterPassword(ctx, req)
		}
	}

	if (path == "/files" || path == "/files/") && method == http.MethodGet {
		return a.files.List(ctx, req)
	}
	if path == "/files/upload" && method == http.MethodPost {
		return a.files.Upload(ctx, req)
	}
	if strings.HasPrefix(path, "/files/") {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		switch {
		case len(parts) == 2:
			req.PathParameters["id"] = parts[1]
			switch method {
			case http.MethodGet:
				return a.files.Metadata(ctx, req)
			case http.MethodDelete:
				return a.files.Delete(ctx, req)
			}
		case len(parts) == 3:
			req.PathParameters["id"] = parts[1]
			switch {
			case parts[2] == "download" && method == http.MethodGet:
				return a.files.Download(ctx, req)
			case parts[2] == "move" && method == http.MethodPut:
				return a.files.Move(ctx, req)
			}
		}
	}

	if path == "/folders" || path == "/folders/" {
		switch method {
		case http.MethodGet:
			return a.folders.List(ctx, req)
		case http.MethodPost:
			return a.folders.Create(ctx, req)
		}
	}
	if strings.HasPrefix(path, "/folders/") {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		switch {
		case len(parts) == 2 && method == http.MethodDelete:
			req.PathParameters["id"] = parts[1]
			return a.folders.Delete(ctx, req)
		case len(parts) == 3 && method == http.MethodPut:
			req.PathParameters["id"] = parts[1]
			switch parts[2] {
			case "rename":
				return a.folders.Rename(ctx, req)
			case "move":
				return a.folders.Move(ctx, req)
			}
		}
	}

	if path == "/activity/recent" && method == http.MethodGet {
		return a.activity.Recent(ctx, req)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf(`{"detail":"no route: %s %s"}`, method, path),
	}, nil
}

// finish stamps CORS and security headers on every response.
func (a *App) finish(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = a.cfg.FrontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"

	resp.Headers["Strict-Transport-Security"] = "max-age=31536000; includeSubDomains"
	resp.Headers["X-Content-Type-Options"] = "nosniff"
	resp.Headers["X-Frame-Options"] = "DENY"
	resp.Headers["Content-Security-Policy"] = "default-src 'self'"
	return resp
}

func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
