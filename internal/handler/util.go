// Package handler maps API Gateway requests onto the vault services and
// translates the service error taxonomy into HTTP status codes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/session"
)

const sessionCookie = "access_token"

// tokenFromRequest pulls the raw session token from the Authorization header
// or the session cookie. A "Bearer " prefix is tolerated in both places.
func tokenFromRequest(req events.APIGatewayProxyRequest) string {
	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	if auth := getHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	for _, part := range strings.Split(getHeader("Cookie"), ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, sessionCookie+"=") {
			token := strings.TrimPrefix(part, sessionCookie+"=")
			return strings.TrimPrefix(token, "Bearer ")
		}
	}
	return ""
}

// userID authenticates the request and returns the caller's identity.
func userID(authority *session.Authority, req events.APIGatewayProxyRequest) (string, error) {
	return authority.Verify(tokenFromRequest(req))
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func detailResponse(status int, detail string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"detail": detail})
}

// errorResponse maps a service error to a response. Taxonomy errors carry
// their short stable message; anything unclassified is logged server-side and
// returned as an opaque 500.
func errorResponse(ctx context.Context, log logging.Logger, err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, common.ErrContentMissing):
		return detailResponse(http.StatusNotFound, common.ErrContentMissing.Error())
	case errors.Is(err, common.ErrNotFound):
		return detailResponse(http.StatusNotFound, common.ErrNotFound.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return detailResponse(http.StatusUnauthorized, common.ErrUnauthorized.Error())
	case errors.Is(err, common.ErrBadCredential):
		return detailResponse(http.StatusUnauthorized, common.ErrBadCredential.Error())
	case errors.Is(err, common.ErrConflict):
		return detailResponse(http.StatusConflict, common.ErrConflict.Error())
	case errors.Is(err, common.ErrNotEmpty):
		return detailResponse(http.StatusBadRequest, common.ErrNotEmpty.Error())
	case errors.Is(err, common.ErrPayloadTooLarge):
		return detailResponse(http.StatusRequestEntityTooLarge, common.ErrPayloadTooLarge.Error())
	default:
		log.Error(ctx, "unclassified handler error", "error", err)
		return detailResponse(http.StatusInternalServerError, "internal server error")
	}
}

func parseBody(req events.APIGatewayProxyRequest, v any) error {
	return json.Unmarshal([]byte(req.Body), v)
}
