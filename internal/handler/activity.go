package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/session"
	"github.com/secsky/secsky/backend/internal/vault"
)

// ActivityHandler serves the read-only activity feed.
type ActivityHandler struct {
	ledger    *vault.Ledger
	authority *session.Authority
	log       logging.Logger
}

func NewActivityHandler(ledger *vault.Ledger, authority *session.Authority, log logging.Logger) *ActivityHandler {
	return &ActivityHandler{ledger: ledger, authority: authority, log: log}
}

// Recent returns the caller's newest events.
func (h *ActivityHandler) Recent(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	uid, err := userID(h.authority, req)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}

	entries, err := h.ledger.Recent(ctx, uid)
	if err != nil {
		return errorResponse(ctx, h.log, err), nil
	}
	return jsonResponse(http.StatusOK, entries), nil
}
