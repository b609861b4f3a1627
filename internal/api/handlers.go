/**
 * @description
 * HTTP handlers for the assistant service: the mediated invoke endpoint the
 * agent layer calls, plus direct preview/commit endpoints for the transfer
 * engine. The invoke endpoint always answers 200 with an envelope — failures
 * are classified and sanitized inside the mediator; the transfer endpoints
 * map the error taxonomy onto HTTP status codes.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/mediator"
	"github.com/imSurme/interchat-banking-assistant/internal/transfer"
)

// Handlers bundles the dependencies of the HTTP endpoints.
type Handlers struct {
	Mediator *mediator.Mediator
	Engine   *transfer.Engine
}

func NewHandlers(m *mediator.Mediator, e *transfer.Engine) *Handlers {
	return &Handlers{Mediator: m, Engine: e}
}

type invokeRequest struct {
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
}

// InvokeHandler runs one mediated operation for the authenticated customer.
func (h *Handlers) InvokeHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get customer id from context")
		return
	}

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Operation == "" {
		h.writeError(w, http.StatusBadRequest, "operation is required")
		return
	}

	env := h.Mediator.Invoke(r.Context(), req.Operation, req.Arguments, domain.CustomerContext{CustomerID: customerID})
	h.writeJSON(w, http.StatusOK, env)
}

type transferRequest struct {
	FromAccount int64           `json:"from_account"`
	ToAccount   int64           `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Note        string          `json:"note"`
	ClientRef   string          `json:"client_ref"`
}

// PreviewHandler validates a proposed transfer without committing it.
func (h *Handlers) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get customer id from context")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pre, err := h.Engine.Precheck(r.Context(), transfer.Request{
		CustomerID:  customerID,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Note:        req.Note,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pre)
}

// CommitHandler posts a transfer atomically.
func (h *Handlers) CommitHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get customer id from context")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Engine.Commit(r.Context(), transfer.Request{
		CustomerID:  customerID,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Note:        req.Note,
		ClientRef:   req.ClientRef,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.writeError(w, http.StatusInternalServerError, "The operation could not be completed")
		return
	}
	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindValidation, domain.KindCurrencyMismatch, domain.KindSchemaRejection:
		status = http.StatusUnprocessableEntity
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindLimitExceeded:
		status = http.StatusConflict
	case domain.KindRateLimited:
		status = http.StatusTooManyRequests
	case domain.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	h.writeJSON(w, status, map[string]string{"error": de.Code, "message": de.Message})
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
