package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/samrititabalt/supportchat/internal/middleware"
	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/service"
	"github.com/samrititabalt/supportchat/pkg/logger"
)

// LedgerHandler handles token ledger endpoints.
type LedgerHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(svc *service.LedgerService, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{service: svc, logger: log}
}

// Balance handles GET /api/v1/customers/:id/balance
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")
	actor := middleware.GetActor(ctx)

	// Customers may only read their own balance.
	if !actor.IsAdmin() && actor.ID != customerID {
		writeError(w, http.StatusForbidden, "cannot read another customer's balance")
		return
	}

	balance, err := h.service.CheckBalance(ctx, middleware.GetTenantID(ctx), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.BalanceResponse{
		CustomerID: customerID,
		Balance:    balance,
	})
}

// Transactions handles GET /api/v1/customers/:id/transactions
func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	records, err := h.service.Transactions(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), customerID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListTransactionsResponse{
		Transactions: records,
		Total:        len(records),
	})
}

// Credit handles POST /api/v1/customers/:id/credit
func (h *LedgerHandler) Credit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")

	var req model.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := h.service.Credit(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), customerID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.BalanceResponse{
		CustomerID: customerID,
		Balance:    balance,
	})
}

// Debit handles POST /api/v1/customers/:id/debit
func (h *LedgerHandler) Debit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")

	var req model.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := h.service.Debit(ctx, middleware.GetTenantID(ctx), middleware.GetActor(ctx), customerID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.BalanceResponse{
		CustomerID: customerID,
		Balance:    balance,
	})
}
