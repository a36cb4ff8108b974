package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ledgerly/internal/domain/banksync"
)

// BankSyncService is the sync engine surface exposed over HTTP.
type BankSyncService interface {
	SyncTransactionsForAccount(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error)
	SyncAllTransactions(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error)
	GetAccountBalances(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error)
	GetInstitutionInfo(ctx context.Context, institutionID string) *banksync.Institution
	GetItemStatus(ctx context.Context, familyID int64) ([]*banksync.ItemStatus, error)
	CreateLinkTokenForUpdate(ctx context.Context, itemID, userID string) (*banksync.LinkToken, error)
	RefreshItemData(ctx context.Context, itemID string) (*banksync.ItemRefreshResult, error)
}

type BankSyncHandler struct {
	service BankSyncService
}

func NewBankSyncHandler(service BankSyncService) *BankSyncHandler {
	return &BankSyncHandler{service: service}
}

type LinkTokenRequest struct {
	UserID string `json:"userId"`
}

// HandleSyncAccount pulls recent transactions for one account
func (h *BankSyncHandler) HandleSyncAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	result, err := h.service.SyncTransactionsForAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err, "Account %d: sync failed", accountID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleSyncFamily syncs every eligible account of a family
func (h *BankSyncHandler) HandleSyncFamily(w http.ResponseWriter, r *http.Request) {
	familyID, ok := int64Param(w, r, "familyID")
	if !ok {
		return
	}

	results, err := h.service.SyncAllTransactions(r.Context(), familyID)
	if err != nil {
		writeServiceError(w, err, "Family %d: sync failed", familyID)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *BankSyncHandler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	familyID, ok := int64Param(w, r, "familyID")
	if !ok {
		return
	}

	balances, err := h.service.GetAccountBalances(r.Context(), familyID)
	if err != nil {
		writeServiceError(w, err, "Family %d: balance refresh failed", familyID)
		return
	}

	writeJSON(w, http.StatusOK, balances)
}

func (h *BankSyncHandler) HandleItemStatus(w http.ResponseWriter, r *http.Request) {
	familyID, ok := int64Param(w, r, "familyID")
	if !ok {
		return
	}

	items, err := h.service.GetItemStatus(r.Context(), familyID)
	if err != nil {
		writeServiceError(w, err, "Family %d: item status failed", familyID)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleInstitution returns institution metadata, 404 when the aggregator has none
func (h *BankSyncHandler) HandleInstitution(w http.ResponseWriter, r *http.Request) {
	institutionID := chi.URLParam(r, "id")
	if institutionID == "" {
		http.Error(w, "Institution ID is required", http.StatusBadRequest)
		return
	}

	institution := h.service.GetInstitutionInfo(r.Context(), institutionID)
	if institution == nil {
		http.Error(w, "Institution not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, institution)
}

// HandleLinkToken mints an update-mode link token so the user can repair an item
func (h *BankSyncHandler) HandleLinkToken(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req LinkTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	token, err := h.service.CreateLinkTokenForUpdate(r.Context(), itemID, req.UserID)
	if err != nil {
		writeServiceError(w, err, "Item %s: link token failed", itemID)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (h *BankSyncHandler) HandleRefreshItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	result, err := h.service.RefreshItemData(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, err, "Item %s: refresh failed", itemID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeServiceError maps sync engine errors to status codes
func writeServiceError(w http.ResponseWriter, err error, format string, args ...any) {
	log.Printf(format+": %v", append(args, err)...)

	switch {
	case banksync.IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, banksync.ErrNotLinked):
		http.Error(w, "Account is not linked to a bank connection", http.StatusConflict)
	case banksync.IsUpstream(err):
		http.Error(w, "Bank data provider request failed", http.StatusBadGateway)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
