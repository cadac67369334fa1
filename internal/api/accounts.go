package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

// AccountsHandler serves /api/accounts.
type AccountsHandler struct {
	svc AccountService
}

// NewAccountsHandler creates an AccountsHandler.
func NewAccountsHandler(svc AccountService) *AccountsHandler {
	return &AccountsHandler{svc: svc}
}

// List handles GET /api/accounts?search=&type=
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.AccountFilter{Search: strings.TrimSpace(q.Get("search"))}
	if t := strings.TrimSpace(q.Get("type")); t != "" {
		typ, ok := model.ParseAccountType(t)
		if !ok {
			badRequest(w, "invalid account type: "+t)
			return
		}
		f.Type = typ
	}

	accounts, err := h.svc.List(r.Context(), f)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, accounts)
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), accountID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	a, err := h.svc.Create(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

// Update handles PUT /api/accounts/{id}
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	var in model.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	a, err := h.svc.Update(r.Context(), accountID, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), accountID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} URL parameter, writing a 400 if it is invalid.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := id.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err.Error())
		return 0, false
	}
	return n, true
}
