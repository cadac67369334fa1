package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// TransactionsHandler serves /api/transactions.
type TransactionsHandler struct {
	svc TransactionService
}

// NewTransactionsHandler creates a TransactionsHandler.
func NewTransactionsHandler(svc TransactionService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

type lineRequest struct {
	AccountID int64  `json:"account_id"`
	Debit     amount `json:"debit_amount"`
	Credit    amount `json:"credit_amount"`
}

// transactionRequest is the body of POST and PUT. Date is YYYY-MM-DD.
type transactionRequest struct {
	Date        string        `json:"date"`
	Description string        `json:"description"`
	Lines       []lineRequest `json:"lines"`
}

func (req transactionRequest) input() (model.TransactionInput, error) {
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return model.TransactionInput{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", req.Date)
	}
	in := model.TransactionInput{Date: date, Description: req.Description}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, model.LineInput{
			AccountID: l.AccountID,
			Debit:     l.Debit.Decimal,
			Credit:    l.Credit.Decimal,
		})
	}
	return in, nil
}

func decodeTransaction(w http.ResponseWriter, r *http.Request) (model.TransactionInput, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return model.TransactionInput{}, false
	}
	in, err := req.input()
	if err != nil {
		badRequest(w, err.Error())
		return model.TransactionInput{}, false
	}
	return in, true
}

// List handles GET /api/transactions?page=&page_size=&search=&start_date=&end_date=
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	pageSize, err := intParam(q, "page_size")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rng, err := dateRange(q)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	f := model.TransactionFilter{Search: strings.TrimSpace(q.Get("search")), Range: rng}
	result, err := h.svc.List(r.Context(), f, page, pageSize)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	txnID, ok := pathID(w, r)
	if !ok {
		return
	}
	txn, err := h.svc.Get(r.Context(), txnID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, txn)
}

// Create handles POST /api/transactions and responds with the stored transaction.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	txnID, err := h.svc.Create(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}
	txn, err := h.svc.Get(r.Context(), txnID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, txn)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	txnID, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	if err := h.svc.Update(r.Context(), txnID, in); err != nil {
		WriteError(w, err)
		return
	}
	txn, err := h.svc.Get(r.Context(), txnID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, txn)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	txnID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), txnID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam returns 0 for a missing parameter so the service applies its default.
func intParam(q url.Values, name string) (int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

// dateRange reads start_date and end_date. Missing bounds stay open.
func dateRange(q url.Values) (model.DateRange, error) {
	var rng model.DateRange
	var err error
	if rng.Start, err = model.ParseDate(strings.TrimSpace(q.Get("start_date"))); err != nil {
		return rng, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", q.Get("start_date"))
	}
	if rng.End, err = model.ParseDate(strings.TrimSpace(q.Get("end_date"))); err != nil {
		return rng, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", q.Get("end_date"))
	}
	return rng, nil
}
