package api

import (
	"net/http"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// ReportsHandler serves /api/reports.
type ReportsHandler struct {
	svc ReportService
}

// NewReportsHandler creates a ReportsHandler.
func NewReportsHandler(svc ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

type reportResponse struct {
	Type   string       `json:"type"`
	Report model.Report `json:"report"`
}

// Get handles GET /api/reports?type=&start_date=&end_date=
// For a balance sheet, end_date is the as-of date.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := model.ParseReportKind(strings.TrimSpace(q.Get("type")))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rng, err := dateRange(q)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	report, err := h.svc.Generate(r.Context(), kind, rng)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, reportResponse{Type: kind.String(), Report: report})
}
