package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"teampower/internal/core"
	"teampower/internal/export"
	applog "teampower/internal/log"
)

// amountInput takes the amount as a JSON number or a string and keeps its
// literal text, so decimal values keep their exact representation.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountInput(s)
		return nil
	}
	// Anything else is kept verbatim and rejected by ParseAmount if not numeric.
	*a = amountInput(strings.TrimSpace(string(b)))
	return nil
}

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Date              string      `json:"date"`
	CostCenterProject string      `json:"cost_center_project"`
	CostCenterSOW     string      `json:"cost_center_sow"`
	SOWNumber         string      `json:"sow_number"`
	PONumber          string      `json:"po"`
	Amount            amountInput `json:"amount"`
	Category          string      `json:"category"`
	Type              string      `json:"type"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	d, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:              d,
		CostCenterProject: strings.TrimSpace(req.CostCenterProject),
		CostCenterSOW:     strings.TrimSpace(req.CostCenterSOW),
		SOWNumber:         strings.TrimSpace(req.SOWNumber),
		PONumber:          strings.TrimSpace(req.PONumber),
		Amount:            amount,
		Category:          core.Category(strings.TrimSpace(req.Category)),
		Type:              core.Type(strings.TrimSpace(req.Type)),
	}
	return t, t.Validate()
}

type transactionList struct {
	Items []core.Transaction `json:"items"`
	Count int                `json:"count"`
}

// handleListTransactions returns every record, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeDomainError(w, r, applog.OpList, err)
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date.Time) })
	if items == nil {
		items = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionList{Items: items, Count: len(items)})
}

func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.dashboard.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeDomainError(w, r, applog.OpExport, err)
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date.Time) })

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("transactions-%d.csv", s.dashboard.Year())))
	if err := export.WriteCSV(w, items); err != nil {
		// Headers are already sent; all that is left is to log.
		s.logger.ErrorContext(r.Context(), "CSV export failed", applog.FieldOperation, applog.OpExport, "error", err)
	}
}

type appendResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleAppendTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		s.writeDomainError(w, r, applog.OpAppend, err)
		return
	}

	id, err := s.ledger.Append(r.Context(), t)
	if err != nil {
		s.writeDomainError(w, r, applog.OpAppend, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionAppended(r.Context(), id, t.Date.String(), t.Amount.String(), string(t.Category), string(t.Type))

	writeJSON(w, http.StatusCreated, appendResponse{ID: id})
}
