package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/settlement"
)

type balanceResponse struct {
	MemberID     string `json:"member_id"`
	PaidCents    int64  `json:"paid_cents"`
	OwedCents    int64  `json:"owed_cents"`
	BalanceCents int64  `json:"balance_cents"`
}

type transferResponse struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type settlementResponse struct {
	ID          string             `json:"id"`
	HouseholdID string             `json:"household_id"`
	Month       string             `json:"month"`
	TotalCents  int64              `json:"total_cents"`
	Total       string             `json:"total"`
	Balances    []balanceResponse  `json:"balances"`
	Transfers   []transferResponse `json:"transfers"`
	IsSettled   bool               `json:"is_settled"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	SyncVersion int64              `json:"sync_version"`
}

type settlementRequest struct {
	HouseholdID string `json:"household_id"`
	Month       string `json:"month"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toSettlementResponse(st *core.Settlement) settlementResponse {
	resp := settlementResponse{
		ID:          st.ID,
		HouseholdID: st.HouseholdID,
		Month:       st.Month.String(),
		TotalCents:  st.Total.Cents,
		Total:       st.Total.String(),
		Balances:    make([]balanceResponse, 0, len(st.Balances)),
		Transfers:   make([]transferResponse, 0, len(st.Transfers)),
		IsSettled:   st.IsSettled,
		SyncVersion: st.SyncVersion,
	}
	if !st.CompletedAt.IsZero() {
		completed := st.CompletedAt
		resp.CompletedAt = &completed
	}
	for _, b := range st.Balances {
		resp.Balances = append(resp.Balances, balanceResponse{
			MemberID:     b.MemberID,
			PaidCents:    b.Paid.Cents,
			OwedCents:    b.Owed.Cents,
			BalanceCents: b.Balance.Cents,
		})
	}
	for _, t := range st.Transfers {
		resp.Transfers = append(resp.Transfers, transferResponse{
			From:        t.From,
			To:          t.To,
			AmountCents: t.Amount.Cents,
			Amount:      t.Amount.String(),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, settlement.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoMembers),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrUnknownMember):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseMonthQuery reads household and month from query parameters.
func parseMonthQuery(r *http.Request) (householdID string, month core.Month, err error) {
	householdID = strings.TrimSpace(r.URL.Query().Get("household"))
	if householdID == "" {
		return "", core.Month{}, errors.New("missing household parameter")
	}
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthStr == "" {
		month = core.MonthOf(time.Now())
		return householdID, month, nil
	}
	month, err = core.ParseMonth(monthStr)
	if err != nil {
		return "", core.Month{}, err
	}
	return householdID, month, nil
}

func decodeSettlementRequest(r *http.Request) (householdID string, month core.Month, err error) {
	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", core.Month{}, errors.New("invalid JSON body")
	}
	householdID = strings.TrimSpace(req.HouseholdID)
	if householdID == "" {
		return "", core.Month{}, errors.New("missing household_id")
	}
	month, err = core.ParseMonth(strings.TrimSpace(req.Month))
	if err != nil {
		return "", core.Month{}, err
	}
	return householdID, month, nil
}

func (s *Server) reportCacheKey(householdID string, month core.Month) string {
	return householdID + "/" + month.String()
}

// handleGetSettlement recalculates and returns the settlement for a month.
// Completed months come back frozen as stored.
func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	householdID, month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s.reportCacheKey(householdID, month)
	if cached, found := s.reportCache.Get(key); found {
		slog.DebugContext(r.Context(), "Settlement cache hit", "household", householdID, "month", month.String())
		writeJSON(w, http.StatusOK, cached)
		return
	}

	st, err := s.svc.GetMonthSettlement(r.Context(), householdID, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Settlement calculation error",
			"error", err, "household", householdID, "month", month.String())
		writeError(w, statusForError(err), err.Error())
		return
	}
	settlementsCalculated.Inc()

	resp := toSettlementResponse(st)
	s.reportCache.Set(key, resp)
	s.historyCache.Delete(householdID)
	writeJSON(w, http.StatusOK, resp)
}

// handlePreview calculates a settlement without persisting it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	householdID, month, err := decodeSettlementRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.svc.Preview(r.Context(), householdID, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Settlement preview error",
			"error", err, "household", householdID, "month", month.String())
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSettlementResponse(st))
}

// handleComplete marks a month as settled, freezing its report.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	householdID, month, err := decodeSettlementRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.svc.Complete(r.Context(), householdID, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Settlement completion error",
			"error", err, "household", householdID, "month", month.String())
		writeError(w, statusForError(err), err.Error())
		return
	}
	settlementsCompleted.Inc()

	s.reportCache.Delete(s.reportCacheKey(householdID, month))
	s.historyCache.Delete(householdID)
	writeJSON(w, http.StatusOK, toSettlementResponse(st))
}

// handleHistory lists persisted settlements for a household, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	householdID := strings.TrimSpace(r.URL.Query().Get("household"))
	if householdID == "" {
		writeError(w, http.StatusBadRequest, "missing household parameter")
		return
	}

	if cached, found := s.historyCache.Get(householdID); found {
		slog.DebugContext(r.Context(), "History cache hit", "household", householdID)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	list, err := s.svc.History(r.Context(), householdID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Settlement history error",
			"error", err, "household", householdID)
		writeError(w, statusForError(err), err.Error())
		return
	}

	resp := make([]settlementResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toSettlementResponse(&list[i]))
	}
	s.historyCache.Set(householdID, resp)
	writeJSON(w, http.StatusOK, resp)
}
