package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"marketdata/internal/errs"
	"marketdata/internal/marketdata"
	"marketdata/internal/store"
)

// server bundles the handler dependencies.
type server struct {
	svc  *marketdata.Service
	repo *store.Repository
	log  *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps classified lookup failures onto HTTP statuses. Rate-limit
// errors carry a Retry-After header when the remaining block is known.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindRateLimited:
		status = http.StatusTooManyRequests
		if wait := errs.RetryAfterOf(err); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindUnavailable:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// userID scopes watchlist and portfolio rows. There is no auth layer in
// front of this service; the gateway stamps the header.
func userID(r *http.Request) uint {
	if v, err := strconv.ParseUint(r.Header.Get("X-User-ID"), 10, 32); err == nil && v > 0 {
		return uint(v)
	}
	return 1
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing q query param"})
		return
	}
	results, err := s.svc.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.svc.GetQuote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1mo"
	}
	bars, err := s.svc.GetHistory(r.Context(), r.PathValue("symbol"), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "bars": bars})
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, 50)
	}
	items, err := s.svc.GetNews(r.Context(), r.PathValue("symbol"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": items})
}

func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || amount < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing from or to query param"})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ConvertCurrency(r.Context(), amount, from, to))
}

func (s *server) handlePredict(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 {
		days = min(v, 30)
	}
	points, err := s.svc.Predict(r.Context(), r.PathValue("symbol"), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "predictions": points})
}

// Watchlist

func (s *server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.ListWatchlist(userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist": items})
}

func (s *server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var item store.WatchlistItem
	if err := decodeBody(r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(item.Symbol) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}
	item.ID = 0
	item.UserID = userID(r)
	if err := s.repo.AddWatchlistItem(&item); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var item store.WatchlistItem
	if err := decodeBody(r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	item.ID = id
	item.UserID = userID(r)
	if err := s.repo.UpdateWatchlistItem(&item); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.repo.DeleteWatchlistItem(userID(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Portfolio

func (s *server) handleListPortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.repo.ListHoldings(userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": holdings})
}

func (s *server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	var h store.PortfolioHolding
	if err := decodeBody(r, &h); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(h.Symbol) == "" || h.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol and a positive quantity are required"})
		return
	}
	h.ID = 0
	h.UserID = userID(r)
	if err := s.repo.AddHolding(&h); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var h store.PortfolioHolding
	if err := decodeBody(r, &h); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.ID = id
	h.UserID = userID(r)
	if err := s.repo.UpdateHolding(&h); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.repo.DeleteHolding(userID(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
