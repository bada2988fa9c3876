package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// PortfolioRefresher runs one enrichment pass for a user.
type PortfolioRefresher interface {
	Refresh(ctx context.Context, userID string) (domain.Portfolio, error)
}

// ChartProvider returns a coin's price history with its indicator series.
type ChartProvider interface {
	Chart(ctx context.Context, coinID string) (domain.CoinChart, error)
}

type PortfolioHandler struct {
	store     domain.HoldingStore
	portfolio PortfolioRefresher
	charts    ChartProvider
	logger    *logging.Logger
}

func NewPortfolioHandler(store domain.HoldingStore, portfolio PortfolioRefresher, charts ChartProvider, logger *logging.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		store:     store,
		portfolio: portfolio,
		charts:    charts,
		logger:    logger,
	}
}

type AddHoldingRequest struct {
	CoinID   string  `json:"coinId"`
	Quantity float64 `json:"quantity"`
	BuyPrice float64 `json:"buyPrice"`
}

// HandleGetPortfolio enriches the caller's holdings and returns the result.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	p, err := h.portfolio.Refresh(r.Context(), uid)
	if err != nil {
		h.logger.Error().Err(err).Str("user", uid).Msg("refresh portfolio")
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PortfolioHandler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	holdings, err := h.store.ListHoldings(r.Context(), uid)
	if err != nil {
		h.logger.Error().Err(err).Str("user", uid).Msg("list holdings")
		writeError(w, http.StatusInternalServerError, "failed to list holdings")
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

func (h *PortfolioHandler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	var req AddHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	holding, err := domain.NewHolding(uid, req.CoinID, req.Quantity, req.BuyPrice, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	holding, err = h.store.AddHolding(r.Context(), holding)
	if err != nil {
		h.logger.Error().Err(err).Str("user", uid).Msg("add holding")
		writeError(w, http.StatusInternalServerError, "failed to add holding")
		return
	}

	h.logger.Info().Str("user", uid).Str("coin", holding.CoinID).Msg("holding added")
	writeJSON(w, http.StatusCreated, holding)
}

func (h *PortfolioHandler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())
	id := mux.Vars(r)["id"]

	err := h.store.DeleteHolding(r.Context(), uid, id)
	switch {
	case errors.Is(err, domain.ErrHoldingNotFound):
		writeError(w, http.StatusNotFound, "holding not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("user", uid).Str("id", id).Msg("delete holding")
		writeError(w, http.StatusInternalServerError, "failed to delete holding")
		return
	}

	h.logger.Info().Str("user", uid).Str("id", id).Msg("holding deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *PortfolioHandler) HandleCoinChart(w http.ResponseWriter, r *http.Request) {
	coinID := domain.NormalizeCoinID(mux.Vars(r)["id"])
	if coinID == "" {
		writeError(w, http.StatusBadRequest, "coin id is required")
		return
	}

	chart, err := h.charts.Chart(r.Context(), coinID)
	switch {
	case errors.Is(err, domain.ErrPriceNotFound):
		writeError(w, http.StatusNotFound, "unknown coin")
		return
	case err != nil:
		h.logger.Warn().Err(err).Str("coin", coinID).Msg("load chart")
		writeError(w, http.StatusBadGateway, "market data unavailable")
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
