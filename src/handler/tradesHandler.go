package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"optiondesk/src/auth"
	"optiondesk/src/intake"
	"optiondesk/src/model"
	"optiondesk/src/repository"
)

type tradeCreator interface {
	CreateTrade(ctx context.Context, req intake.CreateTradeRequest) (*model.Trade, error)
}

type tradeSearcher interface {
	Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error)
}

type createTradePayload struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Stake         decimal.Decimal `json:"stake"`
	Duration      string          `json:"duration"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	Currency      string          `json:"currency"`
}

// CreateTradeHandler opens a trade for the authenticated account.
func CreateTradeHandler(service tradeCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload createTradePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid create trade payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		trade, err := service.CreateTrade(r.Context(), intake.CreateTradeRequest{
			AccountID:     account.ID,
			Symbol:        payload.Symbol,
			Side:          payload.Side,
			Stake:         payload.Stake,
			Duration:      payload.Duration,
			ProfitPercent: payload.ProfitPercent,
			Currency:      payload.Currency,
		})
		if err != nil {
			writeIntakeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(trade); err != nil {
			logger.WithError(err).Error("failed to encode trade response")
		}
	}
}

// writeIntakeError maps intake sentinels onto HTTP statuses. Anything not
// recognized is a 500 with no detail leaked.
func writeIntakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrInvalidSide),
		errors.Is(err, intake.ErrInvalidDuration),
		errors.Is(err, intake.ErrInvalidProfitLevel),
		errors.Is(err, intake.ErrStakeBelowMinimum),
		errors.Is(err, intake.ErrAssetDisabled):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, intake.ErrUnknownAsset):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, intake.ErrQuotaExhausted):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, intake.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, intake.ErrPriceUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.WithError(err).Error("failed to create trade")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// SearchTradesHandler lists the authenticated account's trades newest first.
// Supports a status filter plus page/pageSize pagination.
func SearchTradesHandler(repo tradeSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var status *string
		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			if statusParam != model.TradeStatusActive && statusParam != model.TradeStatusFinished {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			status = &statusParam
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 20
		if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}

		offset := (page - 1) * pageSize

		trades, err := repo.Search(r.Context(), repository.TradeSearchOptions{
			AccountID: account.ID,
			Status:    status,
			Limit:     pageSize,
			Offset:    offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trades); err != nil {
			logger.WithError(err).Error("failed to encode trade search response")
		}
	}
}

// DefaultSearchTradesHandler wires the handler to the production repository implementation.
func DefaultSearchTradesHandler() http.HandlerFunc {
	return SearchTradesHandler(repository.NewTradeRepository())
}
