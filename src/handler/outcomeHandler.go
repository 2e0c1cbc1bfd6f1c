package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"optiondesk/src/model"
	"optiondesk/src/repository"
)

type outcomePresetter interface {
	FindByID(ctx context.Context, id uint) (*model.Trade, error)
	SetManualOutcome(ctx context.Context, tradeID uint, outcome string, now time.Time) (bool, error)
}

type outcomePayload struct {
	Outcome string `json:"outcome"`
}

// SetManualOutcomeHandler stores an operator preset on an active trade. The
// preset outranks every policy layer when the trade later settles. Works only
// while the trade is active and unexpired; afterwards it is a conflict.
func SetManualOutcomeHandler(repo outcomePresetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "id")
		id, err := strconv.ParseUint(idParam, 10, 64)
		if err != nil {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}

		var payload outcomePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if payload.Outcome != model.TradeResultWin && payload.Outcome != model.TradeResultLoss {
			http.Error(w, "outcome must be win or loss", http.StatusBadRequest)
			return
		}

		trade, err := repo.FindByID(r.Context(), uint(id))
		if err != nil {
			logger.WithError(err).Error("failed to load trade for outcome preset")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if trade == nil {
			http.Error(w, "trade not found", http.StatusNotFound)
			return
		}

		ok, err := repo.SetManualOutcome(r.Context(), uint(id), payload.Outcome, time.Now())
		if err != nil {
			logger.WithError(err).Error("failed to set manual outcome")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "trade already finished or expired", http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"trade_id": id,
			"outcome":  payload.Outcome,
			"set_at":   time.Now().UTC(),
		}); err != nil {
			logger.WithError(err).Error("failed to encode outcome response")
		}
	}
}

// DefaultSetManualOutcomeHandler wires the handler to the production repository implementation.
func DefaultSetManualOutcomeHandler() http.HandlerFunc {
	return SetManualOutcomeHandler(repository.NewTradeRepository())
}
