package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"optiondesk/src/auth"
	"optiondesk/src/model"
)

type balanceReader interface {
	GetOrCreate(ctx context.Context, accountID uint, currency string) (*model.Balance, error)
}

// GetBalanceHandler returns the authenticated account's balance buckets for
// one currency (default USDT).
func GetBalanceHandler(ledger balanceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		currency := r.URL.Query().Get("currency")
		if currency == "" {
			currency = "USDT"
		}

		balance, err := ledger.GetOrCreate(r.Context(), account.ID, currency)
		if err != nil {
			logger.WithError(err).Error("failed to load balance")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(balance); err != nil {
			logger.WithError(err).Error("failed to encode balance response")
		}
	}
}
