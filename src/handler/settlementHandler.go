package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"optiondesk/src/settlement"
)

type settlementRunner interface {
	RunSettlementPass(ctx context.Context) (*settlement.PassResult, error)
}

// RunSettlementHandler triggers one settlement pass on demand, in addition to
// the background loop. Passes are safe to overlap, so no locking here.
func RunSettlementHandler(runner settlementRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := runner.RunSettlementPass(r.Context())
		if err != nil {
			logger.WithError(err).Error("manual settlement pass failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithError(err).Error("failed to encode settlement response")
		}
	}
}
