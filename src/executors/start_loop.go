package executors

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"optiondesk/src/settlement"
)

// Settler runs one settlement pass. Satisfied by *settlement.Processor.
type Settler interface {
	RunSettlementPass(ctx context.Context) (*settlement.PassResult, error)
}

// StartLoop drives the settler on a fixed ticker until the context is
// cancelled. A failed pass is logged and retried on the next tick; only a
// run of MaxConsecutiveFailures passes in a row stops the loop.
func StartLoop(ctx context.Context, settler Settler) error {
	config := GetConfig()

	ticker := time.NewTicker(config.LoopPeriod)
	defer ticker.Stop()

	logger.WithFields(map[string]interface{}{
		"period": config.LoopPeriod.String(),
	}).Info("Settlement loop started")

	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			logger.Info("Settlement loop stopped")
			return nil

		case <-ticker.C:
			result, err := settler.RunSettlementPass(ctx)
			if err != nil {
				consecutiveFailures++
				logger.WithFields(map[string]interface{}{
					"consecutive_failures": consecutiveFailures,
				}).WithError(err).Error("Settlement pass failed")

				if config.MaxConsecutiveFailures > 0 && consecutiveFailures >= config.MaxConsecutiveFailures {
					return fmt.Errorf("settlement loop giving up after %d consecutive failures: %w", consecutiveFailures, err)
				}
				continue
			}

			consecutiveFailures = 0
			if result.SettledCount > 0 {
				logger.WithFields(map[string]interface{}{
					"settled": result.SettledCount,
				}).Info("Settlement tick finished")
			}
		}
	}
}
