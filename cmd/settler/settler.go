package settler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"optiondesk/src/database"
	"optiondesk/src/events"
	"optiondesk/src/executors"
	"optiondesk/src/oracle"
	"optiondesk/src/outcome"
	"optiondesk/src/settlement"
)

// Settler runs the settlement loop as a standalone process, for deployments
// that separate the API from the background worker.
type Settler struct{}

func (s *Settler) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	publisher := events.NewFromEnv()
	defer publisher.Close()

	prices := oracle.NewClient(oracle.GetConfig())

	processor := settlement.NewProcessor(
		database.MainDB,
		prices,
		publisher,
		outcome.NewResolver(),
		settlement.GetConfig(),
	)

	logrus.Info("Starting standalone settlement loop")

	if err := executors.StartLoop(ctx, processor); err != nil {
		logrus.WithError(err).Error("Settlement loop failed")
		return err
	}

	return nil
}
