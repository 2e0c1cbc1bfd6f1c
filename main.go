package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"optiondesk/src/database"
	"optiondesk/src/events"
	"optiondesk/src/executors"
	"optiondesk/src/intake"
	"optiondesk/src/ledger"
	"optiondesk/src/oracle"
	"optiondesk/src/outcome"
	"optiondesk/src/repository"
	"optiondesk/src/server"
	"optiondesk/src/settlement"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	publisher := events.NewFromEnv()
	defer publisher.Close()

	oracleConfig := oracle.GetConfig()
	prices := oracle.NewClient(oracleConfig)

	// Live ticker stream for every enabled asset; REST remains the fallback.
	enabled, err := repository.NewAssetRepository().ListEnabled(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to list enabled assets")
	}
	if len(enabled) > 0 {
		symbols := make([]string, 0, len(enabled))
		for _, asset := range enabled {
			symbols = append(symbols, asset.Symbol)
		}
		stream := oracle.NewStream(oracleConfig, symbols)
		go stream.Run(ctx)
		prices = prices.WithStream(stream)
	}

	intakeService := intake.NewService(database.MainDB, prices, publisher)
	processor := settlement.NewProcessor(
		database.MainDB,
		prices,
		publisher,
		outcome.NewResolver(),
		settlement.GetConfig(),
	)

	go func() {
		if err := executors.StartLoop(ctx, processor); err != nil {
			logger.WithError(err).Error("Settlement loop exited")
		}
	}()

	server.StartServer(server.GetConfig().Port, server.Dependencies{
		Intake:    intakeService,
		Ledger:    ledger.New(database.MainDB),
		Processor: processor,
	})
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
