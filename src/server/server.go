package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"optiondesk/src/auth"
	"optiondesk/src/handler"
	"optiondesk/src/intake"
	"optiondesk/src/ledger"
	"optiondesk/src/repository"
	"optiondesk/src/settlement"
)

// Dependencies are the wired services the HTTP surface exposes.
type Dependencies struct {
	Intake    *intake.Service
	Ledger    *ledger.Ledger
	Processor *settlement.Processor
}

func StartServer(port string, deps Dependencies) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck error")
		}
	})

	trades := repository.NewTradeRepository()
	accounts := repository.NewAccountRepository()

	// Account routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(accounts))
		r.Post("/api/trades", handler.CreateTradeHandler(deps.Intake))
		r.Get("/api/trades", handler.SearchTradesHandler(trades))
		r.Get("/api/balance", handler.GetBalanceHandler(deps.Ledger))
	})

	// Operator routes, reachable only through the internal network
	r.Patch("/api/trades/{id}/outcome", handler.SetManualOutcomeHandler(trades))
	r.Post("/api/settlement/run", handler.RunSettlementHandler(deps.Processor))

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
