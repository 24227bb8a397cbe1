package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woifh/tcz-server-sub001/internal/app"
	"github.com/woifh/tcz-server-sub001/internal/clock"
	"github.com/woifh/tcz-server-sub001/internal/config"
	"github.com/woifh/tcz-server-sub001/internal/notify"
	"github.com/woifh/tcz-server-sub001/internal/storage/postgres"
	transporthttp "github.com/woifh/tcz-server-sub001/internal/transport/http"
	"github.com/woifh/tcz-server-sub001/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zone, err := clock.NewZone(cfg.DisplayZone)
	if err != nil {
		log.Fatalf("load display zone: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var dispatcher notify.Dispatcher = notify.NewLog(logger)
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQP(cfg.AMQPURL, cfg.NotifyExchange, logger)
		if err != nil {
			log.Fatalf("connect to broker: %v", err)
		}
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
	} else {
		logger.Printf("WARN: AMQP_URL not set, notifications go to the log only")
	}

	clk := clock.NewSystem()
	auditRepo := postgres.NewAuditRepository(pool)

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, auditRepo, dispatcher, clk, zone)

	blockRepo := postgres.NewBlockRepository(pool)
	blockSvc := app.NewBlockService(blockRepo, auditRepo, dispatcher, clk, zone)

	reasonRepo := postgres.NewReasonRepository(pool)
	reasonSvc := app.NewReasonService(reasonRepo, auditRepo, clk)

	handler := transporthttp.NewRouter(transporthttp.RouterDeps{
		Reservations: reservationSvc,
		Blocks:       blockSvc,
		Reasons:      reasonSvc,
		CORSOrigins:  cfg.CORSOrigins,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	log.Printf("api listening on %s", cfg.Addr())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
