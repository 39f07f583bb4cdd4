package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/api"
	"github.com/medbook/medbook/internal/appointment"
	"github.com/medbook/medbook/internal/config"
	"github.com/medbook/medbook/internal/db"
	"github.com/medbook/medbook/internal/logging"
	"github.com/medbook/medbook/internal/notify"
	redisclient "github.com/medbook/medbook/internal/redis"
	"github.com/medbook/medbook/internal/reporting"
	"github.com/medbook/medbook/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb, err := redisclient.New(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		Timeout:  cfg.RedisTimeout,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	notifier := notify.NewRedisSender(rdb, cfg.NotifyChannel)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	accountRepo := account.NewPgRepository(pool)
	schedulingRepo := scheduling.NewPgRepository(pool)
	appointmentRepo := appointment.NewPgRepository(pool)

	accounts := account.NewService(accountRepo, cfg.JWTSecret, cfg.TokenTTL, notifier, log)
	schedules := scheduling.NewService(schedulingRepo, accountRepo, log)
	appointments := appointment.NewService(appointmentRepo, accountRepo, locker, notifier, log)
	reports := reporting.NewPgStore(pool)

	router := api.NewRouter(api.RouterConfig{
		Accounts:     accounts,
		Scheduling:   schedules,
		Appointments: appointments,
		Reports:      reports,
		JWTSecret:    cfg.JWTSecret,
		Logger:       log,
		Metrics:      api.NewMetrics(),
		Pool:         pool,
		Redis:        rdb,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("env", cfg.Env).Msg("api server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
