package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/equilibra/burnout-scheduling/internal/api"
	"github.com/equilibra/burnout-scheduling/internal/config"
	"github.com/equilibra/burnout-scheduling/internal/db"
	"github.com/equilibra/burnout-scheduling/internal/observability/metrics"
	redisclient "github.com/equilibra/burnout-scheduling/internal/redis"
	"github.com/equilibra/burnout-scheduling/internal/scheduling"
	"github.com/equilibra/burnout-scheduling/internal/survey"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s threshold=%d",
		cfg.Env, cfg.HTTPPort, cfg.Timezone, cfg.BurnoutThreshold)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone error: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	schedMetrics := metrics.NewSchedulingMetrics(nil)

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	schedSvc := scheduling.NewService(repo, locker, loc, schedMetrics)

	autoScheduler := scheduling.NewAutoScheduler(repo, schedSvc, scheduling.FirstByName{}, cfg.BurnoutThreshold, cfg.AutoScheduleDays)

	surveySvc := survey.NewService(survey.NewPgRepository(pgPool), autoScheduler, loc)

	router := api.NewRouter(api.RouterConfig{
		Scheduling: schedSvc,
		Surveys:    surveySvc,
		Directory:  repo,
		PgPool:     pgPool,
		Redis:      rdb,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	case <-rootCtx.Done():
		log.Println("shutting down api-server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}

	log.Println("api-server stopped")
}
