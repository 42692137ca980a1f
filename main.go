package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/api/handlers"
	"github.com/smartcareconnect/smartcare-api/api/scheduler"
	"github.com/smartcareconnect/smartcare-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//initialize database and router
	if err := a.Initialize(ctx); err != nil {
		zap.S().Fatalw("failed to initialize smartcare-api", "error", err)
	}

	var lock scheduler.Locker
	if rdb := a.Redis(); rdb != nil {
		lock = scheduler.NewRedisLock(rdb, "scheduler:lock:")
	}
	var pruner scheduler.Pruner
	if a.Memory != nil {
		pruner = a.Memory
	}
	jobs := scheduler.NewScheduler(a.AppointmentDB(), a.Mailer, pruner, lock)
	jobs.Start()

	c := cors.New(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           c.Handler(a.Router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zap.S().Infow("smartcare-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down smartcare-api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("graceful shutdown failed", "error", err)
	}
	jobs.Stop()
	a.Close(shutdownCtx)
	_ = zap.L().Sync()
}
