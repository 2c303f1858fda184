/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-21 10:31:02
 * @FilePath: \broker-dashboard-app\backend\cmd\server\main.go
 * @LastEditTime: 2025-10-21 10:31:10
 */
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

	"broker-dashboard-app/backend/internal/app"
	"broker-dashboard-app/backend/internal/handler"
	appLogger "broker-dashboard-app/backend/internal/infra/logger"
	"broker-dashboard-app/backend/internal/infra/metrics"
	"broker-dashboard-app/backend/internal/infra/ratelimit"
	"broker-dashboard-app/backend/internal/middleware"
	"broker-dashboard-app/backend/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := appLogger.Init(); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLogger.Sync()

	metrics.MustRegister()

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			log.Printf("resource cleanup error: %v", err)
		}
	}()

	pollGuard := middleware.NewPollGuardMiddleware(
		ratelimit.NewRedisLimiter(resources.Redis, "pollguard"),
		resources.Config.PollGuard,
	)
	router := server.NewRouter(server.RouterOptions{
		DashboardHandler: handler.NewDashboardHandler(resources.Dashboard, resources.Calls),
		PollGuard:        pollGuard,
	})

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		appLogger.S().Infow("dashboard server listening", "addr", addr, "timezone", resources.Config.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	appLogger.S().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
