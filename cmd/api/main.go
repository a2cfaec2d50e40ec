package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/app"
	"github.com/jwalitptl/practice-api/internal/config"
	appointmentHandler "github.com/jwalitptl/practice-api/internal/handler/appointment"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/practice-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/practice-api/internal/handler/patient"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/router"
	"github.com/jwalitptl/practice-api/pkg/auth"
	"github.com/jwalitptl/practice-api/pkg/event"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "failed to initialize dependencies")
	}
	defer a.Close()

	hub := realtime.NewHub(a.Metrics, log)
	if err := a.WireServices(hub); err != nil {
		log.Fatal(err, "failed to wire services")
	}

	// Events published by the worker process arrive over redis.
	relay := realtime.NewRelay(a.Broker, hub, cfg.Realtime.Channel, log)
	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(err, "realtime relay stopped")
		}
	}()

	tracker := event.NewTracker(hub, log)
	metricsHandler := prometheus.New(a.Registry, cfg.Metrics.Namespace)
	if !cfg.Metrics.Enabled {
		metricsHandler = nil
	}

	appointments := appointmentHandler.NewHandler(a.Appointments, tracker)
	notifications := notificationHandler.NewHandler(a.Notifications, tracker)
	patients := patientHandler.NewHandler(a.Discharge, patientHandler.Config{
		AutoDischargeOnGoal: cfg.Discharge.AutoDischargeOnGoal,
	})

	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)),
		metricsHandler,
		router.Handlers{
			Health: health.NewHandler(map[string]health.Check{
				"database": a.DB.PingContext,
				"redis":    a.Broker.Ping,
			}),
			Realtime: realtime.NewHandler(hub, cfg.Security.AllowedOrigins, log),
			API:      []router.Handler{appointments, patients, notifications},
			Admin:    []router.AdminHandler{appointments, notifications},
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.Security.AllowedOrigins),
			SecurityConfig:   middleware.DefaultSecurityConfig(),
			MaxBodyBytes:     cfg.Server.MaxBodyBytes,
			MetricsPath:      cfg.Metrics.Path,
		},
		log,
	)
	if err != nil {
		log.Fatal(err, "failed to build router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
