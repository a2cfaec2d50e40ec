package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/practice-api/internal/app"
	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/worker"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "practice-worker",
		Short:         "Background jobs for the practice core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(sweepCmd(&configPath))
	rootCmd.AddCommand(dischargeSweepCmd(&configPath))
	rootCmd.AddCommand(remindersCmd(&configPath))
	rootCmd.AddCommand(cleanupCmd(&configPath))
	rootCmd.AddCommand(completionReportCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the service graph with a publisher that relays live
// events to the API process over redis.
func bootstrap(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	}).With("worker")

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := a.WireServices(realtime.NewBrokerPublisher(a.Broker, cfg.Realtime.Channel)); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func runCmd(configPath *string) *cobra.Command {
	var healthAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every enabled job on its interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Config
			var tickers []*worker.Ticker
			if cfg.Sweep.Enabled {
				tickers = append(tickers, worker.NewTicker(worker.NewAppointmentSweepJob(a.Appointments), cfg.Sweep.Interval, a.Metrics, a.Logger))
			}
			if cfg.Discharge.SweepEnabled {
				tickers = append(tickers, worker.NewTicker(worker.NewDischargeSweepJob(a.Discharge), cfg.Discharge.SweepInterval, a.Metrics, a.Logger))
			}
			if cfg.Notification.ReminderEnabled {
				interval := cfg.Notification.ReminderInterval
				tickers = append(tickers, worker.NewTicker(worker.NewAppointmentReminderJob(a.Appointments, interval), interval, a.Metrics, a.Logger))
			}
			tickers = append(tickers, worker.NewTicker(worker.NewNotificationCleanupJob(a.Notifications), cfg.Notification.CleanupInterval, a.Metrics, a.Logger))

			srv := healthServer(a, healthAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.Logger.Error(err, "health server failed")
				}
			}()

			var wg sync.WaitGroup
			for _, t := range tickers {
				wg.Add(1)
				go func(t *worker.Ticker) {
					defer wg.Done()
					t.Start(ctx, true)
				}(t)
			}

			<-ctx.Done()
			a.Logger.Info("shutting down...")
			wg.Wait()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address for health and metrics endpoints")
	return cmd
}

func healthServer(a *app.App, addr string) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(map[string]health.Check{
		"database": a.DB.PingContext,
		"redis":    a.Broker.Ping,
	}).RegisterRoutes(&engine.RouterGroup)
	engine.GET("/metrics", prometheus.New(a.Registry, a.Config.Metrics.Namespace).Handler())

	return &http.Server{Addr: addr, Handler: engine}
}

func sweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one appointment status sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *configPath, func(ctx context.Context, a *app.App) error {
				n, err := a.Appointments.UpdateAppointmentStatuses(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d appointments\n", n)
				return nil
			})
		},
	}
}

func dischargeSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "discharge-sweep",
		Short: "Attempt automatic discharge for every active patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *configPath, func(ctx context.Context, a *app.App) error {
				n, err := a.Discharge.SweepActivePatients(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "discharged %d patients\n", n)
				return nil
			})
		},
	}
}

func remindersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "Send appointment reminders due in the last reminder interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *configPath, func(ctx context.Context, a *app.App) error {
				n, err := a.Appointments.SendDueReminders(ctx, a.Config.Notification.ReminderInterval)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", n)
				return nil
			})
		},
	}
}

func cleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *configPath, func(ctx context.Context, a *app.App) error {
				n, err := a.Notifications.CleanupExpiredNotifications(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired notifications\n", n)
				return nil
			})
		},
	}
}

func completionReportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "completion-report",
		Short: "Print the treatment completion rate as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, *configPath, func(ctx context.Context, a *app.App) error {
				rate, err := a.Discharge.CalculateTreatmentCompletionRate(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rate)
			})
		},
	}
}

func runOnce(cmd *cobra.Command, configPath string, fn func(context.Context, *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
