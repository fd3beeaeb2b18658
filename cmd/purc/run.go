package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/purc-go/purc/internal/config"
	"github.com/purc-go/purc/internal/logging"
	"github.com/purc-go/purc/internal/metrics"
	"github.com/purc-go/purc/internal/observability"
	"github.com/purc-go/purc/internal/runner"
)

func runCmd() *cobra.Command {
	var (
		metricsAddr string
		logLevel    string
		runnerID    string
		peers       []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a purc runner process",
		Long:  "Brings up one runner's collaborators (heap, atom table, fetcher, event bus) and drives its runloop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)

			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}

			logging.SetLevelFromString(cfg.Logging.Level)
			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

			if err := observability.Init(context.Background(), observability.Config{
				Enabled:     cfg.Tracing.Enabled,
				Exporter:    cfg.Tracing.Exporter,
				Endpoint:    cfg.Tracing.Endpoint,
				ServiceName: cfg.Tracing.ServiceName,
				SampleRate:  cfg.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			if cfg.Metrics.Enabled {
				metrics.InitPrometheus(cfg.Metrics.Namespace, cfg.Metrics.HistogramBuckets)

				if cmd.Flags().Changed("metrics-addr") || metricsAddr != "" {
					mux := http.NewServeMux()
					mux.Handle("/metrics", metrics.PrometheusHandler())
					srv := &http.Server{Addr: metricsAddr, Handler: mux}
					go func() {
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logging.Op().Error("metrics server failed", "error", err)
						}
					}()
					defer srv.Close()
					logging.Op().Info("metrics server started", "addr", metricsAddr)
				}
			}

			r := runner.New(runnerID, cfg, nil)
			logging.Op().Info("runner starting", "id", r.ID)

			if r.Transport != nil {
				for _, p := range peers {
					id, addr, ok := strings.Cut(p, "=")
					if !ok {
						return fmt.Errorf("invalid --peer %q, want id=host:port", p)
					}
					r.Transport.AddPeer(id, addr)
				}
				if err := r.ListenTransport(); err != nil {
					return fmt.Errorf("listen transport: %w", err)
				}
				defer r.StopTransport()
			}

			ctx, cancel := context.WithCancel(context.Background())
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logging.Op().Info("shutdown signal received")
				cancel()
			}()

			r.Run(ctx)
			logging.Op().Info("runner stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address, e.g. :9100 (disabled if empty)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	cmd.Flags().StringVar(&runnerID, "runner-id", "purc-runner", "This runner's id, used as the runner-atom in cross-runner request targets")
	cmd.Flags().StringArrayVar(&peers, "peer", nil, "Known peer runner as id=host:port; repeatable (requires grpc.enabled)")

	return cmd
}
