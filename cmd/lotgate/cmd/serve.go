package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotgate/internal/server"
	"github.com/MeKo-Tech/lotgate/internal/version"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operator HTTP server",
	Long: `Start an HTTP server that exposes the pipeline's quality state and accepts
single records for processing.

The server provides the following endpoints:
  GET  /health   - Health check with runtime statistics
  GET  /status   - Current data quality and system health
  GET  /outcomes - Outcome log in commit order
  GET  /metrics  - Prometheus metrics
  GET  /ws       - WebSocket feed pushing the status every poll interval
  POST /records  - Process one JSON record

Examples:
  lotgate serve
  lotgate serve --port 8080
  lotgate serve --host 0.0.0.0 --port 3000 --poll-interval 500ms`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyRuntimeFlags(cfg, cmd)
		opts := pipelineOptions(cfg, cmd)

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadSize := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
		}

		pollInterval := time.Duration(cfg.Server.PollIntervalMs) * time.Millisecond
		if cmd.Flags().Changed("poll-interval") {
			pollInterval, _ = cmd.Flags().GetDuration("poll-interval")
		}

		requestsPerSecond := cfg.Server.RequestsPerSecond
		if cmd.Flags().Changed("requests-per-second") {
			requestsPerSecond, _ = cmd.Flags().GetFloat64("requests-per-second")
		}

		burst := cfg.Server.Burst
		if cmd.Flags().Changed("burst") {
			burst, _ = cmd.Flags().GetInt("burst")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, cfg, opts, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}
		defer func() { _ = a.Close() }()

		srv := server.NewServer(a.orch, server.Config{
			Host:              host,
			Port:              port,
			CORSOrigin:        corsOrigin,
			MaxUploadMB:       int64(maxUploadSize),
			PollInterval:      pollInterval,
			RequestsPerSecond: requestsPerSecond,
			Burst:             burst,
			Version:           version.Version,
		})

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting lotgate server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		if err := a.Close(); err != nil {
			slog.Error("Fingerprint store close error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addPipelineFlags(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 10, "maximum record size in MB")
	serveCmd.Flags().Duration("poll-interval", time.Second, "status push interval for /ws clients")
	serveCmd.Flags().Float64("requests-per-second", 5, "record submissions per second per client (0 disables)")
	serveCmd.Flags().Int("burst", 10, "submission burst per client")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
}
