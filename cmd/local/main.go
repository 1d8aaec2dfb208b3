package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boogy/aws-cognito-warden/pkg/handler"
)

// Settings for the local server
type ServerSettings struct {
	Addr            string
	ConfigPath      string
	LogLevel        string
	SimulateLatency time.Duration
}

func main() {
	settings := parseCliFlags()

	bootstrap, err := handler.NewBootstrap()
	if err != nil {
		slog.Error("Failed to bootstrap", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer bootstrap.Cleanup()

	addr := settings.Addr
	if addr == "" {
		addr = bootstrap.Config.ListenAddr
	}

	var h http.Handler = bootstrap.Router
	if settings.SimulateLatency > 0 {
		h = withLatency(h, settings.SimulateLatency)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	idle := make(chan struct{})
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		slog.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}
		close(idle)
	}()

	slog.Info("Starting local development server",
		slog.String("addr", addr),
		slog.String("issuer", bootstrap.Config.ExpectedIssuer()))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", slog.String("error", err.Error()))
		bootstrap.Cleanup()
		os.Exit(1)
	}

	<-idle
	slog.Info("Server stopped")
}

func parseCliFlags() ServerSettings {
	settings := ServerSettings{}

	flag.StringVar(&settings.Addr, "addr", "", "Address to listen on (defaults to the listen_addr setting)")
	flag.StringVar(&settings.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&settings.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.DurationVar(&settings.SimulateLatency, "latency", 0, "Simulate network latency (e.g., 100ms)")

	flag.Parse()

	// Set config path and log level as environment variables if provided
	if settings.ConfigPath != "" {
		if err := os.Setenv("CONFIG_PATH", settings.ConfigPath); err != nil {
			slog.Error("Error setting CONFIG_PATH environment variable", "error", err)
		}
	}
	if settings.LogLevel != "" {
		if err := os.Setenv("LOG_LEVEL", settings.LogLevel); err != nil {
			slog.Error("Error setting LOG_LEVEL environment variable", "error", err)
		}
	}

	return settings
}

func withLatency(next http.Handler, latency time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(latency)
		next.ServeHTTP(w, r)
	})
}
