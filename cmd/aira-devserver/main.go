// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command aira-devserver runs a local fake of the AiRA backend for
// exercising the client: pairing codes, link status, rules and process
// event streams.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aira-org/aira-client-os/internal/devserver"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/telemetry"
	"github.com/aira-org/aira-client-os/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	def := devserver.DefaultConfig()

	listen := flag.String("listen", "127.0.0.1:8000", "listen address")
	token := flag.String("token", "", "bearer token required on API calls")
	logLevel := flag.String("log-level", "info", "log level")
	connectLimit := flag.Int("connect-limit", def.ConnectLimit, "connect calls allowed per window and IP")
	connectWindow := flag.Duration("connect-window", def.ConnectWindow, "connect rate-limit window")
	steps := flag.Int("process-steps", def.ProcessSteps, "progress events before completion")
	stepInterval := flag.Duration("step-interval", def.StepInterval, "pause between process events")
	services := flag.String("services", strings.Join(def.AvailableServices, ","), "comma-separated connected services")
	autoSync := flag.Duration("auto-sync", 0, "report the account as synced this long after the first code (0 disables)")
	otlp := flag.String("otlp-endpoint", "", "OTLP gRPC endpoint; empty disables tracing")
	flag.Parse()

	xglog.Configure(xglog.Config{Level: *logLevel, Service: "aira-devserver", Version: version.Version})
	logger := xglog.WithComponent("devserver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        *otlp != "",
		ServiceName:    "aira-devserver",
		ServiceVersion: version.Version,
		Environment:    "development",
		ExporterType:   telemetry.ExporterGRPC,
		Endpoint:       *otlp,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry init failed")
	}

	srv := devserver.New(devserver.Config{
		Token:             *token,
		ConnectLimit:      *connectLimit,
		ConnectWindow:     *connectWindow,
		ProcessSteps:      *steps,
		StepInterval:      *stepInterval,
		AvailableServices: splitList(*services),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", srv)

	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if *autoSync > 0 {
		go autoLink(ctx, srv, *autoSync)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *listen).Msg("devserver listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str(xglog.FieldEvent, "devserver.failed").Msg("server failed")
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
	fmt.Fprintln(os.Stderr, "devserver stopped")
}

// autoLink walks the status through syncing to synced once a code exists.
func autoLink(ctx context.Context, srv *devserver.Server, after time.Duration) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for len(srv.IssuedCodes()) == 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(after):
	}
	srv.Link()
	select {
	case <-ctx.Done():
		return
	case <-time.After(after):
	}
	srv.Sync()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
