package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"hospitalcore/internal/adapters/web"
	"hospitalcore/internal/core"
	"hospitalcore/internal/platform/httpserver"
	"hospitalcore/internal/platform/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the persisted state and serve the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve blocks until ctx is done, then shuts the server down gracefully.
func (a *app) serve(ctx context.Context) error {
	store, closeStore, err := core.OpenDocumentStore(ctx, a.storageConfig())
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.logger.Warn("close document store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []core.ServiceOption{core.WithLogger(a.logger), core.WithMetricsRecorder(m)}
	if a.cfg.Trace.Path != "" {
		f, err := os.OpenFile(a.cfg.Trace.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f, a.cfg.Trace.Limit)))
	}

	codec := core.NewCodec(store, core.WithCodecLogger(a.logger), core.WithCodecMetrics(m))
	svc := core.NewService(codec, opts...)
	if !svc.Load(ctx) {
		// serving continues with default components
		a.logger.Error("starting with empty state", "driver", store.Driver(), "error", svc.LastPersistenceError())
	}

	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	handler := web.New(svc, a.logger, reg)
	srv := httpserver.New(a.cfg.HTTP.Addr, handler.Router(), a.cfg.HTTP.ReadHeaderTimeout)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("server listening", "addr", ln.Addr().String(), "driver", store.Driver())
	if a.onListen != nil {
		a.onListen(ln.Addr())
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "timeout", a.cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
