package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"osemosys_toolkit/internal/store"
	"osemosys_toolkit/internal/ws"
)

type serveOptions struct {
	addr       string
	inputCSV   string
	configPath string
	maxRuns    int
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve results runs over a WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.inputCSV, "input-csv", "", "folder of model input data CSV files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "schema file (defaults to the standard OSeMOSYS schema)")
	cmd.Flags().IntVar(&opts.maxRuns, "max-runs", 20, "number of completed runs kept in memory (0 keeps all)")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	schema, err := loadSchema(opts.configPath)
	if err != nil {
		return err
	}
	data, err := loadInputData(opts.inputCSV, schema)
	if err != nil {
		return err
	}

	hub := ws.NewHub(slog.Default())
	handler := ws.NewHandler(hub, schema, data, store.New(opts.maxRuns))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newMux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", handler)
	return mux
}
