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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eftlog/eftlog-go/internal/relay"
	"github.com/eftlog/eftlog-go/pkg/eftlog"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Relay events to WebSocket clients",
	Long: `Follow game logs like monitor does and broadcast every event as JSON to
WebSocket clients connected at /ws. Each message has the form
{"type":"...","data":{...}}.

Examples:
  # Listen on the default address
  eftlog serve

  # Allow a browser overlay served from another origin
  eftlog serve --addr :9000 --allow-origin http://localhost:5173`,
	RunE: runServe,
}

func init() {
	addMonitorFlags(serveCmd)
	f := serveCmd.Flags()
	f.String("addr", "127.0.0.1:8765", "Listen address")
	f.StringSlice("allow-origin", nil,
		`Browser origins allowed to connect ("*" for any)`)
	f.Int("max-clients", relay.DefaultMaxClients, "Maximum concurrent clients")
	f.Bool("raw", false, "Relay raw log chunks too")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, _, err := monitorOptions()
	if err != nil {
		return err
	}
	m, err := eftlog.NewMonitor(opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	logger := newLogger(os.Stderr)
	hub := relay.NewHub(relay.Config{
		AllowedOrigins: viper.GetStringSlice("allow-origin"),
		MaxClients:     viper.GetInt("max-clients"),
		Logger:         logger,
	})
	defer hub.Close()

	m.Bus().OnAny(hub.Publish)
	if viper.GetBool("raw") {
		m.Bus().OnLogChunk(func(c eftlog.LogChunk) { hub.Publish(c) })
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	ln, err := net.Listen("tcp", viper.GetString("addr"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := m.Start(ctx); err != nil {
		ln.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	fmt.Fprintf(cmd.ErrOrStderr(), "relaying events on ws://%s/ws\n", ln.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
