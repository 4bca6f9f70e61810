package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/manthysbr/toolchat/pkg/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const serveExample = `
  # Serve the HTTP API on the configured address
  toolchat serve

  # Serve on another port
  toolchat serve --addr :9090`

type ServeOptions struct {
	ShutdownTimeout time.Duration

	root *RootOptions
}

func NewServeOptions(root *RootOptions) *ServeOptions {
	return &ServeOptions{root: root, ShutdownTimeout: 5 * time.Second}
}

func NewCmdServe(root *RootOptions) *cobra.Command {
	o := NewServeOptions(root)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat, tools, settings and files over HTTP",
		Long: `Run the worker bridge behind an HTTP API.

Routes: POST /v1/chat (optionally streamed as server-sent events),
/v1/chat/history, /v1/tools, /v1/settings, /v1/files and /healthz.`,
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "grace period for in-flight requests")
	return cmd
}

func (o *ServeOptions) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := o.root.setup(ctx, o.root.Out)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	eng, err := a.newEngine(ctx, a.cfg.Agent.KeepHistory)
	if err != nil {
		return err
	}

	eventBus := services.NewEventBus(logger)
	apiServer := api.NewServer(logger, eng.bridge, eventBus, eng.chat, a.resolver, a.settings, a.repo)

	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           apiServer.Handler(a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.bridge.Run(gCtx)
	})

	g.Go(func() error {
		return services.Relay(gCtx, eng.bridge, eventBus)
	})

	g.Go(func() error {
		logger.Info("starting api server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
