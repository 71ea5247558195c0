package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/me/storefront/internal/config"
	"github.com/me/storefront/internal/devapi"
	"github.com/me/storefront/internal/logging"
	"github.com/me/storefront/internal/shell"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the page preview shell",
		Long: "Serve a placeholder for every page of the route table on a local address.\n" +
			"Page requests go through the navigation guard with this client's session.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ShellAddr
			}
			sh := shell.New(a.auth, a.guard, a.table, a.flash, a.logger, shell.Config{})
			fmt.Fprintf(a.errOut, "preview shell on http://%s\n", addr)
			return runHTTP(cmd.Context(), addr, sh, a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (or STOREFRONT_SHELL_ADDR env)")
	return cmd
}

func newDevAPICmd(a *app) *cobra.Command {
	var (
		addr       string
		omitExpire bool
	)

	cmd := &cobra.Command{
		Use:         "devapi",
		Short:       "Run the development API backend",
		Long:        "Serve a local backend with login, logout and a sample catalog, speaking the same response envelope as the real API.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipWiring: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDevAPIConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if omitExpire {
				cfg.OmitExpire = true
			}

			logger := a.logger
			if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("debug") {
				logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, a.errOut)
			}

			srv, err := devapi.New(cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("dev api users", "users", srv.Users().Names())
			return runHTTP(cmd.Context(), cfg.Addr, srv.Handler(), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (or DEVAPI_ADDR env)")
	cmd.Flags().BoolVar(&omitExpire, "omit-expire", false, "Leave expire out of login responses")
	return cmd
}

// runHTTP serves handler on addr until ctx is done, then shuts down gracefully.
func runHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serveListener(ctx, ln, handler, logger)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
