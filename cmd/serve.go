package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sjsage522/metaworker/internal/handlers"
	"sjsage522/metaworker/logger"
)

const shutdownTimeout = 10 * time.Second

func newCmdServe() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve the extraction HTTP API",
		Example: heredoc.Doc(`
			$ metaworker serve
			$ CACHE_BACKEND=redis metaworker serve --addr :9000
		`),
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f, err := newFactory(ctx)
			if err != nil {
				return err
			}
			defer f.Close()

			if addr == "" {
				addr = f.Config.ListenAddr
			}
			if f.Config.Environment == "production" || !logger.IsDebugEnabled() {
				gin.SetMode(gin.ReleaseMode)
			}
			log := logger.ForServer()

			var servers []*http.Server
			metricsHandler := f.Metrics.Handler()
			if f.Config.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metricsHandler)
				servers = append(servers, &http.Server{Addr: f.Config.MetricsAddr, Handler: mux})
				metricsHandler = nil
			}
			h := handlers.New(f.Engine, metricsHandler, log)
			servers = append(servers, &http.Server{Addr: addr, Handler: h.Router()})

			errc := make(chan error, len(servers))
			for _, srv := range servers {
				go func(srv *http.Server) {
					log.Info().Str("addr", srv.Addr).Msg("Listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errc <- err
					}
				}(srv)
			}

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("Received shutdown signal")
			case serveErr = <-errc:
				log.Error().Err(serveErr).Msg("Server exited with error")
			}

			log.Info().Msg("Shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Str("addr", srv.Addr).Msg("Shutdown failed")
				}
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LISTEN_ADDR)")
	return cmd
}
