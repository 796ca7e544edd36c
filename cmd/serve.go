package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/server"
	"github.com/sells-group/zipdata-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only query API",
	Long: `Starts the HTTP API over the loaded datastore: lookup by ZIP or
coordinate, nearest-record search, and random sampling. The dataset is
read-only while serving; reload it with the load command and restart.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv, err := server.New(ctx, st)
		if err != nil {
			return err
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("query API listening", zap.Int("port", cfg.Server.Port))
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "serve: listen")
			}
		case <-ctx.Done():
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
