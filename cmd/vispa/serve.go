package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crs4/vispa/internal/annotate"
	"github.com/crs4/vispa/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [catalog.bed]",
		Short: "Serve site lookups over HTTP",
		Example: `  vispa serve genes.bed
  vispa serve --addr :9000 --cache-dir ~/.vispa/cache genes.bed.gz`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"catalog.skip-malformed": "skip-malformed",
				"catalog.cache-dir":      "cache-dir",
				"annotate.seed":          "seed",
				"serve.addr":             "addr",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Catalog.Path = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Uint64("seed", 0, "seed for the single-mode feature pick (0: nondeterministic)")
	cmd.Flags().Bool("skip-malformed", false, "skip malformed catalog records instead of failing")
	cmd.Flags().String("cache-dir", "", "directory for the parsed catalog cache")

	return cmd
}

func runServe(ctx context.Context, cfg *Config) error {
	idx, err := loadCatalog(cfg.Catalog, logger)
	if err != nil {
		return err
	}

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := server.Options{Logger: logger}
	if cfg.Annotate.Seed != 0 {
		opts.Chooser = annotate.SeededChooser(cfg.Annotate.Seed)
	}

	srv := &http.Server{
		Addr:    cfg.Serve.Addr,
		Handler: server.NewRouter(idx, opts),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Serve.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
