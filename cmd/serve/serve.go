package serve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/config"
	"github.com/eoinhurrell/notegraph/internal/graph"
	"github.com/eoinhurrell/notegraph/internal/server"
	"github.com/eoinhurrell/notegraph/internal/similarity"
	"github.com/eoinhurrell/notegraph/internal/watcher"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		addr      string
		withWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [vault-path]",
		Short: "Serve the link graph analysis over HTTP",
		Long: `Start an HTTP API exposing graph statistics, backlinks, dangling
links, orphan notes, similarity clusters and the health report for one
vault. With --watch, file changes invalidate the cache automatically.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			loader := config.NewLoader()
			if configPath != "" {
				loader = loader.WithConfigFile(configPath)
			}
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			vaultPath := cfg.Vault.Path
			if len(args) > 0 {
				vaultPath = args[0]
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			c := cache.New(cache.Config{TTL: cfg.CacheTTL()})
			analyzer := graph.New(c,
				graph.WithMaxWorkers(cfg.Analysis.MaxWorkers),
				graph.WithIgnorePatterns(cfg.Vault.IgnorePatterns),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			c.StartCleanupTimer(ctx, cfg.CleanupInterval())

			if withWatch {
				w, err := watcher.New(watcher.Config{
					Root:     vaultPath,
					Debounce: cfg.WatchDebounce(),
					Rewarm:   cfg.Watch.Rewarm,
				}, c, analyzer)
				if err != nil {
					return fmt.Errorf("creating watcher: %w", err)
				}
				if err := w.Start(); err != nil {
					return fmt.Errorf("starting watcher: %w", err)
				}
				defer w.Stop()
			}

			clustering := similarity.Options{
				Threshold:      cfg.Similarity.Threshold,
				MinClusterSize: cfg.Similarity.MinClusterSize,
				MaxResults:     cfg.Similarity.MaxResults,
			}
			h := server.NewHandler(vaultPath, analyzer, c, clustering)
			srv := server.New(cfg.Server.Addr, h)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-sigChan:
				fmt.Println("\nShutting down server...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Printf("Error shutting down server: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8420", "Listen address")
	cmd.Flags().BoolVar(&withWatch, "watch", false, "Invalidate the cache when vault files change")

	return cmd
}
