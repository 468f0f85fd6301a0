package watch

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/config"
	"github.com/eoinhurrell/notegraph/internal/graph"
	"github.com/eoinhurrell/notegraph/internal/watcher"
)

// Cmd represents the watch command
var Cmd = &cobra.Command{
	Use:   "watch [vault-path]",
	Short: "Monitor a vault and keep the analysis cache fresh",
	Long: `Monitor the vault for markdown file changes and invalidate the cached
graph analysis whenever a note changes. With --rewarm, a fresh analysis
is run after invalidation (rate limited) so the next query is instant.`,
	Example: `  # Watch the configured vault
  notegraph watch

  # Watch a specific directory and re-warm the cache on changes
  notegraph watch ~/notes --rewarm`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var rewarm bool

func init() {
	Cmd.Flags().BoolVar(&rewarm, "rewarm", false, "Re-run analysis after each invalidation")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	c := cache.New(cache.Config{TTL: cfg.CacheTTL()})
	analyzer := graph.New(c,
		graph.WithMaxWorkers(cfg.Analysis.MaxWorkers),
		graph.WithIgnorePatterns(cfg.Vault.IgnorePatterns),
	)

	w, err := watcher.New(watcher.Config{
		Root:     vaultPath,
		Debounce: cfg.WatchDebounce(),
		Rewarm:   rewarm || cfg.Watch.Rewarm,
	}, c, analyzer)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	fmt.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", vaultPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down watcher...")
	if err := w.Stop(); err != nil {
		log.Printf("Error stopping watcher: %v", err)
	}
	return nil
}
