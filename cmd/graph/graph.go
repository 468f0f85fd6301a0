package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/config"
	"github.com/eoinhurrell/notegraph/internal/graph"
	"github.com/eoinhurrell/notegraph/internal/similarity"
)

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Analyze the link graph of a vault",
		Long:  `Index wikilinks across a vault and report backlinks, dangling links, orphan notes and link statistics`,
	}

	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newBacklinksCommand())
	cmd.AddCommand(newDanglingCommand())
	cmd.AddCommand(newOrphansCommand())
	cmd.AddCommand(newSimilarCommand())

	return cmd
}

func newStatsCommand() *cobra.Command {
	var (
		outputFormat string
		noCache      bool
		quick        bool
	)

	cmd := &cobra.Command{
		Use:   "stats [vault-path]",
		Short: "Generate link graph statistics",
		Long:  `Scan the vault and report note, connection, dangling link and orphan counts`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, err := setup(cmd)
			if err != nil {
				return err
			}
			vaultPath := vaultArg(cfg, args)

			if quick {
				stats, err := analyzer.QuickStats(vaultPath)
				if err != nil {
					return fmt.Errorf("analyzing vault: %w", err)
				}
				return output(outputFormat, stats, formatQuickStatsText(stats))
			}

			opts := graph.DefaultOptions()
			opts.UseCache = !noCache
			opts.IncludeContext = cfg.Analysis.IncludeContext
			opts.ContextLength = cfg.Analysis.ContextLength

			stats, err := analyzer.Analyze(vaultPath, opts)
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}
			return output(outputFormat, stats, formatStatsText(stats))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&quick, "quick", false, "Report counters only")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the analysis cache")

	return cmd
}

func newBacklinksCommand() *cobra.Command {
	var (
		outputFormat  string
		withContext   bool
		contextLength int
	)

	cmd := &cobra.Command{
		Use:   "backlinks <title> [vault-path]",
		Short: "List notes linking to a note",
		Long:  `List every note containing a wikilink that resolves to the given note title or alias`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, err := setup(cmd)
			if err != nil {
				return err
			}
			title := args[0]
			vaultPath := vaultArg(cfg, args[1:])

			if withContext {
				// warm the cache with a context-bearing analysis so the
				// lookup below returns entries carrying snippets
				opts := graph.DefaultOptions()
				opts.IncludeContext = true
				opts.ContextLength = contextLength
				if _, err := analyzer.Analyze(vaultPath, opts); err != nil {
					return fmt.Errorf("analyzing vault: %w", err)
				}
			}

			entries, err := analyzer.GetBacklinksForNote(vaultPath, title)
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}
			return output(outputFormat, entries, formatBacklinksText(title, entries))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&withContext, "context", false, "Include a text snippet around each mention")
	cmd.Flags().IntVar(&contextLength, "context-length", 100, "Snippet length in bytes")
	return cmd
}

func newDanglingCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "dangling [vault-path]",
		Short: "List link targets that resolve to no note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, err := setup(cmd)
			if err != nil {
				return err
			}
			vaultPath := vaultArg(cfg, args)

			dangling, err := analyzer.FindDanglingLinks(vaultPath)
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}
			return output(outputFormat, dangling, formatDanglingText(dangling))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func newOrphansCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "orphans [vault-path]",
		Short: "List notes with no links in either direction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, err := setup(cmd)
			if err != nil {
				return err
			}
			vaultPath := vaultArg(cfg, args)

			orphans, err := analyzer.FindOrphanNotes(vaultPath)
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}
			return output(outputFormat, orphans, formatOrphansText(orphans))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func newSimilarCommand() *cobra.Command {
	var (
		outputFormat string
		threshold    float64
		minSize      int
		maxResults   int
	)

	cmd := &cobra.Command{
		Use:   "similar [vault-path]",
		Short: "Cluster dangling link targets by similarity",
		Long:  `Group dangling wikilink targets that look like misspellings of each other and propose one canonical spelling per group`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, analyzer, err := setup(cmd)
			if err != nil {
				return err
			}
			vaultPath := vaultArg(cfg, args)

			dangling, err := analyzer.FindDanglingLinks(vaultPath)
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}

			opts := similarity.Options{
				Threshold:      cfg.Similarity.Threshold,
				MinClusterSize: cfg.Similarity.MinClusterSize,
				MaxResults:     cfg.Similarity.MaxResults,
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			if cmd.Flags().Changed("min-cluster-size") {
				opts.MinClusterSize = minSize
			}
			if cmd.Flags().Changed("max-results") {
				opts.MaxResults = maxResults
			}

			clusters := similarity.Cluster(dangling, opts)
			return output(outputFormat, clusters, formatClustersText(clusters))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.7, "Minimum similarity to join a cluster (0.0-1.0)")
	cmd.Flags().IntVar(&minSize, "min-cluster-size", 2, "Minimum members per cluster")
	cmd.Flags().IntVar(&maxResults, "max-results", 50, "Maximum clusters to report")

	return cmd
}

// setup loads config and builds the analyzer stack shared by all
// graph subcommands.
func setup(cmd *cobra.Command) (*config.Config, *graph.Analyzer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	c := cache.New(cache.Config{TTL: cfg.CacheTTL()})
	analyzer := graph.New(c,
		graph.WithMaxWorkers(cfg.Analysis.MaxWorkers),
		graph.WithIgnorePatterns(cfg.Vault.IgnorePatterns),
	)
	return cfg, analyzer, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigFile(configPath)
	}
	return loader.Load()
}

// vaultArg picks the vault path: positional argument wins, then config
func vaultArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Vault.Path
}

func output(format string, v any, text string) error {
	if format == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(text)
	return nil
}

func formatStatsText(stats *graph.Stats) string {
	output := fmt.Sprintf(`Link Graph Statistics
=====================

Notes:              %d
Unique connections: %d
Total mentions:     %d
Dangling targets:   %d
Orphan notes:       %d
`, stats.NoteCount, stats.UniqueConnections, stats.TotalMentions,
		len(stats.DanglingLinks), len(stats.OrphanNotes))

	if len(stats.Collisions) > 0 {
		output += fmt.Sprintf("\nAlias collisions (%d):\n", len(stats.Collisions))
		for _, col := range stats.Collisions {
			output += fmt.Sprintf("  %q: %s shadows %s\n", col.Key, col.Winner, col.Shadowed)
		}
	}
	return output
}

func formatQuickStatsText(quick graph.QuickStats) string {
	return fmt.Sprintf("notes: %d  connections: %d  dangling: %d  orphans: %d\n",
		quick.NoteCount, quick.ConnectionCount, quick.DanglingCount, quick.OrphanCount)
}

func formatBacklinksText(title string, entries []graph.BacklinkEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No backlinks found for %q.\n", title)
	}

	output := fmt.Sprintf("Backlinks for %q (%d):\n", title, len(entries))
	for _, entry := range entries {
		line := fmt.Sprintf("  - %s (%s)", entry.NoteTitle, entry.NotePath)
		if entry.Alias != "" {
			line += fmt.Sprintf(" as %q", entry.Alias)
		}
		output += line + "\n"
		if entry.Context != "" {
			output += fmt.Sprintf("      %s\n", entry.Context)
		}
	}
	return output
}

func formatDanglingText(dangling []graph.DanglingLink) string {
	if len(dangling) == 0 {
		return "No dangling links found.\n"
	}

	output := fmt.Sprintf("Found %d dangling link targets:\n\n", len(dangling))
	for _, link := range dangling {
		output += fmt.Sprintf("[[%s]] (%d mentions)\n", link.Target, link.TotalOccurrences())
		for _, source := range link.Sources {
			output += fmt.Sprintf("  - %s (%d)\n", source.NotePath, source.Count)
		}
	}
	return output
}

func formatOrphansText(orphans []string) string {
	if len(orphans) == 0 {
		return "No orphan notes found.\n"
	}

	output := fmt.Sprintf("Found %d orphan notes:\n", len(orphans))
	for _, path := range orphans {
		output += fmt.Sprintf("  - %s\n", path)
	}
	return output
}

func formatClustersText(clusters []similarity.LinkCluster) string {
	if len(clusters) == 0 {
		return "No similar dangling targets found.\n"
	}

	output := fmt.Sprintf("Found %d clusters of similar dangling targets:\n\n", len(clusters))
	for _, cluster := range clusters {
		var members []string
		for _, m := range cluster.Members {
			if m.Target != cluster.RepresentativeTarget {
				members = append(members, fmt.Sprintf("%s (%.2f)", m.Target, m.Similarity))
			}
		}
		output += fmt.Sprintf("%s: [[%s]] (%d mentions total)\n", cluster.ID, cluster.RepresentativeTarget, cluster.TotalOccurrences)
		if len(members) > 0 {
			output += fmt.Sprintf("  variants: %s\n", strings.Join(members, ", "))
		}
	}
	return output
}
