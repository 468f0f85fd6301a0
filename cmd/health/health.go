package health

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/config"
	"github.com/eoinhurrell/notegraph/internal/graph"
	"github.com/eoinhurrell/notegraph/internal/health"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "health [vault-path]",
		Short: "Check vault link graph health",
		Long:  `Score the vault's link graph from 0 to 100 and flag structural anomalies such as hub notes, suspicious auto-links and alias collisions`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
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

			stats, err := analyzer.Analyze(vaultPath, graph.DefaultOptions())
			if err != nil {
				return fmt.Errorf("analyzing vault: %w", err)
			}
			report := health.Score(stats)

			if outputFormat == "json" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(formatReportText(report))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigFile(configPath)
	}
	return loader.Load()
}

func formatReportText(report *health.Report) string {
	output := fmt.Sprintf(`Vault Health Report
===================

Status: %s
Score:  %.1f/100

Metrics:
  Avg backlinks per note: %.2f
  Notes without backlinks: %.1f%%
  Notes without outlinks:  %.1f%%
  Orphan notes:            %.1f%%
  Link density:            %.2f
  Dangling mention ratio:  %.2f

Anomalies:
%s
Recommendations:
%s`,
		report.Status, report.HealthScore,
		report.Metrics.AvgBacklinksPerNote,
		report.Metrics.PctNoBacklinks,
		report.Metrics.PctNoOutlinks,
		report.Metrics.OrphanPct,
		report.Metrics.Density,
		report.Metrics.DanglingRatio,
		formatAnomalies(report.Anomalies),
		formatRecommendations(report.Recommendations))

	return output
}

func formatAnomalies(anomalies []health.Anomaly) string {
	if len(anomalies) == 0 {
		return "  None found.\n"
	}
	output := ""
	for _, a := range anomalies {
		output += fmt.Sprintf("  [%s] %s: %s\n", a.Severity, a.Subject, a.Detail)
	}
	return output
}

func formatRecommendations(recs []string) string {
	if len(recs) == 0 {
		return "  Nothing to do. The graph looks good.\n"
	}
	output := ""
	for _, rec := range recs {
		output += fmt.Sprintf("  - %s\n", rec)
	}
	return output
}
