package root

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/notegraph/cmd/graph"
	"github.com/eoinhurrell/notegraph/cmd/health"
	"github.com/eoinhurrell/notegraph/cmd/serve"
	"github.com/eoinhurrell/notegraph/cmd/watch"
)

// NewRootCommand creates the root command for notegraph
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notegraph",
		Short: "A CLI tool for analyzing the link graph of a markdown vault",
		Long: `notegraph indexes the wikilinks in a directory of markdown notes and
reports on the resulting graph: backlinks, dangling links, orphan
notes, near-duplicate link targets and overall vault health.`,
		Version: "1.0.0",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Config file (default: notegraph.yaml)")
	cmd.PersistentFlags().Bool("verbose", false, "Detailed output")

	// Add subcommands
	cmd.AddCommand(graph.NewGraphCommand())
	cmd.AddCommand(health.NewHealthCommand())
	cmd.AddCommand(watch.Cmd)
	cmd.AddCommand(serve.NewServeCommand())

	cmd.AddCommand(newCompletionCommand())
	setupCustomCompletions(cmd)

	return cmd
}

// newCompletionCommand creates the completion command
func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(notegraph completion bash)

Zsh:

  $ notegraph completion zsh > "${fpath[1]}/_notegraph"

fish:

  $ notegraph completion fish | source

PowerShell:

  PS> notegraph completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}

	return cmd
}

// setupCustomCompletions adds completion functions for paths and flags
func setupCustomCompletions(cmd *cobra.Command) {
	cmd.RegisterFlagCompletionFunc("config", CompleteConfigFiles)

	for _, subCmd := range cmd.Commands() {
		switch subCmd.Name() {
		case "graph", "health", "watch", "serve":
			subCmd.ValidArgsFunction = CompleteDirs
		}

		for _, nested := range subCmd.Commands() {
			nested.ValidArgsFunction = CompleteDirs
			nested.RegisterFlagCompletionFunc("format", CompleteOutputFormats)
		}
	}
}

// CompleteDirs provides directory completion
func CompleteDirs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// CompleteConfigFiles provides config file completion
func CompleteConfigFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteOutputFormats provides completion for output format flags
func CompleteOutputFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
}
