// Command ganttree prints and serves the parent/child hierarchy of GitLab
// issues as a collapsible tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/pkg/config"
	"github.com/vanderheijden86/ganttree/pkg/version"
)

// configKey is used to store config in context.
type configKey struct{}

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "ganttree",
		Short: "Issue hierarchy trees for GitLab projects",
		Long: `ganttree resolves the parent/child hierarchy of GitLab issues and
prints it as a collapsible tree, or serves it over HTTP.

Tasks come from a GitLab project (or the issues assigned to a user), from
a JSONL snapshot file, or from the snapshot cached by the last fetch.`,
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/ganttree/config.yaml)")
	rootCmd.PersistentFlags().String("instance", "", "GitLab instance URL")
	rootCmd.PersistentFlags().String("token", "", "GitLab access token")
	rootCmd.PersistentFlags().StringP("project", "p", "", "GitLab project path (group/project)")
	rootCmd.PersistentFlags().StringP("assignee", "a", "", "list issues assigned to this user across projects")
	rootCmd.PersistentFlags().StringP("file", "f", "", "read tasks from a JSONL snapshot instead of GitLab")
	rootCmd.PersistentFlags().Bool("offline", false, "read the snapshot cached by the last fetch")
	rootCmd.PersistentFlags().Bool("no-hierarchy", false, "skip parent resolution")
	rootCmd.PersistentFlags().Bool("links", false, "resolve parents from issue links")
	rootCmd.PersistentFlags().Int("batch-size", 0, "hierarchy lookups per request (1-50)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "parallel link and project requests")
	rootCmd.PersistentFlags().String("state-backend", "", "where expansion state is kept (memory|file|sqlite)")
	rootCmd.PersistentFlags().String("state-path", "", "expansion state file or database")

	_ = rootCmd.RegisterFlagCompletionFunc("state-backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"memory", "file", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newTreeCmd(),
		newDoctorCmd(),
		newServeCmd(),
		newExpandCmd(),
		newCollapseCmd(),
		newExpandedCmd(),
		newStatsCmd(),
		newExportCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// getConfig retrieves the config from the command context.
func getConfig(cmd *cobra.Command) config.Config {
	if c, ok := cmd.Context().Value(configKey{}).(config.Config); ok {
		return c
	}
	return config.DefaultConfig()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
