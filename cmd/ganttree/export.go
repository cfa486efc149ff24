package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/pkg/loader"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the fetched task list as JSONL",
		Long: `Fetch tasks with parents resolved and write them one JSON object per
line. The file can be read back later with --file, without GitLab access.`,
		Example: `  ganttree export -p group/app tasks.jsonl
  ganttree tree --file tasks.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(getConfig(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.fetcher.Fetch(cmd.Context(), a.listOptions())
			if err != nil {
				return err
			}
			if err := loader.SaveTasksToFile(args[0], res.Tasks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tasks from %s to %s\n", len(res.Tasks), res.Source, args[0])
			return nil
		},
	}
}
