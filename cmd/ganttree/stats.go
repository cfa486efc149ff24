package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/pkg/metrics"
)

func newStatsCmd() *cobra.Command {
	opts := &treeOptions{Page: 1}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the tree once and print timing and cache metrics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			store, closer, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			metrics.SetEnabled(true)
			metrics.ResetAll()
			v, err := buildView(cmd.Context(), a, store, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Tasks   int              `json:"tasks"`
				Rows    int              `json:"rows"`
				Metrics metrics.Snapshot `json:"metrics"`
			}{Tasks: v.Total, Rows: len(v.Rows), Metrics: metrics.TakeSnapshot()})
		},
	}
	cmd.Flags().String("filter", "", "filter term to time")
	cmd.Flags().String("mode", "", "filter mode (simple|regex)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "flatten every task")
	return cmd
}
