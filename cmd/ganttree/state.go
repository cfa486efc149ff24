package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/pkg/expansion"
)

func withStore(cmd *cobra.Command, fn func(*expansion.Store) error) error {
	store, closer, err := openStore(getConfig(cmd))
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(store)
}

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand ID...",
		Short: "Mark tasks expanded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *expansion.Store) error {
				s.ExpandIDs(args...)
				fmt.Fprintf(cmd.OutOrStdout(), "%d expanded\n", s.Len())
				return nil
			})
		},
	}
}

func newCollapseCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "collapse [ID...]",
		Short: "Mark tasks collapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("give task ids or --all")
			}
			return withStore(cmd, func(s *expansion.Store) error {
				if all {
					s.Clear()
				}
				for _, id := range args {
					s.Collapse(id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expanded\n", s.Len())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "collapse every task")
	return cmd
}

func newExpandedCmd() *cobra.Command {
	var toggle []string
	cmd := &cobra.Command{
		Use:   "expanded",
		Short: "List expanded task ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(s *expansion.Store) error {
				for _, id := range toggle {
					s.Toggle(id)
				}
				for _, id := range s.ExpandedIDs() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&toggle, "toggle", nil, "toggle these ids before listing")
	return cmd
}
