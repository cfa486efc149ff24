package main

import (
	"fmt"

	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/vanderheijden86/ganttree/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			if cfg.File != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", cfg.File)
			}
			data, err := yamlv3.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	var path string
	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration (including flags) to the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			target := path
			if target == "" {
				target = config.ConfigPath()
			}
			if target == "" {
				return fmt.Errorf("cannot determine config path; pass --to")
			}
			if err := config.SaveTo(cfg, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
			return nil
		},
	}
	save.Flags().StringVar(&path, "to", "", "file to write (default: the XDG config file)")
	cmd.AddCommand(save)
	return cmd
}
