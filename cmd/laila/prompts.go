package main

import (
	"fmt"

	"laila/internal/prompts"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the available prompt profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := prompts.NewStore(cfg.Prompts.Dir)
		for _, name := range store.Names() {
			marker := " "
			if name == cfg.Prompts.System {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}
