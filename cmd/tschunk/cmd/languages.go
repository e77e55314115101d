package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Consiliency/treesitter-chunker-sub001/internal/chunk"
	"github.com/Consiliency/treesitter-chunker-sub001/internal/config"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List registered languages and their chunk configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := chunk.NewRegistry()
			if flagConfig != "" {
				cfg, err := config.Load(flagConfig)
				if err != nil {
					return err
				}
				if err := cfg.Apply(registry); err != nil {
					return err
				}
			}

			for _, name := range registry.Languages() {
				cfg, _ := registry.Config(name)
				parsed := "window only"
				if _, ok := chunk.SitterLanguage(name); ok {
					parsed = "tree-sitter"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-12s ext=%s chunk_types=%d rules=%d\n",
					name, parsed, strings.Join(cfg.Extensions, ","), len(cfg.ChunkTypes), len(cfg.Rules))
			}
			return nil
		},
	}
}
