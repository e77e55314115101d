package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Consiliency/treesitter-chunker-sub001/internal/chunk"
	"github.com/Consiliency/treesitter-chunker-sub001/internal/config"
)

// chunkOutput is the JSON record emitted per file.
type chunkOutput struct {
	File     string          `json:"file"`
	Strategy string          `json:"strategy"`
	Language string          `json:"language"`
	Chunks   []*chunk.Chunk  `json:"chunks"`
	Warnings []chunk.Warning `json:"warnings,omitempty"`
}

func newChunkCmd() *cobra.Command {
	var (
		maxTokens int
		workers   int
		noParse   bool
	)

	cmd := &cobra.Command{
		Use:   "chunk [files...]",
		Short: "Chunk source files and print JSON records to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if flagConfig != "" {
				loaded, err := config.Load(flagConfig)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("max-tokens") {
				cfg.MaxTokens = maxTokens
			}

			registry := chunk.NewRegistry()
			if err := cfg.Apply(registry); err != nil {
				return err
			}

			counter, err := cfg.Counter()
			if err != nil {
				return err
			}

			var provider chunk.TreeProvider
			if !noParse {
				parser := chunk.NewParser()
				defer parser.Close()
				provider = parser
			}

			engine, err := chunk.NewEngine(registry, chunk.Options{
				MaxTokens: cfg.MaxTokens,
				Window:    cfg.WindowConfig(),
				Counter:   counter,
				Provider:  provider,
			})
			if err != nil {
				return err
			}

			files := make([]*chunk.FileInput, 0, len(args))
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", path, err)
					continue
				}
				files = append(files, &chunk.FileInput{Path: path, Content: content})
			}

			if workers < 1 {
				workers = runtime.NumCPU()
			}
			results, err := engine.ChunkBatch(cmd.Context(), files, workers)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, res := range results {
				if res == nil {
					continue
				}
				out := chunkOutput{
					File:     res.FileID,
					Strategy: string(res.Decision.Strategy),
					Language: res.Decision.Language,
					Chunks:   res.Chunks,
					Warnings: res.Warnings,
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", chunk.DefaultMaxChunkTokens, "per-chunk token budget (0 disables splitting)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (default: CPU count)")
	cmd.Flags().BoolVar(&noParse, "no-parse", false, "skip parsing; window-chunk everything")

	return cmd
}
