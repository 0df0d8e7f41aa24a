package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"domainmap/internal/adapter/analyzer"
	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/usecase"
)

var batchCmd = &cobra.Command{
	Use:   "batch <mapping.json>",
	Short: "Group mapped files into token-bounded batches",
	Long: `Read the class mapping, measure each file against the token budget, and
write the templated batch prompts to batches.json. Oversized and
unreadable files are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	_, err := batchStage(args[0])
	return err
}

// batchStage builds the batch report for a mapping and persists the
// prompts. Shared by the batch, summarize and run commands.
func batchStage(mappingPath string) (domain.BatchReport, error) {
	mapping, err := domain.LoadClassMapping(mappingPath)
	if err != nil {
		return domain.BatchReport{}, err
	}

	builder := usecase.NewBatchBuilder(analyzer.NewTokenizer(), cfg.Batch.TokenBudget, logger)
	report, err := builder.Build(mapping)
	if err != nil {
		return report, fmt.Errorf("batch building failed: %w", err)
	}

	prompts := make([]string, 0, len(report.Batches))
	files := 0
	for _, b := range report.Batches {
		prompts = append(prompts, b.Prompt)
		files += len(b.Entries)
	}
	if err := artifacts().WriteBatchPrompts(prompts); err != nil {
		return report, fmt.Errorf("failed to write batch prompts: %w", err)
	}

	fmt.Printf("Batching complete:\n")
	fmt.Printf("  Batches sealed: %d\n", len(report.Batches))
	fmt.Printf("  Files batched:  %d\n", files)
	fmt.Printf("  Files skipped:  %d\n", len(report.Skipped))

	if len(report.Skipped) > 0 {
		fmt.Printf("\nSkipped:\n")
		for _, s := range report.Skipped {
			if s.Err != "" {
				fmt.Printf("  - %s (%s): %s\n", s.Name, s.Path, s.Err)
			} else {
				fmt.Printf("  - %s (%s): %d tokens over budget %d\n", s.Name, s.Path, s.Tokens, cfg.Batch.TokenBudget)
			}
		}
	}

	fmt.Printf("\nPrompts stored at: %s\n", filepath.Join(artifacts().Dir(), store.BatchesFile))
	return report, nil
}
