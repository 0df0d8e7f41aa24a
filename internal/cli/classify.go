package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/usecase"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <mapping.json>",
	Short: "Assign every class to one domain from the catalog",
	Long: `Classify each identifier in the mapping into one domain from
domains.json, running requests concurrently with bounded parallelism.
Progress is checkpointed to assignments.json during the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	return classifyStage(cmd, args[0])
}

func classifyStage(cmd *cobra.Command, mappingPath string) error {
	mapping, err := domain.LoadClassMapping(mappingPath)
	if err != nil {
		return err
	}

	catalog, err := artifacts().ReadCatalog()
	if err != nil {
		return fmt.Errorf("failed to read domain catalog (run domains first): %w", err)
	}

	client, err := newLLM()
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	classifier := usecase.NewClassifier(client, artifacts(), usecase.ClassifierOptions{
		Workers:         cfg.Classify.Workers,
		CheckpointEvery: cfg.Classify.CheckpointEvery,
		MaxRetries:      cfg.Classify.MaxRetries,
		BackoffBase:     time.Duration(cfg.Classify.BackoffBaseSeconds) * time.Second,
		BackoffCap:      time.Duration(cfg.Classify.BackoffCapSeconds) * time.Second,
		MaxContentBytes: cfg.Classify.MaxContentBytes,
	}, logger)

	fmt.Printf("Classifying %d classes into %d domains...\n", len(mapping), len(catalog.Domains))

	bar := progressbar.NewOptions(len(mapping),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Classifying[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	assignment, err := classifier.Run(cmd.Context(), mapping, catalog, func(done, total int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	counts := make(map[string]int)
	for _, d := range assignment {
		counts[d]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Printf("\nClassification complete:\n")
	for _, n := range names {
		fmt.Printf("  %-24s %d\n", n, counts[n])
	}
	fmt.Printf("\nAssignments stored at: %s\n", filepath.Join(artifacts().Dir(), store.AssignmentsFile))
	return nil
}
