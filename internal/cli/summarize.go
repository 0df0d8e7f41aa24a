package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainmap/config"
	"domainmap/internal/adapter/store"
	"domainmap/internal/usecase"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <mapping.json>",
	Short: "Summarize each batch with the configured model",
	Long: `Build batches from the class mapping and send each one to the model in
order, collecting the summaries into summaries.txt. Summaries for
unchanged batches are served from the local cache on re-runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	return summarizeStage(cmd, args[0])
}

func summarizeStage(cmd *cobra.Command, mappingPath string) error {
	report, err := batchStage(mappingPath)
	if err != nil {
		return err
	}
	if len(report.Batches) == 0 {
		fmt.Println("Nothing to summarize.")
		return nil
	}

	client, err := newLLM()
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	var cache *store.RunStore
	cache, err = store.OpenRunStore(config.RunStorePath(artifacts().Dir()))
	if err != nil {
		logger.Warn("summary cache unavailable, summarizing without it", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	summarizer := usecase.NewSummarizer(client, cache, cfg.Summarize.ContinueOnError, logger)

	summaries, err := summarizer.Run(cmd.Context(), report.Batches, func(done, total int, summary string) {
		fmt.Printf("\n[%d/%d] SUMMARY:\n\n%s\n", done, total, summary)
	})
	if werr := artifacts().WriteTranscript(summaries); werr != nil {
		return fmt.Errorf("failed to write transcript: %w", werr)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nTranscript stored at: %s\n", filepath.Join(artifacts().Dir(), store.SummariesFile))
	return nil
}
