package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runStage int

var runCmd = &cobra.Command{
	Use:   "run <mapping.json>",
	Short: "Run one pipeline stage selected by number",
	Long: `Run a single pipeline stage against the class mapping:

  1  build batches (default)
  2  run summarization
  3  synthesize domains
  4  classify classes`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runStage, "stage", 1, "pipeline stage to run (1-4)")
}

func runRun(cmd *cobra.Command, args []string) error {
	switch runStage {
	case 1:
		_, err := batchStage(args[0])
		return err
	case 2:
		return summarizeStage(cmd, args[0])
	case 3:
		return domainsStage(cmd)
	case 4:
		return classifyStage(cmd, args[0])
	default:
		return fmt.Errorf("unknown stage %d (expected 1-4)", runStage)
	}
}
