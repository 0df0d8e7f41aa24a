package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"domainmap/internal/adapter/fs"
	"domainmap/internal/adapter/store"
	"domainmap/internal/usecase"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Generate a class mapping from a source tree",
	Long: `Walk a directory and write a class_mapping.json covering every source
file matched by the configured include/exclude globs. Identifiers are
derived from relative paths.

Examples:
  domainmap scan .
  domainmap scan /path/to/project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	walker := fs.NewWalker(cfg.Scan.Includes, cfg.Scan.Excludes)
	scanner := usecase.NewScanner(walker, logger)

	mapping, err := scanner.Scan(root)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := artifacts().WriteMapping(mapping); err != nil {
		return fmt.Errorf("failed to write class mapping: %w", err)
	}

	fmt.Printf("Wrote %d entries to %s\n", len(mapping), filepath.Join(artifacts().Dir(), store.MappingFile))
	return nil
}
