package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"domainmap/internal/adapter/store"
	"domainmap/internal/usecase"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Derive the business domain catalog from the transcript",
	Long: `Send the full summary transcript to the model and persist the derived
domain catalog to domains.json. If the response does not parse, the raw
text is saved verbatim for manual repair.`,
	Args: cobra.NoArgs,
	RunE: runDomains,
}

func init() {
	rootCmd.AddCommand(domainsCmd)
}

func runDomains(cmd *cobra.Command, args []string) error {
	return domainsStage(cmd)
}

func domainsStage(cmd *cobra.Command) error {
	transcript, err := artifacts().ReadTranscript()
	if err != nil {
		return fmt.Errorf("failed to read transcript (run summarize first): %w", err)
	}

	client, err := newLLM()
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	synth := usecase.NewDomainSynthesizer(client, artifacts(), logger)

	catalog, err := synth.Run(cmd.Context(), transcript)
	if errors.Is(err, usecase.ErrUnparsed) {
		fmt.Printf("Response did not parse; raw text saved to %s for manual repair.\n",
			filepath.Join(artifacts().Dir(), store.DomainsFile))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Derived %d domains:\n", len(catalog.Domains))
	for _, d := range catalog.Domains {
		fmt.Printf("  - %s: %s\n", d.Name, d.Description)
	}
	fmt.Printf("\nCatalog stored at: %s\n", filepath.Join(artifacts().Dir(), store.DomainsFile))
	return nil
}
