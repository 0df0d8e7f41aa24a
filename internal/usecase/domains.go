package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/port"
	"domainmap/internal/prompt"
)

// ErrUnparsed reports that the synthesis response did not parse as a
// catalog. The raw text is persisted for manual repair and the run is not
// failed.
var ErrUnparsed = errors.New("domain synthesis response was not parseable")

// DomainSynthesizer derives the domain catalog from the summary transcript
// with a single generation call.
type DomainSynthesizer struct {
	llm port.LLM
	art *store.Artifacts
	log *zap.Logger
}

// NewDomainSynthesizer creates a new synthesizer.
func NewDomainSynthesizer(llm port.LLM, art *store.Artifacts, log *zap.Logger) *DomainSynthesizer {
	return &DomainSynthesizer{llm: llm, art: art, log: log}
}

// Run asks the model for a structured domain set, normalizes names, and
// persists the catalog. On parse failure the raw response is persisted
// verbatim and ErrUnparsed is returned.
func (s *DomainSynthesizer) Run(ctx context.Context, transcript string) (domain.Catalog, error) {
	p, err := prompt.Domains(transcript)
	if err != nil {
		return domain.Catalog{}, err
	}

	resp, err := s.llm.GenerateWithSystem(ctx, prompt.SystemArchitect, p)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("domain synthesis failed: %w", err)
	}

	catalog, perr := ParseCatalog(resp)
	if perr != nil {
		s.log.Warn("could not parse domain synthesis response, persisting raw text",
			zap.Error(perr))
		if werr := s.art.WriteRawCatalog(resp); werr != nil {
			return domain.Catalog{}, werr
		}
		return domain.Catalog{}, fmt.Errorf("%w: %v", ErrUnparsed, perr)
	}

	for i := range catalog.Domains {
		catalog.Domains[i].Name = domain.NormalizeDomainName(catalog.Domains[i].Name)
	}
	catalog.EnsureCommon()

	if err := s.art.WriteCatalog(catalog); err != nil {
		return domain.Catalog{}, err
	}

	s.log.Info("synthesized domain catalog", zap.Strings("domains", catalog.Names()))
	return catalog, nil
}

// ParseCatalog parses a synthesis response, tolerating markdown code
// fences around the JSON.
func ParseCatalog(text string) (domain.Catalog, error) {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	t = strings.TrimSpace(t)

	var c domain.Catalog
	if err := json.Unmarshal([]byte(t), &c); err != nil {
		return c, err
	}
	if len(c.Domains) == 0 {
		return c, fmt.Errorf("no domains in response")
	}
	return c, nil
}
