package usecase

import (
	"os"

	"go.uber.org/zap"

	"domainmap/internal/domain"
	"domainmap/internal/port"
	"domainmap/internal/prompt"
)

// BatchBuilder groups mapping files into batches whose fully templated
// prompt stays under the token budget.
type BatchBuilder struct {
	tokenizer port.Tokenizer
	budget    int
	log       *zap.Logger
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder(tokenizer port.Tokenizer, budget int, log *zap.Logger) *BatchBuilder {
	return &BatchBuilder{
		tokenizer: tokenizer,
		budget:    budget,
		log:       log,
	}
}

// Build walks the mapping in order and seals a batch whenever adding the
// next file would push the templated prompt past the budget. A file whose
// own templated prompt exceeds the budget is skipped and reported, as is a
// file that cannot be read; neither fails the run.
func (b *BatchBuilder) Build(mapping domain.ClassMapping) (domain.BatchReport, error) {
	var report domain.BatchReport

	var current []domain.BatchEntry
	var currentPrompt string
	var currentTokens int

	seal := func() {
		report.Batches = append(report.Batches, domain.Batch{
			Index:   len(report.Batches),
			Entries: current,
			Prompt:  currentPrompt,
			Tokens:  currentTokens,
		})
		b.log.Info("sealed batch",
			zap.Int("batch", len(report.Batches)-1),
			zap.Int("files", len(current)),
			zap.Int("tokens", currentTokens))
		current = nil
		currentPrompt = ""
		currentTokens = 0
	}

	for _, e := range mapping {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			b.log.Warn("failed to read source file",
				zap.String("class", e.Name),
				zap.String("path", e.Path),
				zap.Error(err))
			report.Skipped = append(report.Skipped, domain.SkippedFile{
				Name: e.Name,
				Path: e.Path,
				Err:  err.Error(),
			})
			continue
		}

		entry := domain.BatchEntry{Name: e.Name, Path: e.Path, Content: string(data)}

		solo, err := prompt.Summarize([]domain.BatchEntry{entry})
		if err != nil {
			return report, err
		}
		soloTokens := b.tokenizer.CountTokens(solo)
		if soloTokens > b.budget {
			b.log.Warn("file exceeds token budget on its own, skipping",
				zap.String("class", e.Name),
				zap.String("path", e.Path),
				zap.Int("tokens", soloTokens),
				zap.Int("budget", b.budget))
			report.Skipped = append(report.Skipped, domain.SkippedFile{
				Name:   e.Name,
				Path:   e.Path,
				Tokens: soloTokens,
			})
			continue
		}

		candidate := make([]domain.BatchEntry, len(current), len(current)+1)
		copy(candidate, current)
		candidate = append(candidate, entry)

		rendered, err := prompt.Summarize(candidate)
		if err != nil {
			return report, err
		}
		tokens := b.tokenizer.CountTokens(rendered)

		if tokens > b.budget && len(current) > 0 {
			seal()
			current = []domain.BatchEntry{entry}
			currentPrompt = solo
			currentTokens = soloTokens
			continue
		}

		current = candidate
		currentPrompt = rendered
		currentTokens = tokens
	}

	if len(current) > 0 {
		seal()
	}

	return report, nil
}
