package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/port"
	"domainmap/internal/prompt"
)

// Summarizer runs the sequential batch summarization stage. This stage is
// deliberately single-threaded; only classification parallelizes.
type Summarizer struct {
	llm             port.LLM
	cache           *store.RunStore // optional summary cache
	continueOnError bool
	log             *zap.Logger
}

// NewSummarizer creates a new summarizer. cache may be nil.
func NewSummarizer(llm port.LLM, cache *store.RunStore, continueOnError bool, log *zap.Logger) *Summarizer {
	return &Summarizer{
		llm:             llm,
		cache:           cache,
		continueOnError: continueOnError,
		log:             log,
	}
}

// Run summarizes each batch in order and returns the transcript entries.
// Batches whose prompt is already in the cache are skipped. A generation
// failure aborts the run unless continue_on_error is set, in which case the
// batch contributes nothing. progress may be nil.
func (s *Summarizer) Run(ctx context.Context, batches []domain.Batch, progress func(done, total int, summary string)) ([]string, error) {
	summaries := make([]string, 0, len(batches))

	for i, b := range batches {
		key := store.SummaryKey(b.Prompt)

		if s.cache != nil {
			text, found, err := s.cache.GetSummary(key)
			if err != nil {
				s.log.Warn("summary cache read failed", zap.Int("batch", b.Index), zap.Error(err))
			} else if found {
				s.log.Debug("summary cache hit", zap.Int("batch", b.Index))
				summaries = append(summaries, text)
				if progress != nil {
					progress(i+1, len(batches), text)
				}
				continue
			}
		}

		text, err := s.llm.GenerateWithSystem(ctx, prompt.SystemArchitect, b.Prompt)
		if err != nil {
			if s.continueOnError {
				s.log.Warn("summarization failed, skipping batch",
					zap.Int("batch", b.Index),
					zap.Error(err))
				if progress != nil {
					progress(i+1, len(batches), "")
				}
				continue
			}
			return summaries, fmt.Errorf("summarization failed for batch %d: %w", b.Index, err)
		}

		if s.cache != nil {
			if err := s.cache.PutSummary(key, text); err != nil {
				s.log.Warn("summary cache write failed", zap.Int("batch", b.Index), zap.Error(err))
			}
		}

		summaries = append(summaries, text)
		if progress != nil {
			progress(i+1, len(batches), text)
		}
	}

	return summaries, nil
}
