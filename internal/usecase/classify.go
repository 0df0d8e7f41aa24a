package usecase

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/port"
	"domainmap/internal/prompt"
)

// ClassifierOptions bounds the concurrent classification stage.
type ClassifierOptions struct {
	Workers         int
	CheckpointEvery int
	MaxRetries      int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	MaxContentBytes int
}

func (o *ClassifierOptions) defaults() {
	if o.Workers <= 0 {
		o.Workers = 20
	}
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = 10
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 60 * time.Second
	}
	if o.MaxContentBytes <= 0 {
		o.MaxContentBytes = 48 * 1024
	}
}

// Classifier assigns each identifier in a class mapping to one catalog
// domain, with bounded parallelism, rate-limit retry, and periodic
// checkpoints of the full assignment map.
type Classifier struct {
	llm  port.LLM
	art  *store.Artifacts
	opts ClassifierOptions
	log  *zap.Logger

	sleep  func(time.Duration) // injectable for tests
	jitter func() time.Duration
}

// NewClassifier creates a new classifier.
func NewClassifier(llm port.LLM, art *store.Artifacts, opts ClassifierOptions, log *zap.Logger) *Classifier {
	opts.defaults()
	return &Classifier{
		llm:   llm,
		art:   art,
		opts:  opts,
		log:   log,
		sleep: time.Sleep,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
		},
	}
}

// assignments owns the shared assignment map. put is the single atomic
// insert-and-maybe-checkpoint operation, so no worker ever holds more than
// one lock.
type assignments struct {
	mu        sync.Mutex
	m         domain.Assignment
	processed int
	every     int
	flush     func(domain.Assignment) error
}

// put records one assignment and flushes a full snapshot every Nth entry.
// It returns the number of identifiers processed so far.
func (a *assignments) put(name, dom string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[name] = dom
	a.processed++
	if a.every > 0 && a.processed%a.every == 0 {
		return a.processed, a.flush(a.snapshotLocked())
	}
	return a.processed, nil
}

func (a *assignments) snapshotLocked() domain.Assignment {
	out := make(domain.Assignment, len(a.m))
	for k, v := range a.m {
		out[k] = v
	}
	return out
}

func (a *assignments) snapshot() domain.Assignment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Run classifies every identifier in the mapping. Per-item failures fall
// back to the reserved common domain and never abort the run; the returned
// map's key set always equals the mapping's key set. A final full persist
// happens after all workers complete, regardless of checkpoint cadence.
func (c *Classifier) Run(ctx context.Context, mapping domain.ClassMapping, catalog domain.Catalog, progress func(done, total int)) (domain.Assignment, error) {
	asg := &assignments{
		m:     make(domain.Assignment, len(mapping)),
		every: c.opts.CheckpointEvery,
		flush: c.art.WriteAssignments,
	}

	g := new(errgroup.Group)
	g.SetLimit(c.opts.Workers)

	total := len(mapping)
	for _, e := range mapping {
		e := e
		g.Go(func() error {
			name := c.classifyOne(ctx, e, catalog)
			done, err := asg.put(e.Name, name)
			if err != nil {
				c.log.Warn("checkpoint write failed", zap.Error(err))
			}
			if progress != nil {
				progress(done, total)
			}
			return nil
		})
	}

	// Workers never return errors; every failure is recorded per item.
	_ = g.Wait()

	final := asg.snapshot()
	if err := c.art.WriteAssignments(final); err != nil {
		return final, err
	}
	return final, nil
}

// classifyOne runs the full per-identifier flow and always returns a
// catalog member, falling back to common.
func (c *Classifier) classifyOne(ctx context.Context, e domain.ClassEntry, catalog domain.Catalog) string {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		c.log.Warn("failed to read source file, assigning common",
			zap.String("class", e.Name),
			zap.String("path", e.Path),
			zap.Error(err))
		return domain.CommonDomain
	}
	if len(data) > c.opts.MaxContentBytes {
		data = data[:c.opts.MaxContentBytes]
	}

	userPrompt, err := prompt.Classify(e.Name, catalog, string(data))
	if err != nil {
		c.log.Warn("failed to build classification prompt, assigning common",
			zap.String("class", e.Name),
			zap.Error(err))
		return domain.CommonDomain
	}

	resp, err := c.generateWithRetry(ctx, userPrompt)
	if err != nil {
		if errors.Is(err, port.ErrRateLimited) {
			c.log.Warn("rate-limit retries exhausted, assigning common",
				zap.String("class", e.Name),
				zap.Error(err))
		} else {
			c.log.Warn("classification request failed, assigning common",
				zap.String("class", e.Name),
				zap.Error(err))
		}
		return domain.CommonDomain
	}

	name := domain.NormalizeDomainName(strings.Trim(resp, "\"'`. \n"))
	if !catalog.Has(name) {
		c.log.Warn("model returned a domain outside the catalog, assigning common",
			zap.String("class", e.Name),
			zap.String("answer", name))
		return domain.CommonDomain
	}
	return name
}

// generateWithRetry retries only rate-limit failures, with exponential
// backoff plus jitter, capped and bounded by MaxRetries. Any other error is
// terminal for the request.
func (c *Classifier) generateWithRetry(ctx context.Context, userPrompt string) (string, error) {
	delay := c.opts.BackoffBase
	for attempt := 0; ; attempt++ {
		text, err := c.llm.GenerateWithSystem(ctx, prompt.SystemClassifier, userPrompt)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, port.ErrRateLimited) {
			return "", err
		}
		if attempt >= c.opts.MaxRetries {
			return "", err
		}
		c.sleep(delay + c.jitter())
		delay *= 2
		if delay > c.opts.BackoffCap {
			delay = c.opts.BackoffCap
		}
	}
}
