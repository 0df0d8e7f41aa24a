package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"domainmap/internal/adapter/llm"
	"domainmap/internal/adapter/store"
	"domainmap/internal/domain"
	"domainmap/internal/port"
)

func testCatalog() domain.Catalog {
	return domain.Catalog{Domains: []domain.Domain{
		{Name: "billing", Description: "invoices and payments"},
		{Name: "common", Description: "shared code"},
	}}
}

func singleFileMapping(t *testing.T) domain.ClassMapping {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Foo.txt")
	if err := os.WriteFile(path, []byte("class Foo {}"), 0644); err != nil {
		t.Fatal(err)
	}
	return domain.ClassMapping{{Name: "Foo", Path: path}}
}

// quiet makes a classifier deterministic: no real sleeping, no jitter.
// Returned slice pointer collects observed backoff delays.
func quiet(c *Classifier) *[]time.Duration {
	var mu sync.Mutex
	slept := &[]time.Duration{}
	c.sleep = func(d time.Duration) {
		mu.Lock()
		*slept = append(*slept, d)
		mu.Unlock()
	}
	c.jitter = func() time.Duration { return 0 }
	return slept
}

func rateLimitErr() error {
	return fmt.Errorf("API returned status 429: %w", port.ErrRateLimited)
}

func TestClassifyHappyPath(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Text: "billing"})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != "billing" {
		t.Errorf("expected billing, got %q", asg["Foo"])
	}
}

func TestClassifyUnknownDomainFallsBack(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Text: "shipping"})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != domain.CommonDomain {
		t.Errorf("expected common fallback, got %q", asg["Foo"])
	}
}

func TestClassifyRetriesRateLimitThenSucceeds(t *testing.T) {
	mock := llm.NewMockClient(
		llm.MockStep{Err: rateLimitErr()},
		llm.MockStep{Err: rateLimitErr()},
		llm.MockStep{Err: rateLimitErr()},
		llm.MockStep{Text: "billing"},
	)
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{
		BackoffBase: time.Second,
		BackoffCap:  60 * time.Second,
		MaxRetries:  5,
	}, zap.NewNop())
	slept := quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != "billing" {
		t.Errorf("expected billing after retries, got %q", asg["Foo"])
	}
	if len(*slept) != 3 {
		t.Fatalf("expected 3 backoff sleeps, got %d", len(*slept))
	}
	for i := 1; i < len(*slept); i++ {
		if (*slept)[i] < (*slept)[i-1] {
			t.Errorf("backoff not non-decreasing: %v", *slept)
		}
	}
	if (*slept)[0] != time.Second || (*slept)[2] != 4*time.Second {
		t.Errorf("expected doubling from 1s, got %v", *slept)
	}
}

func TestClassifyBackoffIsCapped(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Err: rateLimitErr()})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{
		BackoffBase: time.Second,
		BackoffCap:  2 * time.Second,
		MaxRetries:  4,
	}, zap.NewNop())
	slept := quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != domain.CommonDomain {
		t.Errorf("expected common after exhaustion, got %q", asg["Foo"])
	}
	for _, d := range *slept {
		if d > 2*time.Second {
			t.Errorf("backoff exceeded cap: %v", *slept)
		}
	}
}

func TestClassifyRateLimitExhaustionFallsBack(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Err: rateLimitErr()})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{
		MaxRetries: 5,
	}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != domain.CommonDomain {
		t.Errorf("expected common fallback, got %q", asg["Foo"])
	}
	// 1 initial attempt + 5 retries.
	if mock.Calls() != 6 {
		t.Errorf("expected 6 attempts, got %d", mock.Calls())
	}
}

func TestClassifyNonRateLimitErrorIsNotRetried(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Err: errors.New("bad request")})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{
		MaxRetries: 5,
	}, zap.NewNop())
	slept := quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != domain.CommonDomain {
		t.Errorf("expected common for terminal failure, got %q", asg["Foo"])
	}
	if mock.Calls() != 1 {
		t.Errorf("non-rate-limit errors must not retry, got %d calls", mock.Calls())
	}
	if len(*slept) != 0 {
		t.Errorf("no backoff expected, got %v", *slept)
	}
}

func TestClassifyMissingFileAssignsCommonWithoutCalling(t *testing.T) {
	mapping := domain.ClassMapping{{Name: "Gone", Path: filepath.Join(t.TempDir(), "missing.cs")}}
	mock := llm.NewMockClient(llm.MockStep{Text: "billing"})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), mapping, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Gone"] != domain.CommonDomain {
		t.Errorf("expected common for unreadable file, got %q", asg["Gone"])
	}
	if mock.Calls() != 0 {
		t.Errorf("unreadable file must not reach the model, got %d calls", mock.Calls())
	}
}

func TestClassifyNormalizesAnswer(t *testing.T) {
	mock := llm.NewMockClient(llm.MockStep{Text: "  \"Billing.\"\n"})
	c := NewClassifier(mock, store.NewArtifacts(t.TempDir()), ClassifierOptions{}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), singleFileMapping(t), testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if asg["Foo"] != "billing" {
		t.Errorf("expected normalized billing, got %q", asg["Foo"])
	}
}

func TestClassifyCoversWholeMappingConcurrently(t *testing.T) {
	dir := t.TempDir()
	var mapping domain.ClassMapping
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("Class%02d", i)
		path := filepath.Join(dir, name+".cs")
		if err := os.WriteFile(path, []byte("class "+name+" {}"), 0644); err != nil {
			t.Fatal(err)
		}
		mapping = append(mapping, domain.ClassEntry{Name: name, Path: path})
	}

	outDir := t.TempDir()
	mock := llm.NewMockClient(llm.MockStep{Text: "billing"})
	c := NewClassifier(mock, store.NewArtifacts(outDir), ClassifierOptions{
		Workers:         8,
		CheckpointEvery: 10,
	}, zap.NewNop())
	quiet(c)

	asg, err := c.Run(context.Background(), mapping, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(asg) != len(mapping) {
		t.Fatalf("expected %d assignments, got %d", len(mapping), len(asg))
	}
	catalog := testCatalog()
	for name, dom := range asg {
		if !strings.HasPrefix(name, "Class") {
			t.Errorf("unexpected key %q", name)
		}
		if !catalog.Has(dom) {
			t.Errorf("%s assigned to unknown domain %q", name, dom)
		}
	}

	// The final persisted map matches the in-memory result.
	persisted, err := store.NewArtifacts(outDir).ReadAssignments()
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != len(asg) {
		t.Errorf("persisted map incomplete: %d vs %d", len(persisted), len(asg))
	}
}

func TestCheckpointSnapshotsGrowMonotonically(t *testing.T) {
	var snapshots []domain.Assignment
	a := &assignments{
		m:     make(domain.Assignment),
		every: 10,
		flush: func(snap domain.Assignment) error {
			snapshots = append(snapshots, snap)
			return nil
		},
	}

	for i := 0; i < 25; i++ {
		if _, err := a.put(fmt.Sprintf("C%02d", i), "billing"); err != nil {
			t.Fatal(err)
		}
	}

	if len(snapshots) != 2 {
		t.Fatalf("expected checkpoints at 10 and 20, got %d", len(snapshots))
	}
	if len(snapshots[0]) != 10 || len(snapshots[1]) != 20 {
		t.Fatalf("unexpected snapshot sizes: %d, %d", len(snapshots[0]), len(snapshots[1]))
	}
	for k, v := range snapshots[0] {
		if snapshots[1][k] != v {
			t.Errorf("entry %s changed between checkpoints", k)
		}
	}
	final := a.snapshot()
	for k, v := range snapshots[1] {
		if final[k] != v {
			t.Errorf("entry %s changed after checkpoint", k)
		}
	}
}

// captureLLM records the last prompts it was asked to generate from.
type captureLLM struct {
	mu     sync.Mutex
	system string
	user   string
}

func (c *captureLLM) Generate(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = prompt
	return "billing", nil
}

func (c *captureLLM) GenerateWithSystem(_ context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = system
	c.user = user
	return "billing", nil
}

func (c *captureLLM) ModelName() string { return "capture" }

func TestClassifyTruncatesOversizedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Big.cs")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0644); err != nil {
		t.Fatal(err)
	}
	mapping := domain.ClassMapping{{Name: "Big", Path: path}}

	rec := &captureLLM{}
	c := NewClassifier(rec, store.NewArtifacts(t.TempDir()), ClassifierOptions{
		MaxContentBytes: 512,
	}, zap.NewNop())
	quiet(c)

	if _, err := c.Run(context.Background(), mapping, testCatalog(), nil); err != nil {
		t.Fatal(err)
	}

	if strings.Count(rec.user, "x") > 512 {
		t.Errorf("content not truncated: %d bytes of payload", strings.Count(rec.user, "x"))
	}
	if !strings.Contains(rec.user, "Big") {
		t.Error("prompt must name the target identifier")
	}
}
