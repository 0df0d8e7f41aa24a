package usecase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"domainmap/internal/adapter/analyzer"
	"domainmap/internal/domain"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestBuildCoversEveryReadableFile(t *testing.T) {
	dir := t.TempDir()
	mapping := domain.ClassMapping{
		{Name: "A", Path: writeSource(t, dir, "a.cs", words(60))},
		{Name: "B", Path: writeSource(t, dir, "b.cs", words(60))},
		{Name: "C", Path: writeSource(t, dir, "c.cs", words(60))},
		{Name: "D", Path: writeSource(t, dir, "d.cs", words(60))},
	}

	builder := NewBatchBuilder(analyzer.NewTokenizer(), 300, zap.NewNop())
	report, err := builder.Build(mapping)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", report.Skipped)
	}
	if len(report.Batches) < 2 {
		t.Fatalf("expected multiple batches under tight budget, got %d", len(report.Batches))
	}

	// Union of batch entries equals the input set, in mapping order.
	var got []string
	for _, b := range report.Batches {
		for _, e := range b.Entries {
			got = append(got, e.Name)
		}
	}
	want := []string{"A", "B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order broken at %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestBuildRespectsBudget(t *testing.T) {
	dir := t.TempDir()
	var mapping domain.ClassMapping
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		mapping = append(mapping, domain.ClassEntry{
			Name: n,
			Path: writeSource(t, dir, n+".cs", words(40)),
		})
	}

	budget := 250
	builder := NewBatchBuilder(analyzer.NewTokenizer(), budget, zap.NewNop())
	report, err := builder.Build(mapping)
	if err != nil {
		t.Fatal(err)
	}

	for _, b := range report.Batches {
		if b.Tokens > budget {
			t.Errorf("batch %d exceeds budget: %d > %d", b.Index, b.Tokens, budget)
		}
		if len(b.Entries) == 0 {
			t.Errorf("batch %d sealed empty", b.Index)
		}
		if b.Prompt == "" {
			t.Errorf("batch %d has no templated prompt", b.Index)
		}
	}
}

func TestBuildSkipsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	mapping := domain.ClassMapping{
		{Name: "Small", Path: writeSource(t, dir, "small.cs", words(20))},
		{Name: "Huge", Path: writeSource(t, dir, "huge.cs", words(5000))},
		{Name: "Tiny", Path: writeSource(t, dir, "tiny.cs", words(10))},
	}

	builder := NewBatchBuilder(analyzer.NewTokenizer(), 300, zap.NewNop())
	report, err := builder.Build(mapping)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Skipped) != 1 || report.Skipped[0].Name != "Huge" {
		t.Fatalf("expected only Huge skipped, got %+v", report.Skipped)
	}
	if report.Skipped[0].Tokens <= 300 {
		t.Errorf("skip record should carry the oversized token count, got %d", report.Skipped[0].Tokens)
	}

	var names []string
	for _, b := range report.Batches {
		for _, e := range b.Entries {
			names = append(names, e.Name)
		}
	}
	if len(names) != 2 || names[0] != "Small" || names[1] != "Tiny" {
		t.Errorf("expected Small and Tiny batched, got %v", names)
	}
}

func TestBuildRecordsReadErrorsAndContinues(t *testing.T) {
	dir := t.TempDir()
	mapping := domain.ClassMapping{
		{Name: "Gone", Path: filepath.Join(dir, "missing.cs")},
		{Name: "Here", Path: writeSource(t, dir, "here.cs", words(20))},
	}

	builder := NewBatchBuilder(analyzer.NewTokenizer(), 300, zap.NewNop())
	report, err := builder.Build(mapping)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Skipped) != 1 || report.Skipped[0].Name != "Gone" {
		t.Fatalf("expected Gone recorded as skipped, got %+v", report.Skipped)
	}
	if report.Skipped[0].Err == "" {
		t.Error("read failure should carry the error text")
	}
	if len(report.Batches) != 1 || report.Batches[0].Entries[0].Name != "Here" {
		t.Errorf("expected Here batched despite the read error: %+v", report.Batches)
	}
}

func TestBuildEmptyMapping(t *testing.T) {
	builder := NewBatchBuilder(analyzer.NewTokenizer(), 300, zap.NewNop())
	report, err := builder.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Batches) != 0 || len(report.Skipped) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}
