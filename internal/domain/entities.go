package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CommonDomain is the reserved catch-all for shared and infrastructure code.
// Every catalog contains it and every classification failure falls back to it.
const CommonDomain = "common"

// ClassEntry pairs an identifier with the source file that defines it.
type ClassEntry struct {
	Name string
	Path string
}

// ClassMapping is the identifier → file table that drives a run.
// Entries keep the key order of the JSON object they were loaded from,
// so batches come out the same on every run.
type ClassMapping []ClassEntry

// LoadClassMapping reads a JSON object mapping identifiers to file paths,
// preserving key order. Duplicate keys are rejected.
func LoadClassMapping(path string) (ClassMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class mapping: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse class mapping: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("class mapping must be a JSON object, got %v", tok)
	}

	var mapping ClassMapping
	seen := make(map[string]struct{})

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse class mapping: %w", err)
		}
		key := keyTok.(string)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate identifier in class mapping: %s", key)
		}
		seen[key] = struct{}{}

		var filePath string
		if err := dec.Decode(&filePath); err != nil {
			return nil, fmt.Errorf("invalid path for %s: %w", key, err)
		}
		mapping = append(mapping, ClassEntry{Name: key, Path: filePath})
	}

	return mapping, nil
}

// BatchEntry is one file inside a sealed batch.
type BatchEntry struct {
	Name    string
	Path    string
	Content string
}

// Batch is a token-bounded group of files combined into one generation
// request. Immutable once sealed.
type Batch struct {
	Index   int
	Entries []BatchEntry
	Prompt  string // fully templated prompt sent to the model
	Tokens  int    // token count of Prompt
}

// SkippedFile records a file excluded from batching, either because it
// alone exceeds the budget or because it could not be read.
type SkippedFile struct {
	Name   string
	Path   string
	Tokens int
	Err    string
}

// BatchReport is the Batch Builder's full output.
type BatchReport struct {
	Batches []Batch
	Skipped []SkippedFile
}

// Domain is a named business capability.
type Domain struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is the full set of domains produced by synthesis. Read-only once
// built.
type Catalog struct {
	Domains []Domain `json:"domains"`
}

// Has reports whether name is in the catalog.
func (c Catalog) Has(name string) bool {
	for _, d := range c.Domains {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Names returns the catalog's domain names in order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Domains))
	for _, d := range c.Domains {
		names = append(names, d.Name)
	}
	return names
}

// EnsureCommon appends the reserved common domain if the model left it out.
func (c *Catalog) EnsureCommon() {
	if !c.Has(CommonDomain) {
		c.Domains = append(c.Domains, Domain{
			Name:        CommonDomain,
			Description: "Shared and infrastructure code that supports all other domains.",
		})
	}
}

// Assignment maps each identifier to exactly one domain name.
type Assignment map[string]string

// NormalizeDomainName folds a model-produced domain name into catalog form:
// lowercase with spaces and underscores collapsed to hyphens.
func NormalizeDomainName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "_", "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}
