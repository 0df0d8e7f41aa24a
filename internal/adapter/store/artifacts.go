package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"domainmap/internal/domain"
)

// Fixed artifact file names. Downstream stages and external tooling read
// these by name from the output directory.
const (
	MappingFile     = "class_mapping.json"
	BatchesFile     = "batches.json"
	SummariesFile   = "summaries.txt"
	DomainsFile     = "domains.json"
	AssignmentsFile = "assignments.json"
)

// Artifacts persists pipeline outputs as fixed-name files in one directory.
// Writes go through a temp file and rename so readers never observe a
// half-written artifact.
type Artifacts struct {
	dir string
}

func NewArtifacts(dir string) *Artifacts {
	if dir == "" {
		dir = "."
	}
	return &Artifacts{dir: dir}
}

// Dir returns the artifact directory.
func (a *Artifacts) Dir() string {
	return a.dir
}

func (a *Artifacts) path(name string) string {
	return filepath.Join(a.dir, name)
}

func (a *Artifacts) writeAtomic(name string, data []byte) error {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(a.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), a.path(name))
}

// WriteMapping persists a class mapping as a JSON object, preserving entry
// order.
func (a *Artifacts) WriteMapping(mapping domain.ClassMapping) error {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, e := range mapping {
		name, err := json.Marshal(e.Name)
		if err != nil {
			return err
		}
		path, err := json.Marshal(e.Path)
		if err != nil {
			return err
		}
		sb.Write(name)
		sb.WriteString(": ")
		sb.Write(path)
		if i < len(mapping)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	return a.writeAtomic(MappingFile, []byte(sb.String()))
}

// WriteBatchPrompts persists the templated batch prompts as a JSON array.
func (a *Artifacts) WriteBatchPrompts(prompts []string) error {
	if prompts == nil {
		prompts = []string{}
	}
	data, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return err
	}
	return a.writeAtomic(BatchesFile, data)
}

// WriteTranscript persists the newline-joined summaries.
func (a *Artifacts) WriteTranscript(summaries []string) error {
	return a.writeAtomic(SummariesFile, []byte(strings.Join(summaries, "\n")))
}

// ReadTranscript returns the transcript text.
func (a *Artifacts) ReadTranscript() (string, error) {
	data, err := os.ReadFile(a.path(SummariesFile))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteCatalog persists a parsed domain catalog.
func (a *Artifacts) WriteCatalog(c domain.Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return a.writeAtomic(DomainsFile, data)
}

// WriteRawCatalog persists unparseable synthesis output verbatim, for
// manual repair. Downstream reads will fail loudly until it is fixed.
func (a *Artifacts) WriteRawCatalog(text string) error {
	return a.writeAtomic(DomainsFile, []byte(text))
}

// ReadCatalog loads the domain catalog.
func (a *Artifacts) ReadCatalog() (domain.Catalog, error) {
	var c domain.Catalog
	data, err := os.ReadFile(a.path(DomainsFile))
	if err != nil {
		return c, fmt.Errorf("failed to read domain catalog: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("domain catalog is not valid JSON (raw synthesis output?): %w", err)
	}
	if len(c.Domains) == 0 {
		return c, fmt.Errorf("domain catalog is empty")
	}
	return c, nil
}

// WriteAssignments persists the full assignment map. Used both for
// checkpoints and for the final write.
func (a *Artifacts) WriteAssignments(asg domain.Assignment) error {
	data, err := json.MarshalIndent(asg, "", "  ")
	if err != nil {
		return err
	}
	return a.writeAtomic(AssignmentsFile, data)
}

// ReadAssignments loads the assignment map, or an empty map if none exists.
func (a *Artifacts) ReadAssignments() (domain.Assignment, error) {
	data, err := os.ReadFile(a.path(AssignmentsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Assignment{}, nil
		}
		return nil, err
	}
	var asg domain.Assignment
	if err := json.Unmarshal(data, &asg); err != nil {
		return nil, err
	}
	return asg, nil
}
