package usecase

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"domainmap/internal/adapter/fs"
	"domainmap/internal/domain"
)

// Scanner builds a class mapping from a source tree, one identifier per
// matched file.
type Scanner struct {
	walker *fs.Walker
	log    *zap.Logger
}

// NewScanner creates a new scanner.
func NewScanner(walker *fs.Walker, log *zap.Logger) *Scanner {
	return &Scanner{walker: walker, log: log}
}

// Scan walks root and derives an identifier for every matched file from its
// relative path. Identifiers are unique within the mapping.
func (s *Scanner) Scan(root string) (domain.ClassMapping, error) {
	files, err := s.walker.Walk(root)
	if err != nil {
		return nil, err
	}

	var mapping domain.ClassMapping
	taken := make(map[string]struct{}, len(files))

	for _, f := range files {
		name := identifierFor(f.Rel)
		if _, dup := taken[name]; dup {
			// Same stem with a different extension; keep the extension to
			// disambiguate.
			name = strings.ReplaceAll(f.Rel, "/", ".")
		}
		taken[name] = struct{}{}
		mapping = append(mapping, domain.ClassEntry{Name: name, Path: f.Path})
	}

	s.log.Info("scanned source tree",
		zap.String("root", root),
		zap.Int("files", len(mapping)))

	return mapping, nil
}

// identifierFor turns "billing/invoice_service.go" into
// "billing.invoice_service".
func identifierFor(rel string) string {
	ext := filepath.Ext(rel)
	stem := strings.TrimSuffix(rel, ext)
	return strings.ReplaceAll(stem, "/", ".")
}
