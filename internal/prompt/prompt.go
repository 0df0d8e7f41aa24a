// Package prompt renders the generation prompts as pure template data, so
// the text-generation boundary stays swappable and testable.
package prompt

import (
	"bytes"
	"embed"
	"text/template"

	"domainmap/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// System prompts sent alongside the templated user prompts.
const (
	SystemArchitect  = "You are an expert software architect with a deep understanding of business applications."
	SystemClassifier = "You classify source code into business domains. Respond with a single domain name."
)

var (
	summarizeTmpl = mustParse("templates/summarize.txt")
	domainsTmpl   = mustParse("templates/domains.txt")
	classifyTmpl  = mustParse("templates/classify.txt")
)

func mustParse(name string) *template.Template {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return template.Must(template.New(name).Parse(string(content)))
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Summarize renders the batch summarization prompt for the given entries.
func Summarize(entries []domain.BatchEntry) (string, error) {
	return render(summarizeTmpl, struct {
		Entries []domain.BatchEntry
	}{entries})
}

// Domains renders the domain synthesis prompt over the full transcript.
func Domains(transcript string) (string, error) {
	return render(domainsTmpl, struct {
		Transcript string
	}{transcript})
}

// Classify renders the per-identifier classification prompt. The target is
// named explicitly because a file may define more than the one entity being
// classified.
func Classify(target string, catalog domain.Catalog, content string) (string, error) {
	return render(classifyTmpl, struct {
		Target  string
		Domains []domain.Domain
		Content string
	}{target, catalog.Domains, content})
}
