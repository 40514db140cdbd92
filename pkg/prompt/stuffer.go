// Package prompt renders the question-answering prompt, optionally stuffing a
// reference document into its context.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
)

// DefaultQuestion is asked when a request carries no message. The trailing
// apostrophe is part of the historical default and kept for compatibility.
const DefaultQuestion = "Which athletes won the mixed doubles gold medal in curling at the 2022 Winter Olympics?'"

const (
	questionKey = "question"
	contextKey  = "context"
)

//go:embed resources/qa-prompt.st
var defaultTemplate string

//go:embed resources/wikipedia-curling.md
var defaultDocument string

// Stuffer renders the QA template. Both template and document are loaded once
// and never change afterwards, so a Stuffer is safe for concurrent use.
type Stuffer struct {
	template *Template
	document string
}

// Load reads the template and reference document. An empty path selects the
// embedded default; a path that cannot be read is an error.
func Load(templatePath, documentPath string) (*Stuffer, error) {
	text, err := readOr(templatePath, defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("loading prompt template: %w", err)
	}

	document, err := readOr(documentPath, defaultDocument)
	if err != nil {
		return nil, fmt.Errorf("loading reference document: %w", err)
	}

	return New(text, document)
}

// New builds a Stuffer from in-memory text. The template must reference
// both {question} and {context}.
func New(templateText, document string) (*Stuffer, error) {
	t, err := Parse(templateText)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool)
	for _, name := range t.Placeholders() {
		found[name] = true
	}
	for _, required := range []string{questionKey, contextKey} {
		if !found[required] {
			return nil, fmt.Errorf("prompt template must reference {%s}", required)
		}
	}

	return &Stuffer{template: t, document: document}, nil
}

// Render fills the template with question and, when stuff is true, the whole
// reference document as context. Otherwise context is empty.
func (s *Stuffer) Render(question string, stuff bool) (string, error) {
	context := ""
	if stuff {
		context = s.document
	}

	return s.template.Render(map[string]string{
		questionKey: question,
		contextKey:  context,
	})
}

// Document returns the reference document.
func (s *Stuffer) Document() string {
	return s.document
}

func readOr(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
