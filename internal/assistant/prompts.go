package assistant

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyBasePrompt is returned when a prompts file blanks the base instruction.
var ErrEmptyBasePrompt = errors.New("base prompt must not be empty")

// Prompts holds the instruction templates sent to the language model. They
// are loaded once at startup and never mutated.
type Prompts struct {
	// Base fixes persona, voice and brevity. Voice synthesis latency depends
	// on the model honouring the word limit.
	Base string `yaml:"base"`
	// DocumentsIntro precedes the retrieved district documents.
	DocumentsIntro string `yaml:"documents_intro"`
	// CiteSources follows the retrieved documents.
	CiteSources string `yaml:"cite_sources"`
	// NoDocumentFound is used for policy questions with no matching document.
	NoDocumentFound string `yaml:"no_document_found"`
	// General is used for non-policy questions and anonymous callers.
	General string `yaml:"general"`
}

// DefaultPrompts returns the compiled-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Base: "You are AIDA, a friendly and knowledgeable voice assistant for K-12 educators. " +
			"You answer questions about school and district policies, procedures, compliance and classroom practice. " +
			"Your answers are spoken aloud, so use plain conversational sentences without lists, markdown or special characters. " +
			"Keep every answer under 200 words.",
		DocumentsIntro: "The following excerpts come from the educator's district documents:",
		CiteSources: "Base your answer on these documents and cite the specific source by name " +
			"(for example, \"According to the Student Handbook...\"). " +
			"If the documents do not fully answer the question, say so briefly.",
		NoDocumentFound: "No specific district document was found for this question. " +
			"Say that you could not find a district document on this topic, then give general best-practice guidance " +
			"and suggest confirming with a school administrator.",
		General: "Provide helpful general best-practice guidance for educators. " +
			"Where rules differ between districts, suggest checking the local district policy.",
	}
}

// LoadPrompts returns DefaultPrompts overridden by any keys set in the YAML
// file at path. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("reading prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	if strings.TrimSpace(p.Base) == "" {
		return Prompts{}, ErrEmptyBasePrompt
	}
	return p, nil
}

func (p Prompts) augmented(documents string) string {
	return join(p.Base, p.DocumentsIntro, documents, p.CiteSources)
}

func (p Prompts) noDocument() string {
	return join(p.Base, p.NoDocumentFound)
}

func (p Prompts) general() string {
	return join(p.Base, p.General)
}

func join(parts ...string) string {
	kept := parts[:0:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}
