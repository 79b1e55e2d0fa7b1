// Package prompts loads task templates from disk and substitutes named
// placeholders. A missing template or an unbound placeholder is a deployment
// defect and surfaces as an error, never as a silently incomplete prompt.
package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrTemplateNotFound indicates the on-disk template resource is absent.
	ErrTemplateNotFound = errors.New("prompt template not found")
	// ErrMissingPlaceholder indicates the template references a placeholder
	// with no corresponding field.
	ErrMissingPlaceholder = errors.New("missing placeholder value")
)

// Template file names for the four use cases.
const (
	TemplateLegalQA    = "rag_qa_prompt.txt"
	TemplateExplainer  = "explainer_prompt.txt"
	TemplateComparator = "comparator_prompt.txt"
	TemplateNDA        = "nda_prompt.txt"
)

// FieldContext is the field name the retrieved context is always passed as.
const FieldContext = "context"

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Assembler resolves template names against a directory of plain-text files.
type Assembler struct {
	dir string
}

func NewAssembler(dir string) *Assembler {
	return &Assembler{dir: dir}
}

// Assemble loads the named template and renders it with the given fields.
func (a *Assembler) Assemble(name string, fields map[string]string) (string, error) {
	template, err := a.load(name)
	if err != nil {
		return "", err
	}
	return Render(template, fields)
}

func (a *Assembler) load(name string) (string, error) {
	path := filepath.Join(a.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

// Render substitutes every {name} placeholder in template with fields[name].
// It fails with ErrMissingPlaceholder when a referenced placeholder has no
// field; extra fields are ignored.
func Render(template string, fields map[string]string) (string, error) {
	var missing []string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := fields[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}
	return rendered, nil
}
