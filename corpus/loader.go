package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrCorpusNotFound indicates the corpus root directory does not exist.
	ErrCorpusNotFound = errors.New("corpus directory not found")
	// ErrEmptyCorpus indicates the walk produced zero documents.
	ErrEmptyCorpus = errors.New("no documents found in corpus")
)

// Document is a source file reference plus its extracted plain text. Documents
// are transient; they exist only between corpus load and chunking.
type Document struct {
	Path   string
	Title  string
	Format Format
	Text   string
}

// Loader walks a directory tree and extracts text from every file with a
// recognized extension. Unrecognized extensions are skipped silently.
type Loader struct {
	logger *log.Logger
}

func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{logger: logger}
}

// Load produces a Document per recognized file under root. It fails with
// ErrCorpusNotFound when root does not exist and ErrEmptyCorpus when no
// documents result. Files that fail extraction are logged and skipped.
func (l *Loader) Load(root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, root)
		}
		return nil, fmt.Errorf("stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCorpusNotFound, root)
	}

	documents := make([]Document, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		format := DetectFormat(path)
		ext, ok := extractorFor(format)
		if !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		text, err := ext.Extract(data)
		if err != nil {
			l.logger.Printf("skipping %s: %v", path, err)
			return nil
		}
		if text == "" {
			l.logger.Printf("skipping empty document %s", path)
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		documents = append(documents, Document{
			Path:   relPath,
			Title:  documentTitle(text, relPath),
			Format: format,
			Text:   text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus directory: %w", err)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, root)
	}

	l.logger.Printf("loaded %d documents from %s", len(documents), root)
	return documents, nil
}

func documentTitle(text, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	base := filepath.Base(fallback)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
