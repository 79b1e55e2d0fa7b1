// Package docgen writes generated legal documents to disk: NDA drafts as
// Word documents and question/answer reports as PDFs.
package docgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gingfrederik/docx"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Generator writes documents into a single output directory and hands back
// the file name as the document reference.
type Generator struct {
	dir string
}

func New(dir string) *Generator {
	return &Generator{dir: dir}
}

// WriteNDA saves an NDA draft as a .docx file and returns its file name.
func (g *Generator) WriteNDA(draft string) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := fmt.Sprintf("nda_%d_%s.docx", time.Now().Unix(), shortID())
	path := filepath.Join(g.dir, filename)

	f := docx.NewFile()
	f.AddParagraph().AddText("Non-Disclosure Agreement").Size(16)
	for _, para := range strings.Split(draft, "\n") {
		p := f.AddParagraph()
		if trimmed := strings.TrimSpace(para); trimmed != "" {
			p.AddText(trimmed)
		}
	}

	if err := f.Save(path); err != nil {
		return "", fmt.Errorf("save nda document: %w", err)
	}
	return filename, nil
}

// WriteReport renders a question/answer pair as a PDF report.
func (g *Generator) WriteReport(w io.Writer, question, answer string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.MultiCell(0, 8, "Lexora AI Report", "", "L", false)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("Date: %s", time.Now().UTC().Format(time.RFC3339)), "", "L", false)
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.MultiCell(0, 6, "Question:", "", "L", false)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, question, "", "L", false)
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.MultiCell(0, 6, "Answer:", "", "L", false)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, answer, "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf report: %w", err)
	}
	return nil
}

// Open returns a reader for a previously generated document. The name is
// restricted to a bare file name so callers cannot traverse outside the
// output directory.
func (g *Generator) Open(name string) (io.ReadCloser, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid document name %q", name)
	}
	f, err := os.Open(filepath.Join(g.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open generated document: %w", err)
	}
	return f, nil
}

func shortID() string {
	return uuid.New().String()[:8]
}
