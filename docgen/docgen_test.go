package docgen

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteNDACreatesDocxFile(t *testing.T) {
	dir := t.TempDir()
	g := New(dir)

	filename, err := g.WriteNDA("NON-DISCLOSURE AGREEMENT\n\n1. PARTIES\nAcme and Globex.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(filename, "nda_") || !strings.HasSuffix(filename, ".docx") {
		t.Fatalf("unexpected file name %q", filename)
	}

	info, err := os.Stat(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("stat generated file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("generated docx is empty")
	}
}

func TestWriteReportProducesPDF(t *testing.T) {
	g := New(t.TempDir())

	var buf bytes.Buffer
	if err := g.WriteReport(&buf, "What is an NDA?", "A confidentiality contract."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output does not start with a PDF header")
	}
}

func TestOpenReturnsGeneratedDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nda_1_abc.docx"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	g := New(dir)
	f, err := g.Open("nda_1_abc.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	g := New(t.TempDir())

	for _, name := range []string{"", "../secret.docx", "a/b.docx", ".hidden", ".."} {
		if _, err := g.Open(name); err == nil {
			t.Fatalf("expected rejection of %q", name)
		}
	}
}
