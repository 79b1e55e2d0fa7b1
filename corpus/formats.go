// Package corpus loads a directory of legal source documents and extracts
// their plain text for chunking and indexing.
package corpus

import (
	"path/filepath"
	"strings"
)

// Format enumerates supported document payload formats.
type Format string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown Format = ""
	// FormatText represents plain text documents.
	FormatText Format = "text"
	// FormatPDF represents PDF documents.
	FormatPDF Format = "pdf"
	// FormatDocx represents Word (OOXML) documents.
	FormatDocx Format = "docx"
)

// DetectFormat infers a document format from the provided path's extension.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	default:
		return FormatUnknown
	}
}
