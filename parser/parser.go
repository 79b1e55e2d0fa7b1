// Package parser extracts structured fields from raw model output. LLM output
// format is not contractually guaranteed, so parsing proceeds through ordered
// fallback strategies and degrades to caller-supplied defaults instead of
// failing the request.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDegraded signals that no structured parse succeeded and the result came
// from heuristic extraction or defaults. It is non-fatal: the accompanying
// field map is always usable. Callers log it for observability.
var ErrDegraded = errors.New("response parsed via heuristics or defaults")

// Options controls extraction for one expected response shape.
type Options struct {
	// Fields are the expected field names.
	Fields []string
	// Defaults supplies per-field fallback values used when every strategy
	// fails to resolve a field.
	Defaults map[string]string
	// Sections optionally maps a field to a section marker (e.g. a country
	// name or "Key Differences") that begins a multi-line block belonging to
	// that field.
	Sections map[string]string
}

// Parse resolves each expected field from raw model output. Strategies, first
// success wins per field set:
//  1. normalize (strip code fences, trim, unescape doubled quotes)
//  2. strict JSON parse of the whole text
//  3. JSON parse of the first balanced {...} span
//  4. heuristic section blocks and "Label: value" lines
//  5. caller-supplied defaults
//
// The returned error is nil when strategy 2 or 3 succeeded, ErrDegraded
// otherwise; the field map is valid in both cases.
func Parse(raw string, opts Options) (map[string]string, error) {
	normalized := Normalize(raw)

	if fields, ok := parseJSONObject(normalized, opts.Fields); ok {
		applyDefaults(fields, opts)
		return fields, nil
	}

	if span, ok := firstBalancedObject(normalized); ok {
		if fields, ok := parseJSONObject(span, opts.Fields); ok {
			applyDefaults(fields, opts)
			return fields, nil
		}
	}

	fields := heuristicExtract(normalized, opts)
	applyDefaults(fields, opts)
	return fields, ErrDegraded
}

// Normalize strips surrounding code-fence markers, trims whitespace, and
// unescapes doubled quote characters.
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// A fence may carry a language tag on the opening line.
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			first := strings.TrimSpace(text[:idx])
			if first != "" && !strings.ContainsAny(first, "{}:") {
				text = text[idx+1:]
			}
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if strings.Contains(text, `""`) {
		text = strings.ReplaceAll(text, `""`, `"`)
	}

	return text
}

func parseJSONObject(text string, fields []string) (map[string]string, bool) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, false
	}

	result := make(map[string]string, len(fields))
	for _, field := range fields {
		value, ok := decoded[field]
		if !ok {
			continue
		}
		result[field] = stringify(value)
	}
	return result, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// firstBalancedObject returns the first {...} span with balanced braces,
// honoring JSON string quoting so braces inside strings do not count.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func heuristicExtract(text string, opts Options) map[string]string {
	result := make(map[string]string, len(opts.Fields))
	lines := strings.Split(text, "\n")

	// Section markers delimit multi-line blocks.
	if len(opts.Sections) > 0 {
		blocks := extractSections(lines, opts)
		for field, value := range blocks {
			result[field] = value
		}
	}

	// "Label: value" lines for still-unresolved fields.
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, field := range opts.Fields {
			if result[field] != "" {
				continue
			}
			for _, label := range fieldLabels(field) {
				prefix := label + ":"
				if strings.HasPrefix(lower, prefix) {
					result[field] = strings.TrimSpace(trimmed[len(prefix):])
					break
				}
			}
		}
	}

	return result
}

func extractSections(lines []string, opts Options) map[string]string {
	builders := make(map[string]*strings.Builder)
	current := ""

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		matched := false
		for field, marker := range opts.Sections {
			if marker == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(marker)) && len(trimmed) <= len(marker)+32 {
				current = field
				if _, ok := builders[current]; !ok {
					builders[current] = &strings.Builder{}
				}
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if current != "" && trimmed != "" {
			b := builders[current]
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(trimmed)
		}
	}

	result := make(map[string]string, len(builders))
	for field, b := range builders {
		if value := strings.TrimSpace(b.String()); value != "" {
			result[field] = value
		}
	}
	return result
}

// fieldLabels derives the line labels a field may appear under: the raw name,
// the name with underscores as spaces, and the trailing word when it is not
// just a number ("legal_domain" also matches "Domain:").
func fieldLabels(field string) []string {
	labels := []string{field}
	if spaced := strings.ReplaceAll(field, "_", " "); spaced != field {
		labels = append(labels, spaced)
	}
	if idx := strings.LastIndexByte(field, '_'); idx >= 0 {
		last := field[idx+1:]
		if last != "" && !isDigits(last) {
			labels = append(labels, last)
		}
	}
	return labels
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func applyDefaults(fields map[string]string, opts Options) {
	for _, field := range opts.Fields {
		if fields[field] != "" {
			continue
		}
		if def, ok := opts.Defaults[field]; ok {
			fields[field] = def
		} else {
			fields[field] = ""
		}
	}
}
