package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/filequery/internal/query"
)

// candidate pairs a format with its parser, mirroring the teacher's
// pkg/loader.candidate — a lazily-invoked (name, parseFunc) pair so that
// only attempted formats pay the cost of parsing.
type candidate struct {
	format Format
	parse  func([]byte) (*query.Value, error)
}

// tomlLikePattern and tomlKVLikePattern are the detection-side counterparts
// of the order-recovery patterns in toml.go, copied from the teacher's
// pkg/loader.tomlSectionPattern/tomlKeyValuePattern: TOML section headers
// and key=value lines must start at column 0, which is what distinguishes
// them from indented YAML scalars and flow sequences.
var (
	tomlLikePattern   = regexp.MustCompile(`^\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKVLikePattern = regexp.MustCompile(`^(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// ExtToFormat maps a file extension (as from filepath.Ext, including the
// leading dot) to a Format. internal/tool uses it to pick a file's format
// before falling back to Detect, and preferredFormat uses it for extHint.
func ExtToFormat(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return YAML, true
	case ".json":
		return JSON, true
	case ".toml":
		return TOML, true
	default:
		return "", false
	}
}

// Detect parses input by trying the most likely format first (by content
// heuristic, or by extHint when given) and falling back through the
// remaining formats in a fixed order, logging each failed attempt at V(1).
// Grounded on the teacher's pkg/loader.LoadDataWithLogger/buildCandidates/
// tryParsers chain, adapted to produce query.Value instead of interface{}
// and to operate over a fixed three-format universe instead of the
// teacher's JWT/NDJSON/multi-doc-YAML variants (out of scope here).
func Detect(data []byte, extHint string, lgr logr.Logger) (*query.Value, Format, error) {
	candidates := buildCandidates(data, extHint)
	var errs []string
	for _, c := range candidates {
		v, err := c.parse(data)
		if err == nil {
			return v, c.format, nil
		}
		lgr.V(1).Info("parse attempt failed, trying next format",
			"format", string(c.format), "error", err.Error())
		errs = append(errs, fmt.Sprintf("%s: %s", c.format, err.Error()))
	}
	return nil, "", &ParseError{Format: "auto", Err: fmt.Errorf("all formats failed:\n  %s", strings.Join(errs, "\n  "))}
}

func buildCandidates(data []byte, extHint string) []candidate {
	all := []candidate{
		{JSON, parseJSON},
		{YAML, parseYAML},
		{TOML, parseTOML},
	}

	preferred := preferredFormat(data, extHint)
	if preferred == "" {
		return all
	}

	ordered := make([]candidate, 0, len(all))
	var rest []candidate
	for _, c := range all {
		if c.format == preferred {
			ordered = append(ordered, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(ordered, rest...)
}

func preferredFormat(data []byte, extHint string) Format {
	if f, ok := ExtToFormat(extHint); ok {
		return f
	}
	input := strings.TrimSpace(string(data))
	if input == "" {
		return JSON
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return JSON
	}
	if isLikelyTOML(input) {
		return TOML
	}
	return YAML
}

// isLikelyTOML mirrors the teacher's isLikelyTOML heuristic: section
// headers are a strong signal; otherwise a majority of non-comment,
// non-blank lines must look like key = value.
func isLikelyTOML(input string) bool {
	lines := strings.Split(input, "\n")
	sectionCount, kvCount, nonEmpty := 0, 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlLikePattern.MatchString(line) {
			sectionCount++
		}
		if tomlKVLikePattern.MatchString(line) {
			kvCount++
		}
	}
	if sectionCount > 0 {
		return true
	}
	return nonEmpty > 0 && kvCount > nonEmpty/2
}
