// Package format implements the Format Adapter and Formatter components:
// it normalizes JSON/YAML/TOML documents into the shared query.Value tree
// on read, and serializes values back to text on write, per the lossy-
// conversion rules of the data model.
package format

import (
	"fmt"

	"github.com/oakwood-commons/filequery/internal/query"
)

// Format identifies a structured-data encoding used on the parse side.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// OutputFormat identifies a rendering used on the emit/read side; it adds
// "raw" to the parse-side Format set (spec.md §4.D).
type OutputFormat string

const (
	OutputRaw  OutputFormat = "raw"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
	OutputTOML OutputFormat = "toml"
)

// ParseError distinguishes a genuine parse failure from the valid
// empty-file-parses-to-Null case.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmitError reports a failure while serializing a Value back to text.
type EmitError struct {
	Format Format
	Err    error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s: %s", e.Format, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Parse decodes data in the given format into a query.Value. An empty
// (whitespace-only) input parses to Null, not an error.
func Parse(data []byte, f Format) (*query.Value, error) {
	switch f {
	case JSON:
		return parseJSON(data)
	case YAML:
		return parseYAML(data)
	case TOML:
		return parseTOML(data)
	default:
		return nil, &ParseError{Format: f, Err: fmt.Errorf("unknown format %q", f)}
	}
}

// Emit serializes v into the given format's on-disk text representation.
func Emit(v *query.Value, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return emitJSON(v)
	case YAML:
		return emitYAML(v)
	case TOML:
		return emitTOML(v)
	default:
		return nil, &EmitError{Format: f, Err: fmt.Errorf("unknown format %q", f)}
	}
}
