package format

import (
	"strings"

	"github.com/oakwood-commons/filequery/internal/query"
)

// Render converts a result Value into UTF-8 text for the given output
// format, implementing the special-case rules of spec.md §4.D: raw falls
// back to pretty JSON on non-scalars, toml falls back to raw text on
// non-object roots, and yaml renders Null as the literal token "null".
func Render(v *query.Value, f OutputFormat) (string, error) {
	switch f {
	case OutputRaw:
		return renderRaw(v), nil
	case OutputJSON:
		b, err := emitJSON(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case OutputYAML:
		b, err := emitYAML(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case OutputTOML:
		if v.Kind() == query.KindObject {
			b, err := emitTOML(v)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
		return renderTOMLRawText(v), nil
	default:
		return "", &EmitError{Err: errUnknownOutputFormat(f)}
	}
}

func errUnknownOutputFormat(f OutputFormat) error {
	return &query.Error{Kind: query.InvalidArgument, Message: "unknown output format: " + string(f)}
}

func renderRaw(v *query.Value) string {
	switch v.Kind() {
	case query.KindArray, query.KindObject:
		b, err := emitJSON(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return renderRawScalar(v)
	}
}

func renderRawScalar(v *query.Value) string {
	switch v.Kind() {
	case query.KindNull:
		return "null"
	case query.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case query.KindNumber:
		return formatJSONNumber(v)
	case query.KindString:
		return v.Str()
	default:
		return ""
	}
}

// renderTOMLRawText implements the "toml on non-object root" fallback:
// strings unquoted, arrays bracketed as a single-line comma-separated
// list, scalars as their canonical text.
func renderTOMLRawText(v *query.Value) string {
	switch v.Kind() {
	case query.KindArray:
		parts := make([]string, len(v.Items()))
		for i, e := range v.Items() {
			parts[i] = renderTOMLRawText(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case query.KindObject:
		b, err := emitJSON(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return renderRawScalar(v)
	}
}
