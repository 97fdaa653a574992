package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oakwood-commons/filequery/internal/query"
)

// parseJSON decodes JSON via a token stream rather than json.Unmarshal into
// map[string]interface{}, because the latter discards key order — and the
// data model requires objects to preserve insertion order (spec.md §3).
func parseJSON(data []byte) (*query.Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return query.Null(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, &ParseError{Format: JSON, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Format: JSON, Err: fmt.Errorf("trailing data after JSON value")}
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (*query.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return jsonTokenToValue(dec, tok)
}

func jsonTokenToValue(dec *json.Decoder, tok json.Token) (*query.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return query.Null(), nil
	case bool:
		return query.Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		if strings.ContainsAny(t.String(), ".eE") {
			return query.FloatNumber(f), nil
		}
		return query.Number(f), nil
	case string:
		return query.String(t), nil
	default:
		return nil, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

func decodeJSONObject(dec *json.Decoder) (*query.Value, error) {
	obj := query.EmptyObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
	// consume the closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeJSONArray(dec *json.Decoder) (*query.Value, error) {
	var items []*query.Value
	for dec.More() {
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return query.Array(items), nil
}

// emitJSON renders v as pretty-printed JSON with a two-space indent,
// preserving object key order (spec.md §4.A/§4.D).
func emitJSON(v *query.Value) ([]byte, error) {
	var b strings.Builder
	if err := writeJSONIndent(&b, v, 0); err != nil {
		return nil, &EmitError{Format: JSON, Err: err}
	}
	return []byte(b.String()), nil
}

func writeJSONIndent(b *strings.Builder, v *query.Value, depth int) error {
	indent := strings.Repeat("  ", depth+1)
	closeIndent := strings.Repeat("  ", depth)
	switch v.Kind() {
	case query.KindNull:
		b.WriteString("null")
	case query.KindBool:
		if v.Bool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case query.KindNumber:
		b.WriteString(formatJSONNumber(v))
	case query.KindString:
		b.WriteString(strconv.Quote(v.Str()))
	case query.KindArray:
		items := v.Items()
		if len(items) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for i, e := range items {
			b.WriteString(indent)
			if err := writeJSONIndent(b, e, depth+1); err != nil {
				return err
			}
			if i < len(items)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(closeIndent + "]")
	case query.KindObject:
		keys := v.Keys()
		if len(keys) == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteString("{\n")
		for i, k := range keys {
			b.WriteString(indent)
			b.WriteString(strconv.Quote(k))
			b.WriteString(": ")
			val, _ := v.Get(k)
			if err := writeJSONIndent(b, val, depth+1); err != nil {
				return err
			}
			if i < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(closeIndent + "}")
	}
	return nil
}

// formatJSONNumber renders v's numeric payload, appending a trailing ".0"
// to a whole-valued float-sourced number (arithmetic/division results and
// float literals) so e.g. 100 * 1.08 prints as "108.0", not "108" — spec.md
// §8 scenario 3. Integer-sourced numbers never gain a decimal point.
func formatJSONNumber(v *query.Value) string {
	n := v.Num()
	if query.IsIntegerLike(n) {
		if v.NumIsFloat() {
			return strconv.FormatInt(int64(n), 10) + ".0"
		}
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
