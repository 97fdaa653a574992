package format

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/oakwood-commons/filequery/internal/query"
)

// tomlSectionPattern and tomlKeyPattern are a narrower variant of the
// teacher's tomlSectionPattern/tomlKeyValuePattern (pkg/loader/loader.go),
// reused here not for format sniffing but for key-order recovery: go-toml/v2
// has no ordered-tree decode mode, so Unmarshal alone loses the source
// ordering of table and key declarations. This is a best-effort heuristic —
// quoted keys containing literal dots are not split correctly — documented
// in DESIGN.md as a known limitation.
var (
	tomlSectionPattern = regexp.MustCompile(`^\[{1,2}([^\[\]]+)\]{1,2}\s*(?:#.*)?$`)
	tomlKeyPattern     = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*|"[^"]*"|'[^']*')\s*=`)
)

func parseTOML(data []byte) (*query.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return query.Null(), nil
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Format: TOML, Err: err}
	}
	order := recoverTOMLOrder(data)
	return buildOrderedTOMLValue("", raw, order), nil
}

// recoverTOMLOrder scans the source text and records, for each dotted table
// path, the order in which its direct keys (scalar keys and nested table
// names) first appear.
func recoverTOMLOrder(data []byte) map[string][]string {
	order := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	register := func(path, key string) {
		if seen[path] == nil {
			seen[path] = make(map[string]bool)
		}
		if !seen[path][key] {
			seen[path][key] = true
			order[path] = append(order[path], key)
		}
	}

	currentPath := ""
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if m := tomlSectionPattern.FindStringSubmatch(trimmed); m != nil {
			segments := splitTOMLPath(m[1])
			prefix := ""
			for _, seg := range segments {
				register(prefix, seg)
				if prefix == "" {
					prefix = seg
				} else {
					prefix = prefix + "." + seg
				}
			}
			currentPath = prefix
			continue
		}
		if m := tomlKeyPattern.FindStringSubmatch(trimmed); m != nil {
			register(currentPath, unquoteTOMLKey(m[1]))
		}
	}
	return order
}

func splitTOMLPath(s string) []string {
	parts := strings.Split(s, ".")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = unquoteTOMLKey(strings.TrimSpace(p))
	}
	return out
}

func unquoteTOMLKey(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// buildOrderedTOMLValue reconstructs a Value tree from go-toml/v2's decoded
// map, applying the recovered key order and falling back to a sorted order
// for any key the heuristic missed.
func buildOrderedTOMLValue(path string, m map[string]interface{}, order map[string][]string) *query.Value {
	obj := query.EmptyObject()
	for _, key := range orderedTOMLKeys(path, m, order) {
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}
		obj.Set(key, tomlNativeToValue(childPath, m[key], order))
	}
	return obj
}

func orderedTOMLKeys(path string, m map[string]interface{}, order map[string][]string) []string {
	var out []string
	used := make(map[string]bool)
	for _, k := range order[path] {
		if _, ok := m[k]; ok && !used[k] {
			out = append(out, k)
			used[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func tomlNativeToValue(path string, v interface{}, order map[string][]string) *query.Value {
	switch t := v.(type) {
	case nil:
		return query.Null()
	case bool:
		return query.Bool(t)
	case int64:
		return query.Number(float64(t))
	case int:
		return query.Number(float64(t))
	case float64:
		return query.FloatNumber(t)
	case string:
		return query.String(t)
	case time.Time:
		// TOML date/time degrades to String per spec.md §3 (lossy, round-trip
		// not guaranteed).
		return query.String(t.Format(time.RFC3339Nano))
	case map[string]interface{}:
		return buildOrderedTOMLValue(path, t, order)
	case []interface{}:
		items := make([]*query.Value, len(t))
		for i, e := range t {
			items[i] = tomlNativeToValue(path, e, order)
		}
		return query.Array(items)
	default:
		return query.String(fmt.Sprintf("%v", t))
	}
}

// tomlBareKeyPattern matches a TOML bare key (no quoting needed in a
// key=value line or a table header segment).
var tomlBareKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// emitTOML serializes v through a hand-written, order-preserving walk of
// the Value tree rather than go-toml/v2's Marshal, which only round-trips
// a plain map[string]interface{} and therefore forgets the key insertion
// order recoverTOMLOrder worked to reconstruct on parse — violating
// spec.md's "adapters must preserve key insertion order" rule on every
// write. The walk follows go-toml/v2's own encoder shape (scalars emitted
// directly under a table header, subtables and arrays-of-tables emitted
// as their own `[path]`/`[[path]]` sections afterward) but drives key
// order from v.Keys() instead of map iteration.
func emitTOML(v *query.Value) ([]byte, error) {
	if v.Kind() != query.KindObject {
		return nil, &EmitError{Format: TOML, Err: fmt.Errorf("TOML root must be an object, got %s", v.Kind())}
	}
	var b strings.Builder
	if err := writeTOMLTable(&b, nil, v); err != nil {
		return nil, &EmitError{Format: TOML, Err: err}
	}
	return []byte(b.String()), nil
}

// writeTOMLTable writes the scalar key=value lines of v directly (in
// v.Keys() order), then recurses into any object or array-of-objects
// valued keys as their own table/array-of-tables sections — the only
// ordering TOML's header syntax permits, since a bare key=value line can
// never follow a table header in the same table.
func writeTOMLTable(b *strings.Builder, path []string, v *query.Value) error {
	keys := v.Keys()
	var scalarKeys, nestedKeys []string
	for _, k := range keys {
		val, _ := v.Get(k)
		if isTOMLTableValue(val) {
			nestedKeys = append(nestedKeys, k)
		} else {
			scalarKeys = append(scalarKeys, k)
		}
	}

	for _, k := range scalarKeys {
		val, _ := v.Get(k)
		lit, err := tomlLiteral(val)
		if err != nil {
			return err
		}
		b.WriteString(tomlQuoteKey(k))
		b.WriteString(" = ")
		b.WriteString(lit)
		b.WriteByte('\n')
	}

	for _, k := range nestedKeys {
		val, _ := v.Get(k)
		childPath := append(append([]string(nil), path...), k)
		header := tomlHeaderPath(childPath)
		if val.Kind() == query.KindArray {
			for _, elem := range val.Items() {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString("[[" + header + "]]\n")
				if err := writeTOMLTable(b, childPath, elem); err != nil {
					return err
				}
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[" + header + "]\n")
		if err := writeTOMLTable(b, childPath, val); err != nil {
			return err
		}
	}
	return nil
}

// isTOMLTableValue reports whether v must be emitted as its own
// [table]/[[array-of-tables]] section rather than inline: an object, or a
// non-empty array whose every element is an object.
func isTOMLTableValue(v *query.Value) bool {
	switch v.Kind() {
	case query.KindObject:
		return true
	case query.KindArray:
		items := v.Items()
		if len(items) == 0 {
			return false
		}
		for _, e := range items {
			if e.Kind() != query.KindObject {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// tomlLiteral renders v as an inline TOML value: a scalar, an inline
// array, or (for an object nested inside an otherwise-inline array) an
// inline table.
func tomlLiteral(v *query.Value) (string, error) {
	switch v.Kind() {
	case query.KindNull:
		// TOML has no null; degrade to the string "null" per spec.md §3's
		// reverse-mapping rule.
		return strconv.Quote("null"), nil
	case query.KindBool:
		if v.Bool() {
			return "true", nil
		}
		return "false", nil
	case query.KindNumber:
		if !v.NumIsFloat() && query.IsIntegerLike(v.Num()) {
			return strconv.FormatInt(int64(v.Num()), 10), nil
		}
		return formatTOMLFloat(v.Num()), nil
	case query.KindString:
		return strconv.Quote(v.Str()), nil
	case query.KindArray:
		items := v.Items()
		parts := make([]string, len(items))
		for i, e := range items {
			lit, err := tomlLiteral(e)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case query.KindObject:
		parts := make([]string, 0, len(v.Keys()))
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			lit, err := tomlLiteral(val)
			if err != nil {
				return "", err
			}
			parts = append(parts, tomlQuoteKey(k)+" = "+lit)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	default:
		return "", fmt.Errorf("unsupported TOML value kind %s", v.Kind())
	}
}

// formatTOMLFloat renders a float-kind number with the decimal point or
// exponent TOML's grammar requires of every float literal, even when the
// value is whole (100.0, not 100).
func formatTOMLFloat(n float64) string {
	s := strconv.FormatFloat(n, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func tomlQuoteKey(k string) string {
	if tomlBareKeyPattern.MatchString(k) {
		return k
	}
	return strconv.Quote(k)
}

func tomlHeaderPath(segs []string) string {
	quoted := make([]string, len(segs))
	for i, s := range segs {
		quoted[i] = tomlQuoteKey(s)
	}
	return strings.Join(quoted, ".")
}
