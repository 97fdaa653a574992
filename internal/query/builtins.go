package query

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// callBuiltin dispatches a FunctionCall to its implementation. args are
// unevaluated AST nodes so higher-order builtins (map, select, sort_by,
// group_by, with_entries) can evaluate them once per element rather than
// once against the outer input.
func callBuiltin(name string, args []Node, input *Value) (*Value, error) {
	switch name {
	case "keys":
		return builtinKeys(input)
	case "values":
		return builtinValues(input)
	case "length":
		return builtinLength(input)
	case "type":
		return String(input.Kind().String()), nil
	case "empty":
		return filtered, nil
	case "not":
		return Bool(!input.Truthy()), nil
	case "reverse":
		return builtinReverse(input)
	case "sort":
		return builtinSort(input)
	case "sort_by":
		return builtinSortBy(args, input)
	case "group_by":
		return builtinGroupBy(args, input)
	case "unique":
		return builtinUnique(input)
	case "flatten":
		depth := 1
		if len(args) == 1 {
			n, err := evalIntArg("flatten", args[0], input)
			if err != nil {
				return nil, err
			}
			depth = n
		}
		if input.Kind() != KindArray {
			return nil, typeErr("flatten", "expected array, got %s", input.Kind())
		}
		return Array(flattenArray(input.Items(), depth)), nil
	case "add":
		return builtinAdd(input)
	case "min":
		return builtinExtreme("min", input, -1)
	case "max":
		return builtinExtreme("max", input, 1)
	case "to_entries":
		return input.ToEntries()
	case "from_entries":
		return builtinFromEntries(input)
	case "has":
		return builtinHas(args, input)
	case "contains":
		return builtinContains(args, input)
	case "startswith":
		return builtinStringBool("startswith", args, input, strings.HasPrefix)
	case "endswith":
		return builtinStringBool("endswith", args, input, strings.HasSuffix)
	case "split":
		return builtinSplit(args, input)
	case "join":
		return builtinJoin(args, input)
	case "test":
		return builtinTest(args, input)
	case "match":
		return builtinMatch(args, input)
	case "indices":
		return builtinIndices(args, input)
	case "index":
		return builtinIndexOf(args, input, false)
	case "rindex":
		return builtinIndexOf(args, input, true)
	case "ltrimstr":
		return builtinTrimStr("ltrimstr", args, input, strings.TrimPrefix)
	case "rtrimstr":
		return builtinTrimStr("rtrimstr", args, input, strings.TrimSuffix)
	case "trim":
		if input.Kind() != KindString {
			return nil, typeErr("trim", "expected string, got %s", input.Kind())
		}
		return String(strings.TrimSpace(input.Str())), nil
	case "tostring":
		if input.Kind() == KindString {
			return input, nil
		}
		return String(jsonStringify(input)), nil
	case "tonumber":
		return builtinToNumber(input)
	case "ascii_upcase":
		return builtinAsciiCase("ascii_upcase", input, true)
	case "ascii_downcase":
		return builtinAsciiCase("ascii_downcase", input, false)
	case "floor":
		return builtinMathFn("floor", input, math.Floor)
	case "ceil":
		return builtinMathFn("ceil", input, math.Ceil)
	case "round":
		return builtinMathFn("round", input, math.Round)
	case "abs":
		return builtinMathFn("abs", input, math.Abs)
	case "paths":
		return pathsToArray(collectPaths(input, false)), nil
	case "leaf_paths":
		return pathsToArray(collectPaths(input, true)), nil
	case "map":
		return builtinMap(args, input)
	case "select":
		return builtinSelect(args, input)
	case "with_entries":
		return builtinWithEntries(args, input)
	case "del":
		return builtinDel(args, input)
	case "error":
		return builtinError(args, input)
	default:
		return nil, &Error{Kind: FunctionNotFound, Message: name}
	}
}

func requireArgs(fn string, args []Node, n int) error {
	if len(args) != n {
		return argErr(fn, "expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func evalIntArg(fn string, n Node, input *Value) (int, error) {
	v, err := Eval(n, input)
	if err != nil {
		return 0, err
	}
	if v.Kind() != KindNumber {
		return 0, argErr(fn, "expected a number argument")
	}
	return int(v.Num()), nil
}

func evalStringArg(fn string, n Node, input *Value) (string, error) {
	v, err := Eval(n, input)
	if err != nil {
		return "", err
	}
	if v.Kind() != KindString {
		return "", argErr(fn, "expected a string argument")
	}
	return v.Str(), nil
}

func builtinKeys(input *Value) (*Value, error) {
	if input.Kind() != KindObject {
		return nil, typeErr("keys", "expected object, got %s", input.Kind())
	}
	keys := input.SortedKeys()
	out := make([]*Value, len(keys))
	for i, k := range keys {
		out[i] = String(k)
	}
	return Array(out), nil
}

func builtinValues(input *Value) (*Value, error) {
	switch input.Kind() {
	case KindArray:
		return Array(input.Items()), nil
	case KindObject:
		out := make([]*Value, 0, len(input.Keys()))
		for _, k := range input.Keys() {
			v, _ := input.Get(k)
			out = append(out, v)
		}
		return Array(out), nil
	default:
		return nil, typeErr("values", "expected object or array, got %s", input.Kind())
	}
}

func builtinLength(input *Value) (*Value, error) {
	switch input.Kind() {
	case KindNull:
		return Number(0), nil
	case KindString:
		return Number(float64(len([]rune(input.Str())))), nil
	case KindArray:
		return Number(float64(len(input.Items()))), nil
	case KindObject:
		return Number(float64(len(input.Keys()))), nil
	default:
		return nil, typeErr("length", "expected string, array, object, or null, got %s", input.Kind())
	}
}

func builtinReverse(input *Value) (*Value, error) {
	switch input.Kind() {
	case KindArray:
		items := input.Items()
		out := make([]*Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return Array(out), nil
	case KindString:
		runes := []rune(input.Str())
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return String(string(runes)), nil
	default:
		return nil, typeErr("reverse", "expected array or string, got %s", input.Kind())
	}
}

func builtinSort(input *Value) (*Value, error) {
	if input.Kind() != KindArray {
		return nil, typeErr("sort", "expected array, got %s", input.Kind())
	}
	out := append([]*Value(nil), input.Items()...)
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return Array(out), nil
}

func builtinSortBy(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("sort_by", args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindArray {
		return nil, typeErr("sort_by", "expected array, got %s", input.Kind())
	}
	items := input.Items()
	keys := make([]*Value, len(items))
	for i, e := range items {
		k, err := Eval(args[0], e)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return Compare(keys[idx[i]], keys[idx[j]]) < 0 })
	out := make([]*Value, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return Array(out), nil
}

func builtinGroupBy(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("group_by", args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindArray {
		return nil, typeErr("group_by", "expected array, got %s", input.Kind())
	}
	items := input.Items()
	keys := make([]*Value, len(items))
	for i, e := range items {
		k, err := Eval(args[0], e)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return Compare(keys[idx[i]], keys[idx[j]]) < 0 })

	var groups []*Value
	var cur []*Value
	for n, j := range idx {
		if n > 0 && Compare(keys[idx[n-1]], keys[j]) != 0 {
			groups = append(groups, Array(cur))
			cur = nil
		}
		cur = append(cur, items[j])
	}
	if len(cur) > 0 {
		groups = append(groups, Array(cur))
	}
	return Array(groups), nil
}

func builtinUnique(input *Value) (*Value, error) {
	if input.Kind() != KindArray {
		return nil, typeErr("unique", "expected array, got %s", input.Kind())
	}
	out := append([]*Value(nil), input.Items()...)
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	deduped := out[:0]
	for i, v := range out {
		if i == 0 || Compare(out[i-1], v) != 0 {
			deduped = append(deduped, v)
		}
	}
	return Array(deduped), nil
}

func flattenArray(items []*Value, depth int) []*Value {
	var out []*Value
	for _, v := range items {
		if v.Kind() == KindArray && depth > 0 {
			out = append(out, flattenArray(v.Items(), depth-1)...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func builtinAdd(input *Value) (*Value, error) {
	if input.Kind() != KindArray {
		return nil, typeErr("add", "expected array, got %s", input.Kind())
	}
	items := input.Items()
	if len(items) == 0 {
		return Null(), nil
	}
	acc := items[0]
	for _, v := range items[1:] {
		switch {
		case acc.Kind() == KindNumber && v.Kind() == KindNumber:
			acc = Number(acc.Num() + v.Num())
		case acc.Kind() == KindString && v.Kind() == KindString:
			acc = String(acc.Str() + v.Str())
		case acc.Kind() == KindArray && v.Kind() == KindArray:
			acc = Array(append(append([]*Value(nil), acc.Items()...), v.Items()...))
		default:
			return nil, typeErr("add", "cannot add %s and %s", acc.Kind(), v.Kind())
		}
	}
	return acc, nil
}

// builtinExtreme implements min (sign -1) and max (sign 1).
func builtinExtreme(fn string, input *Value, sign int) (*Value, error) {
	if input.Kind() != KindArray {
		return nil, typeErr(fn, "expected array, got %s", input.Kind())
	}
	items := input.Items()
	if len(items) == 0 {
		return Null(), nil
	}
	best := items[0]
	for _, v := range items[1:] {
		if Compare(v, best)*sign > 0 {
			best = v
		}
	}
	return best, nil
}

func builtinFromEntries(input *Value) (*Value, error) {
	if input.Kind() != KindArray {
		return nil, typeErr("from_entries", "expected array, got %s", input.Kind())
	}
	result := EmptyObject()
	for _, entry := range input.Items() {
		if entry.Kind() != KindObject {
			return nil, typeErr("from_entries", "expected array of objects, got %s", entry.Kind())
		}
		key, ok := lookupAny(entry, "key", "k", "name")
		if !ok {
			return nil, argErr("from_entries", "entry missing a key/k/name field")
		}
		var keyStr string
		if key.Kind() == KindString {
			keyStr = key.Str()
		} else {
			keyStr = jsonStringify(key)
		}
		val, ok := lookupAny(entry, "value", "v")
		if !ok {
			val = Null()
		}
		result.obj.set(keyStr, val)
	}
	return result, nil
}

func lookupAny(obj *Value, names ...string) (*Value, bool) {
	for _, n := range names {
		if v, ok := obj.Get(n); ok {
			return v, true
		}
	}
	return nil, false
}

func builtinHas(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("has", args, 1); err != nil {
		return nil, err
	}
	key, err := Eval(args[0], input)
	if err != nil {
		return nil, err
	}
	switch input.Kind() {
	case KindObject:
		if key.Kind() != KindString {
			return nil, argErr("has", "expected a string key for an object")
		}
		_, ok := input.Get(key.Str())
		return Bool(ok), nil
	case KindArray:
		if key.Kind() != KindNumber {
			return nil, argErr("has", "expected a numeric index for an array")
		}
		i := int(key.Num())
		return Bool(i >= 0 && i < len(input.Items())), nil
	default:
		return nil, typeErr("has", "expected object or array, got %s", input.Kind())
	}
}

func builtinContains(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("contains", args, 1); err != nil {
		return nil, err
	}
	needle, err := Eval(args[0], input)
	if err != nil {
		return nil, err
	}
	switch input.Kind() {
	case KindString:
		if needle.Kind() != KindString {
			return nil, typeErr("contains", "expected string argument")
		}
		return Bool(strings.Contains(input.Str(), needle.Str())), nil
	case KindArray:
		for _, v := range input.Items() {
			if Equal(v, needle) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	default:
		return nil, typeErr("contains", "expected string or array, got %s", input.Kind())
	}
}

func builtinStringBool(fn string, args []Node, input *Value, f func(s, prefix string) bool) (*Value, error) {
	if err := requireArgs(fn, args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindString {
		return nil, typeErr(fn, "expected string, got %s", input.Kind())
	}
	arg, err := evalStringArg(fn, args[0], input)
	if err != nil {
		return nil, err
	}
	return Bool(f(input.Str(), arg)), nil
}

func builtinSplit(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("split", args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindString {
		return nil, typeErr("split", "expected string, got %s", input.Kind())
	}
	sep, err := evalStringArg("split", args[0], input)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(input.Str(), sep)
	out := make([]*Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return Array(out), nil
}

func builtinJoin(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("join", args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindArray {
		return nil, typeErr("join", "expected array, got %s", input.Kind())
	}
	sep, err := evalStringArg("join", args[0], input)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(input.Items()))
	for i, v := range input.Items() {
		if v.Kind() != KindString {
			return nil, typeErr("join", "expected array of strings, got %s", v.Kind())
		}
		parts[i] = v.Str()
	}
	return String(strings.Join(parts, sep)), nil
}

func compileRegex(fn string, args []Node, input *Value) (*regexp.Regexp, error) {
	if err := requireArgs(fn, args, 1); err != nil {
		return nil, err
	}
	pattern, err := evalStringArg(fn, args[0], input)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, argErr(fn, "invalid regular expression: %s", err)
	}
	return re, nil
}

func builtinTest(args []Node, input *Value) (*Value, error) {
	if input.Kind() != KindString {
		return nil, typeErr("test", "expected string, got %s", input.Kind())
	}
	re, err := compileRegex("test", args, input)
	if err != nil {
		return nil, err
	}
	return Bool(re.MatchString(input.Str())), nil
}

// builtinMatch returns the first match as a record
// {offset,length,string,captures:[{offset,length,string,name}]}, per the
// match-record shape adopted from original_source.
func builtinMatch(args []Node, input *Value) (*Value, error) {
	if input.Kind() != KindString {
		return nil, typeErr("match", "expected string, got %s", input.Kind())
	}
	re, err := compileRegex("match", args, input)
	if err != nil {
		return nil, err
	}
	s := input.Str()
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return Null(), nil
	}
	result := EmptyObject()
	result.obj.set("offset", Number(float64(runeOffset(s, loc[0]))))
	result.obj.set("length", Number(float64(runeOffset(s, loc[1])-runeOffset(s, loc[0]))))
	result.obj.set("string", String(s[loc[0]:loc[1]]))

	names := re.SubexpNames()
	var captures []*Value
	for i := 1; i*2 < len(loc); i++ {
		cap := EmptyObject()
		start, end := loc[i*2], loc[i*2+1]
		if start < 0 {
			cap.obj.set("offset", Number(-1))
			cap.obj.set("length", Number(0))
			cap.obj.set("string", Null())
		} else {
			cap.obj.set("offset", Number(float64(runeOffset(s, start))))
			cap.obj.set("length", Number(float64(runeOffset(s, end)-runeOffset(s, start))))
			cap.obj.set("string", String(s[start:end]))
		}
		if i < len(names) && names[i] != "" {
			cap.obj.set("name", String(names[i]))
		} else {
			cap.obj.set("name", Null())
		}
		captures = append(captures, cap)
	}
	result.obj.set("captures", Array(captures))
	return result, nil
}

func runeOffset(s string, byteIdx int) int {
	return len([]rune(s[:byteIdx]))
}

func builtinIndices(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("indices", args, 1); err != nil {
		return nil, err
	}
	needle, err := Eval(args[0], input)
	if err != nil {
		return nil, err
	}
	switch input.Kind() {
	case KindString:
		if needle.Kind() != KindString || needle.Str() == "" {
			return Array(nil), nil
		}
		var out []*Value
		s, sub := input.Str(), needle.Str()
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				out = append(out, Number(float64(runeOffset(s, i))))
			}
		}
		return Array(out), nil
	case KindArray:
		var out []*Value
		for i, v := range input.Items() {
			if Equal(v, needle) {
				out = append(out, Number(float64(i)))
			}
		}
		return Array(out), nil
	default:
		return nil, typeErr("indices", "expected string or array, got %s", input.Kind())
	}
}

func builtinIndexOf(args []Node, input *Value, last bool) (*Value, error) {
	idxs, err := builtinIndices(args, input)
	if err != nil {
		return nil, err
	}
	items := idxs.Items()
	if len(items) == 0 {
		return Null(), nil
	}
	if last {
		return items[len(items)-1], nil
	}
	return items[0], nil
}

func builtinTrimStr(fn string, args []Node, input *Value, f func(s, cut string) string) (*Value, error) {
	if err := requireArgs(fn, args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindString {
		return nil, typeErr(fn, "expected string, got %s", input.Kind())
	}
	cut, err := evalStringArg(fn, args[0], input)
	if err != nil {
		return nil, err
	}
	return String(f(input.Str(), cut)), nil
}

func builtinToNumber(input *Value) (*Value, error) {
	switch input.Kind() {
	case KindNumber:
		return input, nil
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(input.Str()), 64)
		if err != nil {
			return nil, typeErr("tonumber", "cannot parse %q as a number", input.Str())
		}
		return Number(n), nil
	default:
		return nil, typeErr("tonumber", "expected string or number, got %s", input.Kind())
	}
}

func builtinAsciiCase(fn string, input *Value, upper bool) (*Value, error) {
	if input.Kind() != KindString {
		return nil, typeErr(fn, "expected string, got %s", input.Kind())
	}
	b := []byte(input.Str())
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		if !upper && c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return String(string(b)), nil
}

func builtinMathFn(fn string, input *Value, f func(float64) float64) (*Value, error) {
	if input.Kind() != KindNumber {
		return nil, typeErr(fn, "expected number, got %s", input.Kind())
	}
	return Number(f(input.Num())), nil
}

func pathsToArray(paths [][]pathStep) *Value {
	out := make([]*Value, len(paths))
	for i, p := range paths {
		out[i] = pathValue(p)
	}
	return Array(out)
}

func builtinMap(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("map", args, 1); err != nil {
		return nil, err
	}
	if input.Kind() != KindArray {
		return nil, typeErr("map", "expected array, got %s", input.Kind())
	}
	var out []*Value
	for _, e := range input.Items() {
		v, err := Eval(args[0], e)
		if err != nil {
			return nil, err
		}
		if v == filtered {
			continue
		}
		out = append(out, v)
	}
	return Array(out), nil
}

func builtinSelect(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("select", args, 1); err != nil {
		return nil, err
	}
	cond, err := Eval(args[0], input)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return input, nil
	}
	return filtered, nil
}

func builtinWithEntries(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("with_entries", args, 1); err != nil {
		return nil, err
	}
	entries, err := input.ToEntries()
	if err != nil {
		return nil, err
	}
	mapped, err := builtinMap(args, entries)
	if err != nil {
		return nil, err
	}
	return builtinFromEntries(mapped)
}

func builtinDel(args []Node, input *Value) (*Value, error) {
	if err := requireArgs("del", args, 1); err != nil {
		return nil, err
	}
	steps, err := pathSteps(args[0])
	if err != nil {
		return nil, err
	}
	return delAtPath(input, steps)
}

func builtinError(args []Node, input *Value) (*Value, error) {
	if len(args) == 0 {
		if input.Kind() == KindString {
			return nil, &Error{Kind: UserError, Message: input.Str()}
		}
		return nil, &Error{Kind: UserError, Message: jsonStringify(input)}
	}
	v, err := Eval(args[0], input)
	if err != nil {
		return nil, err
	}
	if v.Kind() == KindString {
		return nil, &Error{Kind: UserError, Message: v.Str()}
	}
	return nil, &Error{Kind: UserError, Message: jsonStringify(v)}
}

// jsonStringify renders v as compact JSON text, preserving object key
// order. Used by tostring and by error-message formatting; the richer,
// format-negotiated encoding lives in internal/format.
func jsonStringify(v *Value) string {
	var b strings.Builder
	writeJSONCompact(&b, v)
	return b.String()
}

func writeJSONCompact(b *strings.Builder, v *Value) {
	switch v.Kind() {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.Bool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		b.WriteString(formatNumberCompact(v.Num()))
	case KindString:
		b.WriteString(strconv.Quote(v.Str()))
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.Items() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONCompact(b, e)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			val, _ := v.Get(k)
			writeJSONCompact(b, val)
		}
		b.WriteByte('}')
	}
}

func formatNumberCompact(n float64) string {
	if IsIntegerLike(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
