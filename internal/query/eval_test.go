package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Node {
	t.Helper()
	node, err := Parse(src, false)
	require.NoErrorf(t, err, "parsing %q", src)
	return node
}

func evalQuery(t *testing.T, src string, input *Value) *Value {
	t.Helper()
	node := mustParse(t, src)
	v, err := Eval(node, input)
	require.NoErrorf(t, err, "evaluating %q", src)
	return v
}

func obj(pairs ...interface{}) *Value {
	o := EmptyObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.obj.set(pairs[i].(string), pairs[i+1].(*Value))
	}
	return o
}

func TestEvalIdentityAndField(t *testing.T) {
	input := obj("name", String("ada"), "age", Number(36))
	assert.Equal(t, "ada", evalQuery(t, ".name", input).Str())
	assert.True(t, evalQuery(t, ".missing", input).IsNull())
	assert.True(t, evalQuery(t, ".", input) == input)
}

func TestEvalFieldOnNonObjectErrors(t *testing.T) {
	_, err := Eval(mustParse(t, ".name"), Number(1))
	require.Error(t, err)
	qe, ok := AsQueryError(err)
	require.True(t, ok)
	assert.Equal(t, TypeError, qe.Kind)
}

func TestEvalIndexAndSlice(t *testing.T) {
	arr := Array([]*Value{Number(1), Number(2), Number(3), Number(4)})
	assert.Equal(t, float64(3), evalQuery(t, ".[2]", arr).Num())
	assert.True(t, evalQuery(t, ".[10]", arr).IsNull())

	sliced := evalQuery(t, ".[1:3]", arr)
	require.Equal(t, 2, len(sliced.Items()))
	assert.Equal(t, float64(2), sliced.Items()[0].Num())

	full := evalQuery(t, ".[:]", arr)
	assert.Equal(t, 4, len(full.Items()))
}

func TestEvalIteratePipeMapsOverArray(t *testing.T) {
	input := obj("items", Array([]*Value{
		obj("name", String("a")),
		obj("name", String("b")),
	}))
	out := evalQuery(t, ".items[].name", input)
	require.Equal(t, KindArray, out.Kind())
	require.Len(t, out.Items(), 2)
	assert.Equal(t, "a", out.Items()[0].Str())
	assert.Equal(t, "b", out.Items()[1].Str())
}

func TestEvalSelectFiltersOutFalse(t *testing.T) {
	input := Array([]*Value{Number(1), Number(2), Number(3), Number(4)})
	out := evalQuery(t, ".[] | select(. > 2)", input)
	require.Len(t, out.Items(), 2)
	assert.Equal(t, float64(3), out.Items()[0].Num())
	assert.Equal(t, float64(4), out.Items()[1].Num())
}

func TestEvalAlternative(t *testing.T) {
	input := obj("a", Null())
	assert.Equal(t, "fallback", evalQuery(t, `.a // "fallback"`, input).Str())

	input2 := obj("a", String("value"))
	assert.Equal(t, "value", evalQuery(t, `.a // "fallback"`, input2).Str())
}

func TestEvalOptionalSuppressesError(t *testing.T) {
	v := evalQuery(t, ".a?", Number(1))
	assert.True(t, v.IsNull())
}

func TestEvalTryCatch(t *testing.T) {
	v := evalQuery(t, `try error("boom") catch "caught"`, Null())
	assert.Equal(t, "caught", v.Str())

	v2 := evalQuery(t, `try (1/0)`, Null())
	assert.True(t, v2.IsNull())
}

func TestEvalIfThenElse(t *testing.T) {
	assert.Equal(t, "big", evalQuery(t, `if . > 10 then "big" else "small" end`, Number(20)).Str())
	assert.Equal(t, "small", evalQuery(t, `if . > 10 then "big" else "small" end`, Number(1)).Str())
	assert.Equal(t, "mid", evalQuery(t, `if . > 100 then "big" elif . > 10 then "mid" else "small" end`, Number(20)).Str())
}

func TestEvalArithmetic(t *testing.T) {
	assert.Equal(t, float64(7), evalQuery(t, "2 + 5", Null()).Num())
	assert.Equal(t, "ab", evalQuery(t, `"a" + "b"`, Null()).Str())
	assert.Equal(t, float64(1), evalQuery(t, "10 % 4 / 2", Null()).Num())

	_, err := Eval(mustParse(t, "1 / 0"), Null())
	require.Error(t, err)
	qe, _ := AsQueryError(err)
	assert.Equal(t, DivisionByZero, qe.Kind)
}

func TestEvalObjectMerge(t *testing.T) {
	left := obj("a", Number(1), "b", Number(2))
	right := obj("b", Number(3), "c", Number(4))
	merged := evalArithAdd(t, left, right)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())
	v, _ := merged.Get("b")
	assert.Equal(t, float64(3), v.Num())
}

func evalArithAdd(t *testing.T, l, r *Value) *Value {
	t.Helper()
	v, err := Eval(&Arith{Op: ArithAdd, Left: &Literal{Value: l}, Right: &Literal{Value: r}}, Null())
	require.NoError(t, err)
	return v
}

func TestEvalObjectAndArrayConstruction(t *testing.T) {
	input := obj("name", String("ada"), "age", Number(36))
	o := evalQuery(t, "{name, doubled: (.age * 2)}", input)
	nameV, _ := o.Get("name")
	assert.Equal(t, "ada", nameV.Str())
	doubled, _ := o.Get("doubled")
	assert.Equal(t, float64(72), doubled.Num())

	a := evalQuery(t, "[.name, .age]", input)
	require.Len(t, a.Items(), 2)

	single := evalQuery(t, "[.age]", input)
	require.Len(t, single.Items(), 1)
}

func TestEvalRecursiveDescent(t *testing.T) {
	input := obj("a", obj("name", String("x")), "b", Array([]*Value{obj("name", String("y"))}))
	names := evalQuery(t, "..name", input)
	require.Len(t, names.Items(), 2)
}

func TestEvalAssignment(t *testing.T) {
	input := obj("user", obj("name", String("ada")))
	node, err := Parse(`.user.name = "grace"`, true)
	require.NoError(t, err)
	out, err := Eval(node, input)
	require.NoError(t, err)
	nameV := evalQuery(t, ".user.name", out)
	assert.Equal(t, "grace", nameV.Str())
	// original input untouched
	orig := evalQuery(t, ".user.name", input)
	assert.Equal(t, "ada", orig.Str())
}

func TestParseRejectsBareAssignmentInReadMode(t *testing.T) {
	_, err := Parse(".a = 1", false)
	require.Error(t, err)

	_, err = Parse(".a.b.c", true)
	require.Error(t, err)
}
