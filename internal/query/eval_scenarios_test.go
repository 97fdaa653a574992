package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The five read-only scenarios of spec.md §8's "Scenario tests with
// literal inputs" list (scenario 6, write+backup, lives in
// internal/commit/writer_test.go's TestWriterBackupScenario since it
// needs the commit writer, not just the evaluator).

// Scenario 1: {"a":{"b":[10,20,30]}}, ".a.b[1]", raw -> 20.
func TestScenarioNestedIndex(t *testing.T) {
	input := obj("a", obj("b", Array([]*Value{Number(10), Number(20), Number(30)})))
	result := evalQuery(t, ".a.b[1]", input)
	assert.Equal(t, KindNumber, result.Kind())
	assert.Equal(t, float64(20), result.Num())
	assert.False(t, result.NumIsFloat(), "indexing must not taint a plain literal as float-sourced")
}

// Scenario 2: {"users":[...]}, ".users | map(select(.age>=18 and .active)) | map(.name // \"?\")", json -> ["?","?"].
func TestScenarioFilterMapFallback(t *testing.T) {
	users := Array([]*Value{
		obj("age", Number(30), "active", Bool(true)),
		obj("age", Number(15), "active", Bool(false)),
		obj("age", Number(25), "active", Bool(true)),
	})
	input := obj("users", users)
	result := evalQuery(t, `.users | map(select(.age>=18 and .active)) | map(.name // "?")`, input)
	require.Equal(t, KindArray, result.Kind())
	require.Len(t, result.Items(), 2)
	for _, item := range result.Items() {
		assert.Equal(t, KindString, item.Kind())
		assert.Equal(t, "?", item.Str())
	}
}

// Scenario 3: {"price":100,"tax":0.08}, ".price * (1 + .tax)", raw -> "108.0".
// The result must be tagged float-sourced even though it is whole-valued,
// so internal/format's formatJSONNumber appends the ".0" spec.md §8 and
// §9's "1+2 emits 3.0" design note both require.
func TestScenarioArithmeticFloatFormatting(t *testing.T) {
	input := obj("price", Number(100), "tax", FloatNumber(0.08))
	result := evalQuery(t, ".price * (1 + .tax)", input)
	assert.Equal(t, KindNumber, result.Kind())
	assert.InDelta(t, 108.0, result.Num(), 1e-9)
	assert.True(t, result.NumIsFloat(), "arithmetic results must render with a decimal point even when whole-valued")
}

// Scenario 4: {"config":{"timeout":null,"retries":3}}, ".config.timeout // .config.retries // 10", raw -> 3.
func TestScenarioAlternativeChain(t *testing.T) {
	input := obj("config", obj("timeout", Null(), "retries", Number(3)))
	result := evalQuery(t, ".config.timeout // .config.retries // 10", input)
	assert.Equal(t, KindNumber, result.Kind())
	assert.Equal(t, float64(3), result.Num())
	assert.False(t, result.NumIsFloat(), "a fallback to an existing integer literal must not gain a decimal point")
}

// Scenario 5: {"score":75}, nested if/elif/else grading -> "C".
func TestScenarioNestedConditional(t *testing.T) {
	input := obj("score", Number(75))
	result := evalQuery(t, `if .score>90 then "A" elif .score>80 then "B" elif .score>70 then "C" else "F" end`, input)
	assert.Equal(t, KindString, result.Kind())
	assert.Equal(t, "C", result.Str())
}
