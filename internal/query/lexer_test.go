package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func TestTokenizeBasicPath(t *testing.T) {
	toks, err := tokenize(".foo.bar[0]")
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{
		tokDot, tokIdent, tokDot, tokIdent, tokLBracket, tokNumber, tokRBracket, tokEOF,
	}, kinds(toks))
}

func TestTokenizeOperators(t *testing.T) {
	cases := map[string][]tokenKind{
		"a // b":  {tokIdent, tokAlt, tokIdent, tokEOF},
		"a == b":  {tokIdent, tokEq, tokIdent, tokEOF},
		"a != b":  {tokIdent, tokNe, tokIdent, tokEOF},
		"a <= b":  {tokIdent, tokLe, tokIdent, tokEOF},
		"a >= b":  {tokIdent, tokGe, tokIdent, tokEOF},
		".a = 1":  {tokDot, tokIdent, tokAssign, tokNumber, tokEOF},
		"1 / 2":   {tokNumber, tokSlash, tokNumber, tokEOF},
	}
	for src, want := range cases {
		toks, err := tokenize(src)
		require.NoErrorf(t, err, "tokenizing %q", src)
		assert.Equalf(t, want, kinds(toks), "tokenizing %q", src)
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := tokenize(`"a\nb\t\"c\""`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "a\nb\t\"c\"", toks[0].text)
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := tokenize(`"abc`)
	require.Error(t, err)
	qe, ok := AsQueryError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidSyntax, qe.Kind)
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := tokenize("1 2.5 1e3 1.5e-2")
	require.NoError(t, err)
	var texts []string
	for _, tk := range toks {
		if tk.kind == tokNumber {
			texts = append(texts, tk.text)
		}
	}
	assert.Equal(t, []string{"1", "2.5", "1e3", "1.5e-2"}, texts)
}

func TestTokenizeBangAloneErrors(t *testing.T) {
	_, err := tokenize("a ! b")
	require.Error(t, err)
}
