package query

import (
	"strconv"
	"strings"
)

// parser is a recursive-descent, operator-precedence parser over the
// token stream produced by the lexer. Precedence (low to high), per
// spec §4.B:
//
//	pipe | -> alternative // -> or -> and -> comparisons -> + - ->
//	* / % -> unary not -> postfix ? -> primary
type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAhead() token {
	if p.pos+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+1]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, syntaxErr(t.pos, "expected %s", what)
	}
	return p.advance(), nil
}

// Parse parses a query string into an AST. If write is true, the root
// must be a top-level assignment (`path = expr`); otherwise a bare
// assignment is a syntax error, per spec §4.E step 3.
func Parse(src string, write bool) (Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	if idx, ok := findTopLevelAssign(toks); ok {
		if !write {
			return nil, syntaxErr(toks[idx].pos, "assignment is only allowed in write operations")
		}
		pathNode, err := parseTokens(toks[:idx])
		if err != nil {
			return nil, err
		}
		exprNode, err := parseTokens(toks[idx+1:])
		if err != nil {
			return nil, err
		}
		return &Assignment{Path: pathNode, Expr: exprNode}, nil
	}

	if write {
		return nil, syntaxErr(0, "write operations require an assignment expression (path = expr)")
	}

	return parseTokens(toks)
}

// findTopLevelAssign scans for the first `=` token (not `==`) at bracket
// depth 0, per spec §4.B/§9: assignments are only recognized at the
// request root, never inside a sub-expression.
func findTopLevelAssign(toks []token) (int, bool) {
	depth := 0
	for i, t := range toks {
		switch t.kind {
		case tokLParen, tokLBracket, tokLBrace:
			depth++
		case tokRParen, tokRBracket, tokRBrace:
			depth--
		case tokAssign:
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func parseTokens(toks []token) (Node, error) {
	toks = append(append([]token(nil), toks...), token{kind: tokEOF})
	p := &parser{toks: toks}
	node, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, syntaxErr(p.peek().pos, "unexpected trailing input")
	}
	return node, nil
}

func (p *parser) parsePipe() (Node, error) {
	left, err := p.parseAlternative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPipe {
		p.advance()
		right, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		left = &Pipe{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAlternative() (Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAlt {
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &Alternative{Left: left, Right: right}
	}
	return left, nil
}

func isKeyword(t token, word string) bool {
	return t.kind == tokIdent && t.text == word
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "and") {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	var op CompareOp
	switch p.peek().kind {
	case tokEq:
		op = CmpEq
	case tokNe:
		op = CmpNe
	case tokLt:
		op = CmpLt
	case tokGt:
		op = CmpGt
	case tokLe:
		op = CmpLe
	case tokGe:
		op = CmpGe
	default:
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &Compare{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ArithOp
		switch p.peek().kind {
		case tokPlus:
			op = ArithAdd
		case tokMinus:
			op = ArithSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ArithOp
		switch p.peek().kind {
		case tokStar:
			op = ArithMul
		case tokSlash:
			op = ArithDiv
		case tokPercent:
			op = ArithMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
}

// canStartPrimary reports whether t could begin a primary expression,
// used to decide whether a bare `not` is the prefix operator (`not
// expr`) or the niladic builtin applied to the pipeline input (as in
// `.foo | not`).
func canStartPrimary(t token) bool {
	switch t.kind {
	case tokDot, tokDotDot, tokLBracket, tokLParen, tokLBrace, tokString, tokNumber, tokMinus:
		return true
	case tokIdent:
		switch t.text {
		case "then", "elif", "else", "end", "catch", "and", "or":
			return false
		default:
			return true
		}
	default:
		return false
	}
}

func (p *parser) parseUnary() (Node, error) {
	if isKeyword(p.peek(), "not") {
		if !canStartPrimary(p.peekAhead()) {
			p.advance()
			return &FunctionCall{Name: "not"}, nil
		}
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: operand}, nil
	}
	if p.peek().kind == tokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Arith{Op: ArithSub, Left: &Literal{Value: Number(0)}, Right: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of path
// segments (`.name`, `..`, `[...]`) and `?` suffixes. Path chaining is
// folded into Pipe nodes so that `.items[]` followed by `.name` reuses
// the same iterate-then-map semantics as an explicit `|`.
func (p *parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			seg, err := p.parseDotSegment()
			if err != nil {
				return nil, err
			}
			seg = p.wrapOptional(seg)
			node = &Pipe{Left: node, Right: seg}
		case tokDotDot:
			seg, err := p.parseDotDotSegment()
			if err != nil {
				return nil, err
			}
			seg = p.wrapOptional(seg)
			node = &Pipe{Left: node, Right: seg}
		case tokLBracket:
			seg, err := p.parseBracketSegment()
			if err != nil {
				return nil, err
			}
			seg = p.wrapOptional(seg)
			node = &Pipe{Left: node, Right: seg}
		case tokQuestion:
			p.advance()
			node = &Optional{Expr: node}
		default:
			return node, nil
		}
	}
}

// wrapOptional consumes a following `?` and wraps seg in Optional; used
// so `?` binds to the immediately preceding path segment, matching
// common jq usage (`.a?.b?`).
func (p *parser) wrapOptional(seg Node) Node {
	if p.peek().kind == tokQuestion {
		p.advance()
		return &Optional{Expr: seg}
	}
	return seg
}

func (p *parser) parseDotSegment() (Node, error) {
	dot := p.advance() // consume '.'
	if p.peek().pos != dot.pos+1 {
		// `. then`, `. * 2`: a bare `.` followed by whitespace is Identity.
		return &Identity{}, nil
	}
	switch p.peek().kind {
	case tokIdent:
		name := p.advance().text
		return &Field{Name: name}, nil
	case tokString:
		name := p.advance().text
		return &Field{Name: name}, nil
	case tokStar:
		p.advance()
		return &Wildcard{}, nil
	default:
		return &Identity{}, nil
	}
}

func (p *parser) parseDotDotSegment() (Node, error) {
	p.advance() // consume '..'
	if p.peek().kind == tokIdent {
		name := p.advance().text
		return &RecursiveDescent{Field: name, HasField: true}, nil
	}
	return &RecursiveDescent{}, nil
}

// parseBracketSegment parses `[n]`, `[a:b]`, `[]`, or `[*]`. Callers
// decide beforehand (via looksLikePathBracket) that the bracket holds
// one of these forms rather than an array constructor; that decision
// only matters in primary position; as a path continuation a bracket is
// always one of these forms.
func (p *parser) parseBracketSegment() (Node, error) {
	p.advance() // consume '['

	if p.peek().kind == tokRBracket {
		p.advance()
		return &Iterate{}, nil
	}
	if p.peek().kind == tokStar {
		p.advance()
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &Wildcard{}, nil
	}
	if p.peek().kind == tokColon {
		p.advance()
		end, hasEnd, err := p.parseOptionalSliceBound()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &Slice{End: end, HasEnd: hasEnd}, nil
	}
	if p.peek().kind == tokNumber {
		n, err := strconv.Atoi(p.peek().text)
		if err != nil {
			return nil, syntaxErr(p.peek().pos, "invalid index %q", p.peek().text)
		}
		p.advance()
		if p.peek().kind == tokColon {
			p.advance()
			end, hasEnd, err := p.parseOptionalSliceBound()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			return &Slice{Start: n, HasStart: true, End: end, HasEnd: hasEnd}, nil
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &Index{N: n}, nil
	}
	if p.peek().kind == tokMinus {
		return nil, syntaxErr(p.peek().pos, "negative indices are not supported")
	}
	return nil, syntaxErr(p.peek().pos, "invalid bracket segment")
}

func (p *parser) parseOptionalSliceBound() (int, bool, error) {
	if p.peek().kind == tokRBracket {
		return 0, false, nil
	}
	if p.peek().kind == tokNumber {
		n, err := strconv.Atoi(p.peek().text)
		if err != nil {
			return 0, false, syntaxErr(p.peek().pos, "invalid slice bound %q", p.peek().text)
		}
		p.advance()
		return n, true, nil
	}
	if p.peek().kind == tokMinus {
		return 0, false, syntaxErr(p.peek().pos, "negative indices are not supported")
	}
	return 0, false, syntaxErr(p.peek().pos, "invalid slice bound")
}

// looksLikePathBracket reports whether the bracket starting at tok index
// i (pointing at '[') should be parsed as a path segment (index/slice/
// iterate/wildcard) rather than an array constructor. Used only at
// primary position. Grounded on the teacher's isComplexCEL heuristic in
// navigator/navigator.go, adapted to the stricter grammar of spec §4.B
// (no quoted-key bracket form).
func looksLikePathBracket(toks []token, i int) bool {
	// toks[i].kind == tokLBracket
	j := i + 1
	if j >= len(toks) {
		return false
	}
	switch toks[j].kind {
	case tokRBracket: // []
		return true
	case tokStar:
		return j+1 < len(toks) && toks[j+1].kind == tokRBracket
	case tokColon:
		return true // [:...]
	case tokNumber:
		// [n] or [n:...], but not [n, ...] (that's array construction).
		return j+1 < len(toks) && (toks[j+1].kind == tokRBracket || toks[j+1].kind == tokColon)
	}
	return false
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokDot:
		return p.parseDotSegment()
	case tokDotDot:
		return p.parseDotDotSegment()
	case tokLBracket:
		if looksLikePathBracket(p.toks, p.pos) {
			return p.parseBracketSegment()
		}
		return p.parseArrayCtor()
	case tokLParen:
		p.advance()
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokLBrace:
		return p.parseObjectCtor()
	case tokString:
		p.advance()
		return &Literal{Value: String(t.text)}, nil
	case tokNumber:
		p.advance()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, syntaxErr(t.pos, "invalid number %q", t.text)
		}
		if strings.ContainsAny(t.text, ".eE") {
			return &Literal{Value: FloatNumber(n)}, nil
		}
		return &Literal{Value: Number(n)}, nil
	case tokIdent:
		return p.parseIdentOrKeyword()
	default:
		return nil, syntaxErr(t.pos, "unexpected token")
	}
}

func (p *parser) parseIdentOrKeyword() (Node, error) {
	t := p.advance()
	switch t.text {
	case "true":
		return &Literal{Value: Bool(true)}, nil
	case "false":
		return &Literal{Value: Bool(false)}, nil
	case "null":
		return &Literal{Value: Null()}, nil
	case "if":
		return p.parseIf()
	case "try":
		return p.parseTryCatch()
	}
	// Function call, with or without arguments.
	name := t.text
	if p.peek().kind != tokLParen {
		return &FunctionCall{Name: name}, nil
	}
	p.advance() // consume '('
	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &FunctionCall{Name: name, Args: args}, nil
}

func (p *parser) parseIf() (Node, error) {
	cond, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if !isKeyword(p.peek(), "then") {
		return nil, syntaxErr(p.peek().pos, "expected 'then'")
	}
	p.advance()
	then, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	return p.parseIfTail(cond, then)
}

func (p *parser) parseIfTail(cond, then Node) (Node, error) {
	switch {
	case isKeyword(p.peek(), "elif"):
		p.advance()
		elifCond, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if !isKeyword(p.peek(), "then") {
			return nil, syntaxErr(p.peek().pos, "expected 'then'")
		}
		p.advance()
		elifThen, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		nested, err := p.parseIfTail(elifCond, elifThen)
		if err != nil {
			return nil, err
		}
		return &IfThenElse{Cond: cond, Then: then, Else: nested}, nil
	case isKeyword(p.peek(), "else"):
		p.advance()
		elseExpr, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if !isKeyword(p.peek(), "end") {
			return nil, syntaxErr(p.peek().pos, "expected 'end'")
		}
		p.advance()
		return &IfThenElse{Cond: cond, Then: then, Else: elseExpr}, nil
	case isKeyword(p.peek(), "end"):
		p.advance()
		return &IfThenElse{Cond: cond, Then: then}, nil
	default:
		return nil, syntaxErr(p.peek().pos, "expected 'elif', 'else', or 'end'")
	}
}

func (p *parser) parseTryCatch() (Node, error) {
	tryExpr, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if isKeyword(p.peek(), "catch") {
		p.advance()
		catchExpr, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &TryCatch{Try: tryExpr, Catch: catchExpr}, nil
	}
	return &TryCatch{Try: tryExpr}, nil
}

func (p *parser) parseArrayCtor() (Node, error) {
	p.advance() // consume '['
	if p.peek().kind == tokRBracket {
		p.advance()
		return &ArrayCtor{}, nil
	}
	first, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokComma {
		exprs := []Node{first}
		for p.peek().kind == tokComma {
			p.advance()
			next, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, next)
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &ArrayCtor{Inner: &Comma{Exprs: exprs}}, nil
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ArrayCtor{Inner: first}, nil
}

func (p *parser) parseObjectCtor() (Node, error) {
	p.advance() // consume '{'
	var entries []ObjectEntry
	if p.peek().kind == tokRBrace {
		p.advance()
		return &ObjectCtor{}, nil
	}
	for {
		entry, err := p.parseObjectEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ObjectCtor{Entries: entries}, nil
}

func (p *parser) parseObjectEntry() (ObjectEntry, error) {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		p.advance()
		name := t.text
		if p.peek().kind == tokColon {
			p.advance()
			val, err := p.parseAlternative()
			if err != nil {
				return ObjectEntry{}, err
			}
			return ObjectEntry{KeyName: name, Value: val}, nil
		}
		return ObjectEntry{KeyName: name, Shorthand: true}, nil
	case tokString:
		p.advance()
		name := t.text
		if p.peek().kind == tokColon {
			p.advance()
			val, err := p.parseAlternative()
			if err != nil {
				return ObjectEntry{}, err
			}
			return ObjectEntry{KeyName: name, Value: val}, nil
		}
		return ObjectEntry{KeyName: name, Shorthand: true}, nil
	case tokLParen:
		p.advance()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return ObjectEntry{}, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return ObjectEntry{}, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ObjectEntry{}, err
		}
		val, err := p.parseAlternative()
		if err != nil {
			return ObjectEntry{}, err
		}
		return ObjectEntry{KeyExpr: keyExpr, Value: val}, nil
	default:
		return ObjectEntry{}, syntaxErr(t.pos, "expected object key")
	}
}
