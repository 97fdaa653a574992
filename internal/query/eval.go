package query

// filtered is a sentinel pointer distinguishing a `select`/`empty`
// result from an ordinary Null. Pipe's per-element iteration and the
// map() builtin both drop it instead of keeping it, per spec §4.C's
// pipe rule ("results where the right side is Null coming from a
// select are filtered out; other Nulls are kept"). Every Null() call
// allocates a fresh *Value, so pointer identity against this single
// instance is safe.
var filtered = &Value{kind: KindNull}

// Eval walks node against input, returning a single resulting Value
// (or an array, for constructs that fan out over multiple elements —
// iteration, comma lists — per the collect-into-array contract fixed in
// spec §9).
func Eval(node Node, input *Value) (*Value, error) {
	switch n := node.(type) {
	case *Identity:
		return input, nil

	case *Field:
		if input.IsNull() {
			return Null(), nil
		}
		if input.Kind() != KindObject {
			return nil, typeErr("", "cannot index %s with %q", input.Kind(), n.Name)
		}
		v, ok := input.Get(n.Name)
		if !ok {
			return Null(), nil
		}
		return v, nil

	case *Index:
		if input.Kind() != KindArray {
			return Null(), nil
		}
		arr := input.Items()
		if n.N < 0 || n.N >= len(arr) {
			return Null(), nil
		}
		return arr[n.N], nil

	case *Slice:
		if input.Kind() != KindArray {
			return Null(), nil
		}
		arr := input.Items()
		start, end := 0, len(arr)
		if n.HasStart {
			start = n.Start
		}
		if n.HasEnd {
			end = n.End
		}
		start = clampInt(start, 0, len(arr))
		end = clampInt(end, 0, len(arr))
		if start > end {
			return Array(nil), nil
		}
		return Array(arr[start:end]), nil

	case *Wildcard, *Iterate:
		switch input.Kind() {
		case KindArray:
			return Array(input.Items()), nil
		case KindObject:
			items := make([]*Value, 0, len(input.Keys()))
			for _, k := range input.Keys() {
				v, _ := input.Get(k)
				items = append(items, v)
			}
			return Array(items), nil
		default:
			return nil, typeErr("", "cannot iterate over %s", input.Kind())
		}

	case *RecursiveDescent:
		if n.HasField {
			return Array(collectByField(input, n.Field)), nil
		}
		return Array(collectDescendants(input)), nil

	case *Optional:
		v, err := Eval(n.Expr, input)
		if err != nil {
			return Null(), nil
		}
		return v, nil

	case *Pipe:
		return evalPipe(n, input)

	case *Alternative:
		left, err := Eval(n.Left, input)
		if err == nil && left.Truthy() {
			return left, nil
		}
		return Eval(n.Right, input)

	case *Comma:
		items := make([]*Value, 0, len(n.Exprs))
		for _, e := range n.Exprs {
			v, err := Eval(e, input)
			if err != nil {
				return nil, err
			}
			if v == filtered {
				continue
			}
			items = append(items, v)
		}
		return Array(items), nil

	case *Compare:
		return evalCompare(n, input)

	case *Arith:
		return evalArith(n, input)

	case *Logical:
		left, err := Eval(n.Left, input)
		if err != nil {
			return nil, err
		}
		if n.Op == LogicalAnd && !left.Truthy() {
			return Bool(false), nil
		}
		if n.Op == LogicalOr && left.Truthy() {
			return Bool(true), nil
		}
		right, err := Eval(n.Right, input)
		if err != nil {
			return nil, err
		}
		return Bool(right.Truthy()), nil

	case *Not:
		v, err := Eval(n.Expr, input)
		if err != nil {
			return nil, err
		}
		return Bool(!v.Truthy()), nil

	case *IfThenElse:
		cond, err := Eval(n.Cond, input)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			return Eval(n.Then, input)
		}
		if n.Else == nil {
			return input, nil
		}
		return Eval(n.Else, input)

	case *TryCatch:
		v, err := Eval(n.Try, input)
		if err == nil {
			return v, nil
		}
		if n.Catch != nil {
			return Eval(n.Catch, input)
		}
		return Null(), nil

	case *FunctionCall:
		return callBuiltin(n.Name, n.Args, input)

	case *ObjectCtor:
		return evalObjectCtor(n, input)

	case *ArrayCtor:
		return evalArrayCtor(n, input)

	case *Literal:
		return n.Value, nil

	case *Assignment:
		steps, err := pathSteps(n.Path)
		if err != nil {
			return nil, err
		}
		val, err := Eval(n.Expr, input)
		if err != nil {
			return nil, err
		}
		return setAtPath(input, steps, val)

	default:
		return nil, typeErr("", "unsupported expression node")
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// lastNode unwraps a Pipe chain to its final (rightmost) node, the one
// the pipe rule inspects to decide whether to map over an array.
func lastNode(n Node) Node {
	if p, ok := n.(*Pipe); ok {
		return lastNode(p.Right)
	}
	return n
}

func isIteratorNode(n Node) bool {
	switch lastNode(n).(type) {
	case *Iterate, *Wildcard:
		return true
	default:
		return false
	}
}

func evalPipe(n *Pipe, input *Value) (*Value, error) {
	y, err := Eval(n.Left, input)
	if err != nil {
		return nil, err
	}
	if isIteratorNode(n.Left) && y.Kind() == KindArray {
		var out []*Value
		for _, elem := range y.Items() {
			r, err := Eval(n.Right, elem)
			if err != nil {
				return nil, err
			}
			if r == filtered {
				continue
			}
			out = append(out, r)
		}
		return Array(out), nil
	}
	return Eval(n.Right, y)
}

func evalCompare(n *Compare, input *Value) (*Value, error) {
	l, err := Eval(n.Left, input)
	if err != nil {
		return nil, err
	}
	r, err := Eval(n.Right, input)
	if err != nil {
		return nil, err
	}
	c := Compare(l, r)
	switch n.Op {
	case CmpEq:
		return Bool(c == 0), nil
	case CmpNe:
		return Bool(c != 0), nil
	case CmpLt:
		return Bool(c < 0), nil
	case CmpGt:
		return Bool(c > 0), nil
	case CmpLe:
		return Bool(c <= 0), nil
	case CmpGe:
		return Bool(c >= 0), nil
	default:
		return nil, typeErr("", "unknown comparison operator")
	}
}

func evalArith(n *Arith, input *Value) (*Value, error) {
	l, err := Eval(n.Left, input)
	if err != nil {
		return nil, err
	}
	r, err := Eval(n.Right, input)
	if err != nil {
		return nil, err
	}

	if n.Op == ArithAdd {
		switch {
		case l.Kind() == KindNumber && r.Kind() == KindNumber:
			return arithResult(l.Num() + r.Num()), nil
		case l.Kind() == KindString && r.Kind() == KindString:
			return String(l.Str() + r.Str()), nil
		case l.Kind() == KindArray && r.Kind() == KindArray:
			out := append(append([]*Value(nil), l.Items()...), r.Items()...)
			return Array(out), nil
		case l.Kind() == KindObject && r.Kind() == KindObject:
			merged := l.obj.clone()
			for _, k := range r.Keys() {
				v, _ := r.Get(k)
				merged.set(k, v)
			}
			return &Value{kind: KindObject, obj: merged}, nil
		default:
			return nil, typeErr("+", "cannot add %s and %s", l.Kind(), r.Kind())
		}
	}

	if l.Kind() != KindNumber || r.Kind() != KindNumber {
		return nil, typeErr(arithName(n.Op), "%s and %s are not both numbers", l.Kind(), r.Kind())
	}
	switch n.Op {
	case ArithSub:
		return arithResult(l.Num() - r.Num()), nil
	case ArithMul:
		return arithResult(l.Num() * r.Num()), nil
	case ArithDiv:
		if r.Num() == 0 {
			return nil, &Error{Kind: DivisionByZero, Message: "division by zero"}
		}
		return arithResult(l.Num() / r.Num()), nil
	case ArithMod:
		if r.Num() == 0 {
			return nil, &Error{Kind: DivisionByZero, Message: "modulo by zero"}
		}
		return arithResult(float64(int64(l.Num()) % int64(r.Num()))), nil
	default:
		return nil, typeErr("", "unknown arithmetic operator")
	}
}

// arithResult always tags an arithmetic op's Number result as
// float-sourced, matching jq's observable behavior that arithmetic
// normalizes to float even on two integer operands (spec.md §9's design
// note: "1+2 emits 3.0"). A whole-valued result like 100 * 1.08 therefore
// renders as 108.0, not 108.
func arithResult(n float64) *Value {
	return FloatNumber(n)
}

func arithName(op ArithOp) string {
	switch op {
	case ArithSub:
		return "-"
	case ArithMul:
		return "*"
	case ArithDiv:
		return "/"
	case ArithMod:
		return "%"
	default:
		return "+"
	}
}

func evalObjectCtor(n *ObjectCtor, input *Value) (*Value, error) {
	result := EmptyObject()
	for _, e := range n.Entries {
		var key string
		switch {
		case e.Shorthand:
			key = e.KeyName
			v, err := Eval(&Field{Name: key}, input)
			if err != nil {
				return nil, err
			}
			result.obj.set(key, v)
			continue
		case e.KeyExpr != nil:
			kv, err := Eval(e.KeyExpr, input)
			if err != nil {
				return nil, err
			}
			if kv.Kind() != KindString {
				return nil, typeErr("", "object key must evaluate to a string, got %s", kv.Kind())
			}
			key = kv.Str()
		default:
			key = e.KeyName
		}
		v, err := Eval(e.Value, input)
		if err != nil {
			return nil, err
		}
		result.obj.set(key, v)
	}
	return result, nil
}

func evalArrayCtor(n *ArrayCtor, input *Value) (*Value, error) {
	if n.Inner == nil {
		return Array(nil), nil
	}
	if comma, ok := n.Inner.(*Comma); ok {
		items := make([]*Value, 0, len(comma.Exprs))
		for _, e := range comma.Exprs {
			v, err := Eval(e, input)
			if err != nil {
				return nil, err
			}
			if v == filtered {
				continue
			}
			items = append(items, v)
		}
		return Array(items), nil
	}
	v, err := Eval(n.Inner, input)
	if err != nil {
		return nil, err
	}
	if v == filtered {
		return Array(nil), nil
	}
	if v.Kind() == KindArray {
		return v, nil
	}
	return Array([]*Value{v}), nil
}

// collectDescendants returns every sub-value of v (v included) in
// pre-order, for `..`.
func collectDescendants(v *Value) []*Value {
	var out []*Value
	var walk func(*Value)
	walk = func(x *Value) {
		out = append(out, x)
		switch x.Kind() {
		case KindArray:
			for _, e := range x.Items() {
				walk(e)
			}
		case KindObject:
			for _, k := range x.Keys() {
				val, _ := x.Get(k)
				walk(val)
			}
		}
	}
	walk(v)
	return out
}

// collectByField returns, in pre-order, the value of field name at every
// object found anywhere in v, for `..name`.
func collectByField(v *Value, name string) []*Value {
	var out []*Value
	var walk func(*Value)
	walk = func(x *Value) {
		if x.Kind() == KindObject {
			if val, ok := x.Get(name); ok {
				out = append(out, val)
			}
		}
		switch x.Kind() {
		case KindArray:
			for _, e := range x.Items() {
				walk(e)
			}
		case KindObject:
			for _, k := range x.Keys() {
				val, _ := x.Get(k)
				walk(val)
			}
		}
	}
	walk(v)
	return out
}
