package query

// pathStep is one component of a resolved path: either an object field
// or an array index.
type pathStep struct {
	isIndex bool
	field   string
	index   int
}

// pathSteps decomposes a path expression (a chain of Field/Index nodes
// joined by the Pipe nodes the parser builds for `.a.b[0]`) into an
// ordered list of steps. Only field access, index access, Identity, and
// Optional are legal in a path position; anything else (wildcards,
// iteration, arbitrary expressions) is rejected, since assignment and
// del() need a single deterministic location.
func pathSteps(node Node) ([]pathStep, error) {
	switch n := node.(type) {
	case *Identity:
		return nil, nil
	case *Field:
		return []pathStep{{field: n.Name}}, nil
	case *Index:
		return []pathStep{{isIndex: true, index: n.N}}, nil
	case *Pipe:
		l, err := pathSteps(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := pathSteps(n.Right)
		if err != nil {
			return nil, err
		}
		return append(l, r...), nil
	case *Optional:
		return pathSteps(n.Expr)
	default:
		return nil, &Error{Kind: InvalidSyntax, Message: "path expression must be a simple sequence of field and index accesses"}
	}
}

// getAtPath reads the value at steps, yielding Null for any missing or
// type-mismatched component, per the Field/Index evaluation rules.
func getAtPath(v *Value, steps []pathStep) *Value {
	cur := v
	for _, s := range steps {
		if cur.IsNull() {
			return Null()
		}
		if s.isIndex {
			if cur.Kind() != KindArray {
				return Null()
			}
			arr := cur.Items()
			if s.index < 0 || s.index >= len(arr) {
				return Null()
			}
			cur = arr[s.index]
		} else {
			if cur.Kind() != KindObject {
				return Null()
			}
			val, ok := cur.Get(s.field)
			if !ok {
				return Null()
			}
			cur = val
		}
	}
	return cur
}

// setAtPath returns a copy of v with newVal placed at steps, creating
// missing intermediate objects along the way. Writing past the end of
// an array (index > length) is an IndexOutOfBounds error.
func setAtPath(v *Value, steps []pathStep, newVal *Value) (*Value, error) {
	if len(steps) == 0 {
		return newVal, nil
	}
	step, rest := steps[0], steps[1:]

	if step.isIndex {
		var arr []*Value
		switch {
		case v == nil || v.IsNull():
			arr = nil
		case v.Kind() == KindArray:
			arr = append([]*Value(nil), v.Items()...)
		default:
			return nil, typeErr("", "cannot index %s with number", v.Kind())
		}
		if step.index < 0 {
			return nil, argErr("", "negative indices are not supported")
		}
		if step.index > len(arr) {
			return nil, &Error{Kind: IndexOutOfBounds, Message: "cannot write past the end of an array"}
		}
		child := Null()
		if step.index < len(arr) {
			child = arr[step.index]
		}
		newChild, err := setAtPath(child, rest, newVal)
		if err != nil {
			return nil, err
		}
		if step.index == len(arr) {
			arr = append(arr, newChild)
		} else {
			arr[step.index] = newChild
		}
		return Array(arr), nil
	}

	var obj *object
	switch {
	case v == nil || v.IsNull():
		obj = newObject()
	case v.Kind() == KindObject:
		obj = v.obj.clone()
	default:
		return nil, typeErr("", "cannot index %s with %q", v.Kind(), step.field)
	}
	child, ok := obj.get(step.field)
	if !ok {
		child = Null()
	}
	newChild, err := setAtPath(child, rest, newVal)
	if err != nil {
		return nil, err
	}
	obj.set(step.field, newChild)
	return &Value{kind: KindObject, obj: obj}, nil
}

// delAtPath returns a copy of v with the value at steps removed. A path
// through a missing key or out-of-range index is a no-op, per §4.C.
func delAtPath(v *Value, steps []pathStep) (*Value, error) {
	if len(steps) == 0 {
		return v, nil
	}
	step, rest := steps[0], steps[1:]

	if step.isIndex {
		if v == nil || v.Kind() != KindArray {
			return v, nil
		}
		arr := v.Items()
		if step.index < 0 || step.index >= len(arr) {
			return v, nil
		}
		if len(rest) == 0 {
			out := append([]*Value(nil), arr[:step.index]...)
			out = append(out, arr[step.index+1:]...)
			return Array(out), nil
		}
		newChild, err := delAtPath(arr[step.index], rest)
		if err != nil {
			return nil, err
		}
		out := append([]*Value(nil), arr...)
		out[step.index] = newChild
		return Array(out), nil
	}

	if v == nil || v.Kind() != KindObject {
		return v, nil
	}
	child, ok := v.Get(step.field)
	if !ok {
		return v, nil
	}
	obj := v.obj.clone()
	if len(rest) == 0 {
		obj.delete(step.field)
		return &Value{kind: KindObject, obj: obj}, nil
	}
	newChild, err := delAtPath(child, rest)
	if err != nil {
		return nil, err
	}
	obj.set(step.field, newChild)
	return &Value{kind: KindObject, obj: obj}, nil
}

// pathValue renders steps as the jq-visible array-of-keys form used by
// paths()/leaf_paths(): strings for field steps, numbers for index steps.
func pathValue(steps []pathStep) *Value {
	items := make([]*Value, len(steps))
	for i, s := range steps {
		if s.isIndex {
			items[i] = Number(float64(s.index))
		} else {
			items[i] = String(s.field)
		}
	}
	return Array(items)
}

// collectPaths walks v in pre-order, returning the path (as []pathStep)
// to every sub-value below the root, or, if leavesOnly is set, to every
// such sub-value that has no children of its own. The root's own
// (empty) path is never included, matching jq's `paths`/`leaf_paths`.
func collectPaths(v *Value, leavesOnly bool) [][]pathStep {
	var out [][]pathStep
	var walk func(*Value, []pathStep)
	walk = func(x *Value, prefix []pathStep) {
		if len(prefix) > 0 {
			isLeaf := x == nil || (x.Kind() != KindArray && x.Kind() != KindObject)
			if !leavesOnly || isLeaf {
				out = append(out, prefix)
			}
		}
		switch x.Kind() {
		case KindArray:
			for i, e := range x.Items() {
				walk(e, append(append([]pathStep(nil), prefix...), pathStep{isIndex: true, index: i}))
			}
		case KindObject:
			for _, k := range x.Keys() {
				val, _ := x.Get(k)
				walk(val, append(append([]pathStep(nil), prefix...), pathStep{field: k}))
			}
		}
	}
	walk(v, nil)
	return out
}
