package optimizer

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
)

func (o *Optimizer) rewriteVector(v *ast.Vector, e *env) (ast.Node, bool, error) {
	items := make([]ast.Node, len(v.Items))
	changed := false
	for i, it := range v.Items {
		rw, c, err := o.step(it, e)
		if err != nil {
			return nil, false, err
		}
		items[i] = rw
		changed = changed || c
	}
	allLiteral := true
	for _, it := range items {
		if it.Tag() != ast.TagValue && it.Tag() != ast.TagValueVector {
			allLiteral = false
			break
		}
	}
	if allLiteral {
		return &ast.ValueVector{Items: items}, true, nil
	}
	if changed {
		return &ast.Vector{Items: items}, true, nil
	}
	return v, false, nil
}

func (o *Optimizer) rewriteDict(v *ast.Dict, e *env) (ast.Node, bool, error) {
	entries := make([]ast.DictEntry, len(v.Entries))
	changed := false
	for i, ent := range v.Entries {
		val, c, err := o.step(ent.Value, e)
		if err != nil {
			return nil, false, err
		}
		entries[i] = ast.DictEntry{Key: ent.Key, Value: val}
		changed = changed || c
	}
	if !changed {
		return v, false, nil
	}
	nn := *v
	nn.Entries = entries
	return &nn, true, nil
}

// rewriteSubscript folds Dict[k] with a constant key (honoring a default if
// the key is absent) and Subscript of a known-length sequence by a constant
// index.
func (o *Optimizer) rewriteSubscript(v *ast.Subscript, e *env) (ast.Node, bool, error) {
	base, c1, err := o.step(v.Base, e)
	if err != nil {
		return nil, false, err
	}
	index, c2, err := o.step(v.Index, e)
	if err != nil {
		return nil, false, err
	}
	var def ast.Node
	c3 := false
	if v.Default != nil {
		def, c3, err = o.step(v.Default, e)
		if err != nil {
			return nil, false, err
		}
	}
	changed := c1 || c2 || c3

	if dict, ok := base.(*ast.Dict); ok {
		if key, ok := asValue(index); ok {
			if val, found := lookupDict(dict, key); found {
				return val, true, nil
			}
			if def != nil {
				return def, true, nil
			}
			return nil, false, ferr.At(ferr.NameError, v.Pos(), "dict has no key %v and no default given", literalGo(key))
		}
	}

	if items, ok := asVector(base); ok {
		if idx, ok := intLiteral(index); ok {
			i := normalizeIndex(idx, len(items))
			if i >= 0 && i < len(items) {
				return items[i], true, nil
			}
		}
	}

	if changed {
		nn := *v
		nn.Base, nn.Index, nn.Default = base, index, def
		return &nn, true, nil
	}
	return v, false, nil
}

func lookupDict(d *ast.Dict, key *ast.Value) (ast.Node, bool) {
	for _, ent := range d.Entries {
		if valuesEqual(ent.Key, key) {
			return ent.Value, true
		}
	}
	return nil, false
}

func valuesEqual(a, b *ast.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ast.ValInt:
		return a.Int == b.Int
	case ast.ValFloat:
		return a.Flt == b.Flt
	case ast.ValBool:
		return a.Bool == b.Bool
	case ast.ValString:
		return a.Str == b.Str
	default:
		return true
	}
}

func literalGo(v *ast.Value) any {
	switch v.Kind {
	case ast.ValInt:
		return v.Int
	case ast.ValFloat:
		return v.Flt
	case ast.ValBool:
		return v.Bool
	case ast.ValString:
		return v.Str
	default:
		return nil
	}
}

func normalizeIndex(idx int64, n int) int {
	if idx < 0 {
		return int(idx) + n
	}
	return int(idx)
}

// rewriteSlice folds a Slice of a known-length sequence with constant
// (or absent) start/stop, per spec.md §4.2 "slice (with absent step only)".
func (o *Optimizer) rewriteSlice(v *ast.Slice, e *env) (ast.Node, bool, error) {
	base, c1, err := o.step(v.Base, e)
	if err != nil {
		return nil, false, err
	}
	var start, stop ast.Node
	c2, c3 := false, false
	if v.Start != nil {
		start, c2, err = o.step(v.Start, e)
		if err != nil {
			return nil, false, err
		}
	}
	if v.Stop != nil {
		stop, c3, err = o.step(v.Stop, e)
		if err != nil {
			return nil, false, err
		}
	}
	changed := c1 || c2 || c3

	if items, ok := asVector(base); ok {
		startOK, stopOK := v.Start == nil, v.Stop == nil
		s, stopv := 0, len(items)
		if !startOK {
			if n, ok := intLiteral(start); ok {
				s = clampIndex(normalizeIndex(n, len(items)), len(items))
				startOK = true
			}
		}
		if !stopOK {
			if n, ok := intLiteral(stop); ok {
				stopv = clampIndex(normalizeIndex(n, len(items)), len(items))
				stopOK = true
			}
		}
		if startOK && stopOK {
			if s > stopv {
				s = stopv
			}
			return ast.MakeVector(append([]ast.Node{}, items[s:stopv]...)), true, nil
		}
	}

	if changed {
		nn := *v
		nn.Base, nn.Start, nn.Stop = base, start, stop
		return &nn, true, nil
	}
	return v, false, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// rewriteCall folds the Lisp surface's sequence-primitive Calls
// (first/second/last/rest/nth/get/take/drop/conj/cons/concat/range)
// against a known-length sequence, and lowers a constant-`k` `range(k)`
// call into a ValueVector.
func (o *Optimizer) rewriteCall(v *ast.Call, e *env) (ast.Node, bool, error) {
	fn, cf, err := o.step(v.Function, e)
	if err != nil {
		return nil, false, err
	}
	args := make([]ast.Node, len(v.Args))
	changed := cf
	for i, a := range v.Args {
		rw, c, err := o.step(a, e)
		if err != nil {
			return nil, false, err
		}
		args[i] = rw
		changed = changed || c
	}
	kwargs := make([]ast.KeywordArg, len(v.KeywordArgs))
	for i, kw := range v.KeywordArgs {
		val, c, err := o.step(kw.Value, e)
		if err != nil {
			return nil, false, err
		}
		kwargs[i] = ast.KeywordArg{Name: kw.Name, Value: val}
		changed = changed || c
	}

	if name, ok := builtinName(fn); ok && len(kwargs) == 0 {
		if node, ok, err := foldSequencePrimitive(name, args, v); err != nil {
			return nil, false, err
		} else if ok {
			return node, true, nil
		}
		if node, ok := o.foldDataLoad(name, args); ok {
			return node, true, nil
		}
	}

	if inlined, ok, err := o.inlineFunctionCall(fn, args, kwargs, v); err != nil {
		return nil, false, err
	} else if ok {
		return inlined, true, nil
	}

	if changed {
		nn := *v
		nn.Function, nn.Args, nn.KeywordArgs = fn, args, kwargs
		return &nn, true, nil
	}
	return v, false, nil
}

// foldDataLoad implements spec.md §6: a `load-data`/`load_data` call with a
// single string-literal argument is resolved through the configured
// DataLoader, if any, into an inline ValueVector of floats.
func (o *Optimizer) foldDataLoad(name string, args []ast.Node) (ast.Node, bool) {
	if o.loader == nil || (name != "load-data" && name != "load_data") || len(args) != 1 {
		return nil, false
	}
	lit, ok := asValue(args[0])
	if !ok || lit.Kind != ast.ValString {
		return nil, false
	}
	data, found := o.loader.Load(lit.Str)
	if !found {
		return nil, false
	}
	items := make([]ast.Node, len(data))
	for i, f := range data {
		items[i] = ast.NewFloat(f)
	}
	return &ast.ValueVector{Items: items}, true
}

func builtinName(fn ast.Node) (string, bool) {
	sym, ok := fn.(*ast.Symbol)
	if !ok {
		return "", false
	}
	return sym.Name, true
}

var sequencePrimitives = map[string]bool{
	"first": true, "second": true, "last": true, "rest": true, "nth": true,
	"get": true, "take": true, "drop": true, "conj": true, "cons": true,
	"concat": true, "range": true,
}

func foldSequencePrimitive(name string, args []ast.Node, p ast.Node) (ast.Node, bool, error) {
	if !sequencePrimitives[name] {
		return nil, false, nil
	}
	switch name {
	case "range":
		if len(args) != 1 {
			return nil, false, nil
		}
		k, ok := intLiteral(args[0])
		if !ok || k < 0 {
			return nil, false, nil
		}
		items := make([]ast.Node, k)
		for i := range items {
			items[i] = ast.NewInt(int64(i))
		}
		return &ast.ValueVector{Items: items}, true, nil

	case "first", "second", "last", "rest", "take", "drop", "nth", "get":
		items, ok := asVector(args[0])
		if !ok {
			return nil, false, nil
		}
		switch name {
		case "first":
			if len(items) == 0 {
				return nil, false, nil
			}
			return items[0], true, nil
		case "second":
			if len(items) < 2 {
				return nil, false, nil
			}
			return items[1], true, nil
		case "last":
			if len(items) == 0 {
				return nil, false, nil
			}
			return items[len(items)-1], true, nil
		case "rest":
			if len(items) == 0 {
				return &ast.ValueVector{}, true, nil
			}
			return ast.MakeVector(append([]ast.Node{}, items[1:]...)), true, nil
		case "nth", "get":
			if len(args) < 2 {
				return nil, false, nil
			}
			idx, ok := intLiteral(args[1])
			if !ok {
				return nil, false, nil
			}
			i := normalizeIndex(idx, len(items))
			if i < 0 || i >= len(items) {
				if name == "get" && len(args) == 3 {
					return args[2], true, nil
				}
				return nil, false, nil
			}
			return items[i], true, nil
		case "take":
			if len(args) < 2 {
				return nil, false, nil
			}
			n, ok := intLiteral(args[1])
			if !ok {
				return nil, false, nil
			}
			k := clampIndex(int(n), len(items))
			return ast.MakeVector(append([]ast.Node{}, items[:k]...)), true, nil
		case "drop":
			if len(args) < 2 {
				return nil, false, nil
			}
			n, ok := intLiteral(args[1])
			if !ok {
				return nil, false, nil
			}
			k := clampIndex(int(n), len(items))
			return ast.MakeVector(append([]ast.Node{}, items[k:]...)), true, nil
		}

	case "cons":
		if len(args) != 2 {
			return nil, false, nil
		}
		items, ok := asVector(args[1])
		if !ok {
			return nil, false, nil
		}
		return ast.MakeVector(append([]ast.Node{args[0]}, items...)), true, nil

	case "conj":
		if len(args) < 1 {
			return nil, false, nil
		}
		items, ok := asVector(args[0])
		if !ok {
			return nil, false, nil
		}
		return ast.MakeVector(append(append([]ast.Node{}, items...), args[1:]...)), true, nil

	case "concat":
		// spec.md §9 Open Questions: flatten one level, in order
		// (itertools.chain semantics), not the original's malformed
		// single-argument return.
		var out []ast.Node
		for _, a := range args {
			items, ok := asVector(a)
			if !ok {
				return nil, false, nil
			}
			out = append(out, items...)
		}
		return ast.MakeVector(out), true, nil
	}
	return nil, false, nil
}
