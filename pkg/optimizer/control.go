package optimizer

import (
	"fmt"

	"foppl.dev/compiler/pkg/ast"
)

// rewriteIf implements spec.md §4.4's If-collapsing cascade: a
// statically-known test picks its branch outright; a leading `not` swaps
// the arms instead of collapsing; structurally identical arms collapse to
// one; an If straddling a same-distribution Observe or a same-function
// Call is lifted so the branching moves to the leaf argument instead of
// duplicating the Observe/Call.
func (o *Optimizer) rewriteIf(v *ast.If, e *env) (ast.Node, bool, error) {
	test, c1, err := o.step(v.Test, e)
	if err != nil {
		return nil, false, err
	}
	ifNode, c2, err := o.step(v.IfNode, e)
	if err != nil {
		return nil, false, err
	}
	var elseNode ast.Node
	c3 := false
	if v.ElseNode != nil {
		elseNode, c3, err = o.step(v.ElseNode, e)
		if err != nil {
			return nil, false, err
		}
	}
	changed := c1 || c2 || c3

	if tv, ok := asValue(test); ok {
		if tv.IsTruthy() {
			return ifNode, true, nil
		}
		if elseNode != nil {
			return elseNode, true, nil
		}
		return &ast.Body{}, true, nil
	}

	if inner, ok := test.(*ast.Unary); ok && inner.Op == ast.OpNot && elseNode != nil {
		return &ast.If{Test: inner.Item, IfNode: elseNode, ElseNode: ifNode}, true, nil
	}

	if elseNode != nil && nodeEqual(ifNode, elseNode) {
		return ifNode, true, nil
	}

	if elseNode != nil {
		if lifted, ok := liftObserve(test, ifNode, elseNode); ok {
			return lifted, true, nil
		}
		if lifted, ok := liftCall(test, ifNode, elseNode); ok {
			return lifted, true, nil
		}
	}

	if changed {
		nn := *v
		nn.Test, nn.IfNode, nn.ElseNode = test, ifNode, elseNode
		return &nn, true, nil
	}
	return v, false, nil
}

// liftObserve rewrites If(t, Observe(d, a), Observe(d, b)) — same
// distribution on both arms — into Observe(d, If(t, a, b)), so the
// distribution reaches an atomic leaf per spec.md §7's condition expansion.
func liftObserve(test, ifNode, elseNode ast.Node) (ast.Node, bool) {
	a, ok := ifNode.(*ast.Observe)
	if !ok {
		return nil, false
	}
	b, ok := elseNode.(*ast.Observe)
	if !ok {
		return nil, false
	}
	if !nodeEqual(a.Dist, b.Dist) {
		return nil, false
	}
	return &ast.Observe{Dist: a.Dist, Value: &ast.If{Test: test, IfNode: a.Value, ElseNode: b.Value}}, true
}

// liftCall rewrites If(t, f(a1..an), f(b1..bn)) — same callee on both arms —
// into f(If(t,a1,b1), .., If(t,an,bn)), per argument.
func liftCall(test, ifNode, elseNode ast.Node) (ast.Node, bool) {
	a, ok := ifNode.(*ast.Call)
	if !ok {
		return nil, false
	}
	b, ok := elseNode.(*ast.Call)
	if !ok {
		return nil, false
	}
	if !nodeEqual(a.Function, b.Function) || len(a.Args) != len(b.Args) || len(a.KeywordArgs) != 0 || len(b.KeywordArgs) != 0 {
		return nil, false
	}
	args := make([]ast.Node, len(a.Args))
	for i := range a.Args {
		if nodeEqual(a.Args[i], b.Args[i]) {
			args[i] = a.Args[i]
			continue
		}
		args[i] = &ast.If{Test: test, IfNode: a.Args[i], ElseNode: b.Args[i]}
	}
	return &ast.Call{Function: a.Function, Args: args}, true
}

// nodeEqual is a conservative structural-equality check (ignoring source
// position) used only to decide whether two branches are safe to merge; it
// only recognizes the node shapes that actually arise as distributions or
// simple callee expressions, and reports false (i.e. "don't merge") for
// anything it doesn't understand.
func nodeEqual(a, b ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case *ast.Value:
		return valuesEqual(av, b.(*ast.Value))
	case *ast.Symbol:
		return av.Name == b.(*ast.Symbol).Name
	case *ast.Unary:
		bv := b.(*ast.Unary)
		return av.Op == bv.Op && nodeEqual(av.Item, bv.Item)
	case *ast.Binary:
		bv := b.(*ast.Binary)
		return av.Op == bv.Op && nodeEqual(av.Left, bv.Left) && nodeEqual(av.Right, bv.Right)
	case *ast.Call:
		bv := b.(*ast.Call)
		if !nodeEqual(av.Function, bv.Function) || len(av.Args) != len(bv.Args) || len(av.KeywordArgs) != len(bv.KeywordArgs) {
			return false
		}
		for i := range av.Args {
			if !nodeEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		for i := range av.KeywordArgs {
			if av.KeywordArgs[i].Name != bv.KeywordArgs[i].Name || !nodeEqual(av.KeywordArgs[i].Value, bv.KeywordArgs[i].Value) {
				return false
			}
		}
		return true
	case *ast.ValueVector:
		bv := b.(*ast.ValueVector)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !nodeEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// rewriteLet implements β-substitution: a source that is embeddable
// (spec.md §8 property 6) and referenced at most once is substituted
// directly into the body; otherwise the target is marked protected and the
// Let survives.
func (o *Optimizer) rewriteLet(v *ast.Let, e *env) (ast.Node, bool, error) {
	source, c1, err := o.step(v.Source, e)
	if err != nil {
		return nil, false, err
	}
	if !isMutatedIn(v.Body, v.Target) && isEmbeddable(source) {
		occ := countOccurrences(v.Body, v.Target)
		if occ <= 1 {
			ne := newEnv(e)
			ne.bindings[v.Target] = source
			body, _, err := o.step(v.Body, ne)
			if err != nil {
				return nil, false, err
			}
			return body, true, nil
		}
	}
	ne := newEnv(e)
	ne.protected[v.Target] = true
	body, c2, err := o.step(v.Body, ne)
	if err != nil {
		return nil, false, err
	}
	if c1 || c2 {
		nn := *v
		nn.Source, nn.Body = source, body
		return &nn, true, nil
	}
	return v, false, nil
}

// isMutatedIn reports whether body reassigns name via a non-global Def,
// which would make substituting an earlier value for later references
// unsound.
func isMutatedIn(body ast.Node, name string) bool {
	mutated := false
	ast.Walk(body, func(n ast.Node) {
		if def, ok := n.(*ast.Def); ok && !def.Global && def.Name == name {
			mutated = true
		}
	})
	return mutated
}

// rewriteFunction simplifies a function's body, protecting its parameters
// (and its vararg, if any) against substitution. The function's own name is
// not protected.
func (o *Optimizer) rewriteFunction(v *ast.Function, e *env) (ast.Node, bool, error) {
	ne := newEnv(e)
	for _, p := range v.Params {
		ne.protected[p.Name] = true
	}
	if v.Vararg != "" {
		ne.protected[v.Vararg] = true
	}
	body, changed, err := o.step(v.Body, ne)
	if err != nil {
		return nil, false, err
	}
	if changed {
		nn := *v
		nn.Body = body
		return &nn, true, nil
	}
	return v, false, nil
}

// inlineFunctionCall inlines a direct call to a known, fixed-arity,
// non-vararg, no-keyword-argument user function: each parameter becomes a
// Let binding around a hygienically alpha-renamed copy of the function
// body, with its trailing Return unwrapped to the body's value position.
func (o *Optimizer) inlineFunctionCall(fn ast.Node, args []ast.Node, kwargs []ast.KeywordArg, p ast.Node) (ast.Node, bool, error) {
	sym, ok := fn.(*ast.Symbol)
	if !ok {
		return nil, false, nil
	}
	def, ok := o.functions[sym.Name]
	if !ok || def.Vararg != "" || len(kwargs) != 0 || len(def.Params) != len(args) {
		return nil, false, nil
	}
	suffix := o.freshSuffix()
	rename := map[string]string{}
	for _, param := range def.Params {
		rename[param.Name] = fmt.Sprintf("%s$%d", param.Name, suffix)
	}
	collectBoundNames(def.Body, rename, suffix)
	body := alphaRename(def.Body, rename)
	body = unwrapReturn(body)

	result := body
	for i := len(def.Params) - 1; i >= 0; i-- {
		result = &ast.Let{Target: rename[def.Params[i].Name], Source: args[i], Body: result}
	}
	return result, true, nil
}

// collectBoundNames extends rename with a fresh mapping for every name the
// function body itself binds (Def/Let/For/ListFor targets), so that
// inlining the same function at two call sites never produces two
// definitions of the same mangled name.
func collectBoundNames(n ast.Node, rename map[string]string, suffix int) {
	ast.Walk(n, func(c ast.Node) {
		switch v := c.(type) {
		case *ast.Def:
			addRename(rename, v.Name, suffix)
			for _, nm := range v.Names {
				addRename(rename, nm, suffix)
			}
		case *ast.Let:
			addRename(rename, v.Target, suffix)
		case *ast.For:
			for _, t := range v.Targets {
				addRename(rename, t, suffix)
			}
		case *ast.ListFor:
			addRename(rename, v.Target, suffix)
		}
	})
}

func addRename(rename map[string]string, name string, suffix int) {
	if name == "" {
		return
	}
	if _, ok := rename[name]; !ok {
		rename[name] = fmt.Sprintf("%s$%d", name, suffix)
	}
}

// alphaRename returns a copy of n with every bound-name occurrence (Symbol
// references, and the binding-site names themselves) replaced per rename.
func alphaRename(n ast.Node, rename map[string]string) ast.Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *ast.Value, *ast.ValueVector, *ast.Break, *ast.Import:
		return n
	case *ast.Symbol:
		if nn, ok := rename[v.Name]; ok {
			cp := *v
			cp.Name = nn
			return &cp
		}
		return n
	case *ast.Def:
		cp := *v
		if nn, ok := rename[v.Name]; ok {
			cp.Name = nn
		}
		if v.Names != nil {
			names := make([]string, len(v.Names))
			for i, nm := range v.Names {
				names[i] = renameOr(rename, nm)
			}
			cp.Names = names
		}
		cp.Value = alphaRename(v.Value, rename)
		return &cp
	case *ast.Let:
		cp := *v
		cp.Target = renameOr(rename, v.Target)
		cp.Source = alphaRename(v.Source, rename)
		cp.Body = alphaRename(v.Body, rename)
		return &cp
	case *ast.For:
		cp := *v
		targets := make([]string, len(v.Targets))
		for i, t := range v.Targets {
			targets[i] = renameOr(rename, t)
		}
		cp.Targets = targets
		cp.Source = alphaRename(v.Source, rename)
		cp.Body = alphaRename(v.Body, rename)
		return &cp
	case *ast.ListFor:
		cp := *v
		cp.Target = renameOr(rename, v.Target)
		cp.Source = alphaRename(v.Source, rename)
		cp.Expr = alphaRename(v.Expr, rename)
		cp.Filter = alphaRename(v.Filter, rename)
		return &cp
	case *ast.While:
		cp := *v
		cp.Test = alphaRename(v.Test, rename)
		cp.Body = alphaRename(v.Body, rename)
		return &cp
	case *ast.If:
		cp := *v
		cp.Test = alphaRename(v.Test, rename)
		cp.IfNode = alphaRename(v.IfNode, rename)
		cp.ElseNode = alphaRename(v.ElseNode, rename)
		return &cp
	case *ast.Binary:
		cp := *v
		cp.Left, cp.Right = alphaRename(v.Left, rename), alphaRename(v.Right, rename)
		return &cp
	case *ast.Unary:
		cp := *v
		cp.Item = alphaRename(v.Item, rename)
		return &cp
	case *ast.Compare:
		cp := *v
		cp.Left, cp.Right = alphaRename(v.Left, rename), alphaRename(v.Right, rename)
		cp.SecondRight = alphaRename(v.SecondRight, rename)
		return &cp
	case *ast.Vector:
		items := make([]ast.Node, len(v.Items))
		for i, it := range v.Items {
			items[i] = alphaRename(it, rename)
		}
		return &ast.Vector{Items: items}
	case *ast.Dict:
		entries := make([]ast.DictEntry, len(v.Entries))
		for i, ent := range v.Entries {
			entries[i] = ast.DictEntry{Key: ent.Key, Value: alphaRename(ent.Value, rename)}
		}
		return &ast.Dict{Entries: entries}
	case *ast.Attribute:
		cp := *v
		cp.Base = alphaRename(v.Base, rename)
		return &cp
	case *ast.Subscript:
		cp := *v
		cp.Base, cp.Index, cp.Default = alphaRename(v.Base, rename), alphaRename(v.Index, rename), alphaRename(v.Default, rename)
		return &cp
	case *ast.Slice:
		cp := *v
		cp.Base, cp.Start, cp.Stop = alphaRename(v.Base, rename), alphaRename(v.Start, rename), alphaRename(v.Stop, rename)
		return &cp
	case *ast.Call:
		cp := *v
		cp.Function = alphaRename(v.Function, rename)
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = alphaRename(a, rename)
		}
		cp.Args = args
		kwargs := make([]ast.KeywordArg, len(v.KeywordArgs))
		for i, kw := range v.KeywordArgs {
			kwargs[i] = ast.KeywordArg{Name: kw.Name, Value: alphaRename(kw.Value, rename)}
		}
		cp.KeywordArgs = kwargs
		return &cp
	case *ast.Function:
		cp := *v
		cp.Body = alphaRename(v.Body, rename)
		return &cp
	case *ast.Return:
		cp := *v
		cp.Value = alphaRename(v.Value, rename)
		return &cp
	case *ast.Sample:
		cp := *v
		cp.Dist = alphaRename(v.Dist, rename)
		return &cp
	case *ast.Observe:
		cp := *v
		cp.Dist, cp.Value = alphaRename(v.Dist, rename), alphaRename(v.Value, rename)
		return &cp
	case *ast.Body:
		items := make([]ast.Node, len(v.Items))
		for i, it := range v.Items {
			items[i] = alphaRename(it, rename)
		}
		return &ast.Body{Items: items}
	default:
		return n
	}
}

func renameOr(rename map[string]string, name string) string {
	if nn, ok := rename[name]; ok {
		return nn
	}
	return name
}

// unwrapReturn converts a function body's trailing Return into a plain
// value expression, since an inlined call site is itself in expression
// position.
func unwrapReturn(n ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Return:
		if v.Value == nil {
			return &ast.Body{}
		}
		return v.Value
	case *ast.Body:
		if len(v.Items) == 0 {
			return v
		}
		last := len(v.Items) - 1
		if ret, ok := v.Items[last].(*ast.Return); ok {
			items := append(append([]ast.Node{}, v.Items[:last]...), unwrapReturn(ret))
			return &ast.Body{Items: items}
		}
		return v
	default:
		return n
	}
}
