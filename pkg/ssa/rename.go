package ssa

import (
	"fmt"
	"strconv"

	"foppl.dev/compiler/pkg/ast"
)

// symbolInfo tracks how many SSA instances a source name has been given so
// far; the first instance keeps the bare name, later ones get a numeric
// suffix, mirroring Symbol.get_new_instance in the original.
type symbolInfo struct {
	name    string
	counter int
}

func (s *symbolInfo) newInstance() string {
	s.counter++
	return s.currentInstance()
}

func (s *symbolInfo) currentInstance() string {
	if s.counter <= 1 {
		return s.name
	}
	return s.name + strconv.Itoa(s.counter)
}

// symbolScope maps a source name to its current SSA instance name within a
// lexical level; lookups fall through to the enclosing scope.
type symbolScope struct {
	prev     *symbolScope
	bindings map[string]string
}

func newSymbolScope(prev *symbolScope) *symbolScope {
	return &symbolScope{prev: prev, bindings: map[string]string{}}
}

func (s *symbolScope) get(name string) string {
	for cur := s; cur != nil; cur = cur.prev {
		if inst, ok := cur.bindings[name]; ok {
			return inst
		}
	}
	return name
}

func (s *symbolScope) has(name string) bool {
	for cur := s; cur != nil; cur = cur.prev {
		if _, ok := cur.bindings[name]; ok {
			return true
		}
	}
	return false
}

func (s *symbolScope) set(name, instance string) { s.bindings[name] = instance }

// renamer performs the static single assignment rename/phi-insertion pass.
type renamer struct {
	symbols map[string]*symbolInfo
	scope   *symbolScope
	tempSeq int
}

func newRenamer() *renamer {
	return &renamer{symbols: map[string]*symbolInfo{}, scope: newSymbolScope(nil)}
}

func (r *renamer) newSymbolInstance(name string) string {
	info, ok := r.symbols[name]
	if !ok {
		info = &symbolInfo{name: name}
		r.symbols[name] = info
	}
	result := info.newInstance()
	r.scope.set(name, result)
	return result
}

func (r *renamer) accessSymbol(name string) string { return r.scope.get(name) }
func (r *renamer) hasSymbol(name string) bool      { return r.scope.has(name) }

func (r *renamer) beginScope() { r.scope = newSymbolScope(r.scope) }

func (r *renamer) endScope() map[string]string {
	s := r.scope
	r.scope = s.prev
	return s.bindings
}

func (r *renamer) freshTemp() string {
	r.tempSeq++
	return fmt.Sprintf("t$%d", r.tempSeq)
}

// splitBody splits a possibly-multi-statement result into its leading
// "prefix" statements (hoisted side effects) and its final value, mirroring
// split_body/visit_and_split in the original: a Body of 0 items becomes a
// null value with no prefix, 1 item collapses to that item, and anything
// else splits at the last item.
func splitBody(n ast.Node) ([]ast.Node, ast.Node) {
	b, ok := n.(*ast.Body)
	if !ok {
		return nil, n
	}
	switch len(b.Items) {
	case 0:
		return nil, ast.NewNull()
	case 1:
		return nil, b.Items[0]
	default:
		return b.Items[:len(b.Items)-1], b.Items[len(b.Items)-1]
	}
}

func (r *renamer) visitSplit(n ast.Node) ([]ast.Node, ast.Node, error) {
	out, err := r.visit(n)
	if err != nil {
		return nil, nil, err
	}
	prefix, value := splitBody(out)
	return prefix, value, nil
}

func (r *renamer) visitInScope(n ast.Node) (map[string]string, ast.Node, error) {
	r.beginScope()
	out, err := r.visit(n)
	syms := r.endScope()
	if err != nil {
		return nil, nil, err
	}
	return syms, out, nil
}

func (r *renamer) visit(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.(type) {
	case *ast.Value, *ast.ValueVector, *ast.Break, *ast.Import:
		return n, nil

	case *ast.Symbol:
		name := r.accessSymbol(v.Name)
		if name == v.Name {
			return n, nil
		}
		cp := *v
		cp.Name = name
		return &cp, nil

	case *ast.Binary:
		return r.visitBinary(v)
	case *ast.Unary:
		return r.visitUnary(v)
	case *ast.Compare:
		return r.visitCompare(v)
	case *ast.Attribute:
		return r.visitAttribute(v)
	case *ast.Subscript:
		return r.visitSubscript(v)
	case *ast.Slice:
		return r.visitSlice(v)
	case *ast.Call:
		return r.visitCall(v)
	case *ast.Vector:
		return r.visitVector(v)
	case *ast.Dict:
		return r.visitDict(v)
	case *ast.If:
		return r.visitIf(v)
	case *ast.For:
		return r.visitFor(v)
	case *ast.ListFor:
		return r.visitListFor(v)
	case *ast.While:
		return r.visitWhile(v)
	case *ast.Let:
		return r.visitLet(v)
	case *ast.Def:
		return r.visitDef(v)
	case *ast.Function:
		// By the time SSA runs, the optimizer has inlined every call site;
		// a surviving Function Def is unreferenced and carries no runtime
		// value of its own, so it contributes nothing here.
		return &ast.Body{}, nil
	case *ast.Return:
		return r.visitReturn(v)
	case *ast.Sample:
		return r.visitSample(v)
	case *ast.Observe:
		return r.visitObserve(v)
	case *ast.Body:
		return r.visitBody(v)

	default:
		return n, nil
	}
}

func (r *renamer) visitBinary(node *ast.Binary) (ast.Node, error) {
	prefix, left, err := r.visitSplit(node.Left)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Left = left
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	prefix, right, err := r.visitSplit(node.Right)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Right = right
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Left, nn.Right = left, right
	return &nn, nil
}

func (r *renamer) visitUnary(node *ast.Unary) (ast.Node, error) {
	prefix, item, err := r.visitSplit(node.Item)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Item = item
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Item = item
	return &nn, nil
}

func (r *renamer) visitCompare(node *ast.Compare) (ast.Node, error) {
	prefix, left, err := r.visitSplit(node.Left)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Left = left
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	prefix, right, err := r.visitSplit(node.Right)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Right = right
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	var second ast.Node
	if node.SecondRight != nil {
		prefix, second, err = r.visitSplit(node.SecondRight)
		if err != nil {
			return nil, err
		}
		if prefix != nil {
			nn := *node
			nn.SecondRight = second
			return r.visit(ast.MakeBody(prefix, &nn))
		}
	}
	nn := *node
	nn.Left, nn.Right, nn.SecondRight = left, right, second
	return &nn, nil
}

func (r *renamer) visitAttribute(node *ast.Attribute) (ast.Node, error) {
	prefix, base, err := r.visitSplit(node.Base)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Base = base
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Base = base
	return &nn, nil
}

func (r *renamer) visitSubscript(node *ast.Subscript) (ast.Node, error) {
	prefix, base, err := r.visitSplit(node.Base)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Base = base
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	prefix, index, err := r.visitSplit(node.Index)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Index = index
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	var def ast.Node
	if node.Default != nil {
		prefix, def, err = r.visitSplit(node.Default)
		if err != nil {
			return nil, err
		}
		if prefix != nil {
			nn := *node
			nn.Default = def
			return r.visit(ast.MakeBody(prefix, &nn))
		}
	}
	nn := *node
	nn.Base, nn.Index, nn.Default = base, index, def
	return &nn, nil
}

func (r *renamer) visitSlice(node *ast.Slice) (ast.Node, error) {
	prefix, base, err := r.visitSplit(node.Base)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Base = base
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Base = base
	if node.Start != nil {
		start, err := r.visit(node.Start)
		if err != nil {
			return nil, err
		}
		nn.Start = start
	}
	if node.Stop != nil {
		stop, err := r.visit(node.Stop)
		if err != nil {
			return nil, err
		}
		nn.Stop = stop
	}
	return &nn, nil
}

func (r *renamer) visitCall(node *ast.Call) (ast.Node, error) {
	fn, err := r.visit(node.Function)
	if err != nil {
		return nil, err
	}
	var prefix []ast.Node
	args := make([]ast.Node, len(node.Args))
	for i, a := range node.Args {
		p, av, err := r.visitSplit(a)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, p...)
		args[i] = av
	}
	kwargs := make([]ast.KeywordArg, len(node.KeywordArgs))
	for i, kw := range node.KeywordArgs {
		p, kv, err := r.visitSplit(kw.Value)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, p...)
		kwargs[i] = ast.KeywordArg{Name: kw.Name, Value: kv}
	}
	nn := *node
	nn.Function, nn.Args, nn.KeywordArgs = fn, args, kwargs
	if len(prefix) > 0 {
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	return &nn, nil
}

func (r *renamer) visitVector(node *ast.Vector) (ast.Node, error) {
	var prefix []ast.Node
	items := make([]ast.Node, len(node.Items))
	for i, it := range node.Items {
		p, v, err := r.visitSplit(it)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, p...)
		items[i] = v
	}
	if len(prefix) > 0 {
		return r.visit(ast.MakeBody(prefix, ast.MakeVector(items)))
	}
	return ast.MakeVector(items), nil
}

func (r *renamer) visitDict(node *ast.Dict) (ast.Node, error) {
	var prefix []ast.Node
	entries := make([]ast.DictEntry, len(node.Entries))
	for i, ent := range node.Entries {
		p, v, err := r.visitSplit(ent.Value)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, p...)
		entries[i] = ast.DictEntry{Key: ent.Key, Value: v}
	}
	if len(prefix) > 0 {
		return r.visit(ast.MakeBody(prefix, &ast.Dict{Entries: entries}))
	}
	return &ast.Dict{Entries: entries}, nil
}

// visitIf is the renaming pass's centerpiece: it renames both branches in
// their own scopes, then — if either branch assigned a name still visible
// after the If — inserts a phi-Def per such name selecting between the
// branch-local instances (or the pre-If instance, for a name only one arm
// touched), per spec.md §7 "phi insertion".
func (r *renamer) visitIf(node *ast.If) (ast.Node, error) {
	prefix, test, err := r.visitSplit(node.Test)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Test = test
		return r.visit(ast.MakeBody(prefix, &nn))
	}

	if tv, ok := test.(*ast.Value); ok {
		if tv.IsTruthy() {
			return r.visit(node.IfNode)
		}
		if node.ElseNode != nil {
			return r.visit(node.ElseNode)
		}
		return &ast.Body{}, nil
	}

	ifSyms, ifNode, err := r.visitInScope(node.IfNode)
	if err != nil {
		return nil, err
	}
	var elseSyms map[string]string
	var elseNode ast.Node
	if node.ElseNode != nil {
		elseSyms, elseNode, err = r.visitInScope(node.ElseNode)
		if err != nil {
			return nil, err
		}
	} else {
		elseSyms = map[string]string{}
	}

	keys := unionKeys(ifSyms, elseSyms)
	if len(keys) == 0 {
		nn := *node
		nn.Test, nn.IfNode, nn.ElseNode = test, ifNode, elseNode
		return &nn, nil
	}

	var result []ast.Node
	if _, ok := test.(*ast.Symbol); !ok {
		tmp := r.freshTemp()
		result = append(result, &ast.Def{Name: tmp, Value: test})
		test = &ast.Symbol{Name: tmp}
	}
	nn := *node
	nn.Test, nn.IfNode, nn.ElseNode = test, ifNode, elseNode
	result = append(result, &nn)

	for _, key := range keys {
		leftName, leftOK := ifSyms[key]
		rightName, rightOK := elseSyms[key]
		switch {
		case leftOK && rightOK:
			result = append(result, phiDef(r.newSymbolInstance(key), test, leftName, rightName))
		case !r.hasSymbol(key):
			// neither arm's value is visible outside the If at all
		case leftOK:
			result = append(result, phiDef(r.newSymbolInstance(key), test, leftName, r.accessSymbol(key)))
		case rightOK:
			result = append(result, phiDef(r.newSymbolInstance(key), test, r.accessSymbol(key), rightName))
		}
	}
	return ast.MakeBody(result), nil
}

func phiDef(target string, test ast.Node, left, right string) ast.Node {
	return &ast.Def{Name: target, Value: &ast.If{Test: test, IfNode: &ast.Symbol{Name: left}, ElseNode: &ast.Symbol{Name: right}}}
}

func unionKeys(a, b map[string]string) []string {
	seen := map[string]bool{}
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func (r *renamer) visitFor(node *ast.For) (ast.Node, error) {
	prefix, source, err := r.visitSplit(node.Source)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Source = source
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	r.beginScope()
	for _, t := range node.Targets {
		r.newSymbolInstance(t)
	}
	body, err := r.visit(node.Body)
	r.endScope()
	if err != nil {
		return nil, err
	}
	nn := *node
	nn.Source, nn.Body = source, body
	return &nn, nil
}

func (r *renamer) visitListFor(node *ast.ListFor) (ast.Node, error) {
	prefix, source, err := r.visitSplit(node.Source)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Source = source
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	r.beginScope()
	r.newSymbolInstance(node.Target)
	expr, err := r.visit(node.Expr)
	if err != nil {
		r.endScope()
		return nil, err
	}
	var filter ast.Node
	if node.Filter != nil {
		filter, err = r.visit(node.Filter)
		if err != nil {
			r.endScope()
			return nil, err
		}
	}
	r.endScope()
	nn := *node
	nn.Source, nn.Expr, nn.Filter = source, expr, filter
	return &nn, nil
}

func (r *renamer) visitWhile(node *ast.While) (ast.Node, error) {
	prefix, test, err := r.visitSplit(node.Test)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Test = test
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	body, err := r.visit(node.Body)
	if err != nil {
		return nil, err
	}
	nn := *node
	nn.Test, nn.Body = test, body
	return &nn, nil
}

// visitLet desugars `let target = source in body` to `Def(target, source);
// body`, the shape the rest of this pass already knows how to rename.
func (r *renamer) visitLet(node *ast.Let) (ast.Node, error) {
	var result ast.Node
	if node.Target == "_" {
		result = ast.MakeBody(node.Source, node.Body)
	} else {
		result = ast.MakeBody(&ast.Def{Name: node.Target, Value: node.Source}, node.Body)
	}
	return r.visit(result)
}

func (r *renamer) visitDef(node *ast.Def) (ast.Node, error) {
	if obs, ok := node.Value.(*ast.Observe); ok {
		// An Observe carries no value a later Def could legally bind to;
		// keep only its effect.
		return r.visit(obs)
	}

	if sample, ok := node.Value.(*ast.Sample); ok {
		// A Def binding a Sample keeps its existing name rather than going
		// through newSymbolInstance: it is reached either directly (the
		// name is whatever the surrounding SSA rename already assigned)
		// or via visitSample's hoisting (the name is already a fresh,
		// globally-unique temporary). Renaming here would also misfire on
		// the re-visit a hoisted prefix statement gets once it is spliced
		// back into an enclosing Body.
		prefix, dist, err := r.visitSplit(sample.Dist)
		if err != nil {
			return nil, err
		}
		if prefix != nil {
			nn := *node
			nn.Value = &ast.Sample{Dist: dist}
			return r.visit(ast.MakeBody(prefix, &nn))
		}
		nn := *node
		nn.Value = &ast.Sample{Dist: dist}
		return &nn, nil
	}

	prefix, value, err := r.visitSplit(node.Value)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Value = value
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	if _, ok := value.(*ast.Function); ok {
		return &ast.Body{}, nil
	}

	name := r.newSymbolInstance(node.Name)
	nn := *node
	nn.Name, nn.Value = name, value
	return &nn, nil
}

func (r *renamer) visitReturn(node *ast.Return) (ast.Node, error) {
	if node.Value == nil {
		return node, nil
	}
	prefix, value, err := r.visitSplit(node.Value)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Value = value
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Value = value
	return &nn, nil
}

// visitSample hoists a bare Sample expression into a fresh temporary Def
// followed by a reference to it, so every remaining Sample in the tree sits
// directly under a Def (the shape pkg/graph's walker expects).
func (r *renamer) visitSample(node *ast.Sample) (ast.Node, error) {
	prefix, dist, err := r.visitSplit(node.Dist)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Dist = dist
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	tmp := r.freshTemp()
	nn := &ast.Sample{Dist: dist}
	return r.visit(ast.MakeBody(&ast.Def{Name: tmp, Value: nn}, &ast.Symbol{Name: tmp}))
}

func (r *renamer) visitObserve(node *ast.Observe) (ast.Node, error) {
	prefix, dist, err := r.visitSplit(node.Dist)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Dist = dist
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	prefix, value, err := r.visitSplit(node.Value)
	if err != nil {
		return nil, err
	}
	if prefix != nil {
		nn := *node
		nn.Dist, nn.Value = dist, value
		return r.visit(ast.MakeBody(prefix, &nn))
	}
	nn := *node
	nn.Dist, nn.Value = dist, value
	return &nn, nil
}

func (r *renamer) visitBody(node *ast.Body) (ast.Node, error) {
	var items []ast.Node
	for _, it := range node.Items {
		out, err := r.visit(it)
		if err != nil {
			return nil, err
		}
		if b, ok := out.(*ast.Body); ok {
			items = append(items, b.Items...)
		} else {
			items = append(items, out)
		}
	}
	return &ast.Body{Items: items}, nil
}
