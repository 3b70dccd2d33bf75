package graph

import (
	"sort"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/utils"
)

// deps tracks, for a (sub)expression the walker has just visited, the set
// of Vertices and DataNodes it was built from. Splitting the two mirrors
// spec.md's Vertex fields ("set of ancestor Vertices" and, separately, "set
// of data-node dependencies"); original_source's single `parents: set`
// conflates both.
type deps struct {
	vertices map[VertexHandle]bool
	data     map[DataHandle]bool
}

func emptyDeps() deps {
	return deps{vertices: map[VertexHandle]bool{}, data: map[DataHandle]bool{}}
}

func unionDeps(a, b deps) deps {
	out := emptyDeps()
	for k := range a.vertices {
		out.vertices[k] = true
	}
	for k := range b.vertices {
		out.vertices[k] = true
	}
	for k := range a.data {
		out.data[k] = true
	}
	for k := range b.data {
		out.data[k] = true
	}
	return out
}

func (d deps) vertexList() []VertexHandle {
	out := make([]VertexHandle, 0, len(d.vertices))
	for v := range d.vertices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d deps) dataList() []DataHandle {
	out := make([]DataHandle, 0, len(d.data))
	for v := range d.data {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// condFrame is a single entry in the branch-condition stack maintained
// while walking an If, grounded on ppl_graph_generator.py's ConditionScope.
// The Python ConditionScope.switch_branch also handles unwrapping/wrapping
// a raw AstNode condition in `not`; that path is only reachable when a
// ConditionScope is built directly from a test expression rather than from
// an already-materialized ConditionNode, which visit_if never does (it
// always pushes the ConditionNode it just created). We drop that dead path
// and just flip the truth flag, which is the only branch the real call site
// ever exercises.
type condFrame struct {
	cond  ConditionHandle
	truth bool
}

// resultPair is what a Let/Def binding stores: the rewritten value
// expression together with the Vertex/DataNode set it was built from.
type resultPair struct {
	node ast.Node
	deps deps
}

// Walker is the scoped AST visitor that turns an optimized, SSA'd,
// condition-expanded program into a Graph, grounded on
// original_source/pyppl/backend/ppl_graph_generator.py's GraphGenerator.
// Because the AST reaching this pass is already alpha-unique (pkg/ssa's
// renaming guarantees no two bindings share a name) a single flat map
// stands in for the original's ScopedVisitor scope stack: nothing here
// ever needs to shadow or pop a binding.
type Walker struct {
	factory    *Factory
	scope      map[string]resultPair
	conditions utils.Stack[condFrame]
}

// NewWalker builds a Walker that populates factory's Graph.
func NewWalker(factory *Factory) *Walker {
	return &Walker{factory: factory, scope: map[string]resultPair{}}
}

// Build runs w over root, returning the rewritten tree (vertices/data-nodes
// replaced by Symbol references) and populating w's Graph as a side effect.
func Build(root ast.Node, factory *Factory) (ast.Node, error) {
	w := NewWalker(factory)
	out, _, err := w.visit(root)
	return out, err
}

func (w *Walker) enterCondition(c ConditionHandle) {
	w.conditions.Push(condFrame{cond: c, truth: true})
}

func (w *Walker) leaveCondition() { _, _ = w.conditions.Pop() }

func (w *Walker) switchCondition() {
	top, err := w.conditions.Pop()
	if err != nil {
		return
	}
	top.truth = !top.truth
	w.conditions.Push(top)
}

func (w *Walker) snapshotConditions() []ConditionRef {
	var out []ConditionRef
	w.conditions.Iterator()(func(f condFrame) bool {
		out = append(out, ConditionRef{Cond: f.cond, Truth: f.truth})
		return true
	})
	return out
}

func (w *Walker) visit(n ast.Node) (ast.Node, deps, error) {
	switch v := n.(type) {
	case *ast.Value:
		return v, emptyDeps(), nil
	case *ast.ValueVector:
		return w.visitValueVector(v)
	case *ast.Symbol:
		return w.visitSymbol(v)
	case *ast.Vector:
		return w.visitItems(v.Items, func(items []ast.Node) ast.Node { return ast.MakeVector(items) })
	case *ast.Dict:
		return w.visitDict(v)
	case *ast.Binary:
		return w.visitBinary(v)
	case *ast.Unary:
		return w.visitUnary(v)
	case *ast.Compare:
		return w.visitCompare(v)
	case *ast.Attribute:
		return nil, deps{}, ferr.New(ferr.Internal, "cannot compile attribute access %q at graph construction", v.Name)
	case *ast.Subscript:
		return w.visitSubscript(v)
	case *ast.Slice:
		return w.visitSlice(v)
	case *ast.Call:
		return w.visitCall(v)
	case *ast.If:
		return w.visitIf(v)
	case *ast.For:
		return nil, deps{}, ferr.New(ferr.Internal, "unresolved For reached graph construction; loops must be fully unrolled by pkg/optimizer")
	case *ast.ListFor:
		return nil, deps{}, ferr.New(ferr.Internal, "unresolved ListFor reached graph construction; loops must be fully unrolled by pkg/optimizer")
	case *ast.While:
		return nil, deps{}, ferr.New(ferr.Internal, "unresolved While reached graph construction; loops must be fully unrolled by pkg/optimizer")
	case *ast.Let:
		return w.visitLet(v)
	case *ast.Def:
		return w.visitDef(v)
	case *ast.Function:
		return nil, deps{}, ferr.New(ferr.Internal, "unresolved Function reached graph construction; calls must be fully inlined by pkg/optimizer")
	case *ast.Return:
		if v.Value == nil {
			return ast.NewNull(), emptyDeps(), nil
		}
		return w.visit(v.Value)
	case *ast.Break:
		return nil, deps{}, ferr.New(ferr.Internal, "unresolved Break reached graph construction")
	case *ast.Import:
		return ast.NewNull(), emptyDeps(), nil
	case *ast.Sample:
		return w.visitSample(v)
	case *ast.Observe:
		return w.visitObserve(v)
	case *ast.Body:
		return w.visitItems(v.Items, func(items []ast.Node) ast.Node { return ast.MakeBody(items) })
	default:
		return nil, deps{}, ferr.New(ferr.Internal, "unhandled node tag %s reached graph construction", n.Tag())
	}
}

func (w *Walker) visitValueVector(v *ast.ValueVector) (ast.Node, deps, error) {
	if len(v.Items) > 3 {
		handle := w.factory.CreateDataNode(ast.Print(v))
		d := emptyDeps()
		d.data[handle] = true
		return &ast.Symbol{Name: w.factory.Graph().DataOf(handle).Name()}, d, nil
	}
	return v, emptyDeps(), nil
}

func (w *Walker) visitSymbol(v *ast.Symbol) (ast.Node, deps, error) {
	if bound, ok := w.scope[v.Name]; ok {
		return bound.node, bound.deps, nil
	}
	return nil, deps{}, ferr.New(ferr.NameError, "symbol not found during graph construction: %q", v.Name)
}

func (w *Walker) visitItems(items []ast.Node, rebuild func([]ast.Node) ast.Node) (ast.Node, deps, error) {
	out := make([]ast.Node, len(items))
	total := emptyDeps()
	for i, it := range items {
		node, d, err := w.visit(it)
		if err != nil {
			return nil, deps{}, err
		}
		out[i] = node
		total = unionDeps(total, d)
	}
	return rebuild(out), total, nil
}

func (w *Walker) visitDict(v *ast.Dict) (ast.Node, deps, error) {
	entries := make([]ast.DictEntry, len(v.Entries))
	total := emptyDeps()
	for i, e := range v.Entries {
		value, d, err := w.visit(e.Value)
		if err != nil {
			return nil, deps{}, err
		}
		entries[i] = ast.DictEntry{Key: e.Key, Value: value}
		total = unionDeps(total, d)
	}
	return &ast.Dict{Entries: entries}, total, nil
}

func (w *Walker) visitBinary(v *ast.Binary) (ast.Node, deps, error) {
	left, ld, err := w.visit(v.Left)
	if err != nil {
		return nil, deps{}, err
	}
	right, rd, err := w.visit(v.Right)
	if err != nil {
		return nil, deps{}, err
	}
	return &ast.Binary{Op: v.Op, Left: left, Right: right}, unionDeps(ld, rd), nil
}

func (w *Walker) visitUnary(v *ast.Unary) (ast.Node, deps, error) {
	item, d, err := w.visit(v.Item)
	if err != nil {
		return nil, deps{}, err
	}
	return &ast.Unary{Op: v.Op, Item: item}, d, nil
}

func (w *Walker) visitCompare(v *ast.Compare) (ast.Node, deps, error) {
	left, ld, err := w.visit(v.Left)
	if err != nil {
		return nil, deps{}, err
	}
	right, rd, err := w.visit(v.Right)
	if err != nil {
		return nil, deps{}, err
	}
	total := unionDeps(ld, rd)
	if v.SecondRight == nil {
		return &ast.Compare{Left: left, Op: v.Op, Right: right}, total, nil
	}
	secondRight, sd, err := w.visit(v.SecondRight)
	if err != nil {
		return nil, deps{}, err
	}
	total = unionDeps(total, sd)
	return &ast.Compare{Left: left, Op: v.Op, Right: right, SecondOp: v.SecondOp, SecondRight: secondRight}, total, nil
}

func (w *Walker) visitSubscript(v *ast.Subscript) (ast.Node, deps, error) {
	base, bd, err := w.visit(v.Base)
	if err != nil {
		return nil, deps{}, err
	}
	index, id, err := w.visit(v.Index)
	if err != nil {
		return nil, deps{}, err
	}
	if idx, ok := index.(*ast.Value); ok && idx.Kind == ast.ValInt {
		if items, ok := literalItems(base); ok && idx.Int >= 0 && int(idx.Int) < len(items) {
			return w.visit(items[idx.Int])
		}
	}
	return &ast.Subscript{Base: base, Index: index}, unionDeps(bd, id), nil
}

func literalItems(n ast.Node) ([]ast.Node, bool) {
	switch v := n.(type) {
	case *ast.ValueVector:
		return v.Items, true
	case *ast.Vector:
		return v.Items, true
	default:
		return nil, false
	}
}

func (w *Walker) visitSlice(v *ast.Slice) (ast.Node, deps, error) {
	base, total, err := w.visit(v.Base)
	if err != nil {
		return nil, deps{}, err
	}
	var start, stop ast.Node
	if v.Start != nil {
		var d deps
		start, d, err = w.visit(v.Start)
		if err != nil {
			return nil, deps{}, err
		}
		total = unionDeps(total, d)
	}
	if v.Stop != nil {
		var d deps
		stop, d, err = w.visit(v.Stop)
		if err != nil {
			return nil, deps{}, err
		}
		total = unionDeps(total, d)
	}
	return &ast.Slice{Base: base, Start: start, Stop: stop}, total, nil
}

func (w *Walker) visitCall(v *ast.Call) (ast.Node, deps, error) {
	// node.function is never visited: by this stage it is always a bare
	// distribution or builtin name, never a FOPPL-bound symbol (user
	// functions are all inlined by pkg/optimizer before graph
	// construction runs). Keyword args are likewise passed through
	// unvisited, matching visit_call's own AstCall(node.function, args,
	// node.keywords) reconstruction.
	args, total, err := w.visitNodes(v.Args)
	if err != nil {
		return nil, deps{}, err
	}
	return &ast.Call{Function: v.Function, Args: args, KeywordArgs: v.KeywordArgs}, total, nil
}

func (w *Walker) visitNodes(items []ast.Node) ([]ast.Node, deps, error) {
	out := make([]ast.Node, len(items))
	total := emptyDeps()
	for i, it := range items {
		node, d, err := w.visit(it)
		if err != nil {
			return nil, deps{}, err
		}
		out[i] = node
		total = unionDeps(total, d)
	}
	return out, total, nil
}

func (w *Walker) visitDef(v *ast.Def) (ast.Node, deps, error) {
	value, d, err := w.visit(v.Value)
	if err != nil {
		return nil, deps{}, err
	}
	pair := resultPair{node: value, deps: d}
	if len(v.Names) > 0 {
		for _, name := range v.Names {
			w.scope[name] = pair
		}
	} else {
		w.scope[v.Name] = pair
	}
	return ast.NewNull(), emptyDeps(), nil
}

func (w *Walker) visitLet(v *ast.Let) (ast.Node, deps, error) {
	source, d, err := w.visit(v.Source)
	if err != nil {
		return nil, deps{}, err
	}
	w.scope[v.Target] = resultPair{node: source, deps: d}
	return w.visit(v.Body)
}

func (w *Walker) visitIf(v *ast.If) (ast.Node, deps, error) {
	test, tdeps, err := w.visit(v.Test)
	if err != nil {
		return nil, deps{}, err
	}
	condHandle := w.factory.CreateConditionNode(ast.Print(test), tdeps.vertexList())
	testSymbol := &ast.Symbol{Name: w.factory.Graph().Condition(condHandle).Name()}

	w.enterCondition(condHandle)
	aNode, aDeps, err := w.visit(v.IfNode)
	if err != nil {
		w.leaveCondition()
		return nil, deps{}, err
	}
	total := unionDeps(tdeps, aDeps)

	var bNode ast.Node
	if v.ElseNode != nil {
		w.switchCondition()
		var bDeps deps
		bNode, bDeps, err = w.visit(v.ElseNode)
		if err != nil {
			w.leaveCondition()
			return nil, deps{}, err
		}
		total = unionDeps(total, bDeps)
	}
	w.leaveCondition()

	return &ast.If{Test: testSymbol, IfNode: aNode, ElseNode: bNode}, total, nil
}

func (w *Walker) visitSample(v *ast.Sample) (ast.Node, deps, error) {
	distNode, d, err := w.visit(v.Dist)
	if err != nil {
		return nil, deps{}, err
	}
	handle := w.factory.CreateSampleVertex(VertexSpec{
		DistName:   distCallName(distNode),
		DistCode:   ast.Print(distNode),
		Ancestors:  d.vertexList(),
		Data:       d.dataList(),
		Conditions: w.snapshotConditions(),
	})
	out := emptyDeps()
	out.vertices[handle] = true
	return &ast.Symbol{Name: w.factory.Graph().Vertex(handle).Name()}, out, nil
}

func (w *Walker) visitObserve(v *ast.Observe) (ast.Node, deps, error) {
	distNode, dd, err := w.visit(v.Dist)
	if err != nil {
		return nil, deps{}, err
	}
	valueNode, vd, err := w.visit(v.Value)
	if err != nil {
		return nil, deps{}, err
	}
	total := unionDeps(dd, vd)
	handle := w.factory.CreateObserveVertex(VertexSpec{
		DistName:   distCallName(distNode),
		DistCode:   ast.Print(distNode),
		Ancestors:  total.vertexList(),
		Data:       total.dataList(),
		Conditions: w.snapshotConditions(),
	}, ast.Print(valueNode))
	// An observed vertex's result is never itself a dependency of later
	// expressions (original_source returns an empty parent set here):
	// observe has no FOPPL-visible value, only a side effect on the graph.
	return &ast.Symbol{Name: w.factory.Graph().Vertex(handle).Name()}, emptyDeps(), nil
}

// distCallName extracts the distribution name from a Call's function
// symbol (`Normal(0, 1)` -> "Normal"); anything else classifies as unknown
// in the registry.
func distCallName(n ast.Node) string {
	call, ok := n.(*ast.Call)
	if !ok {
		return ""
	}
	sym, ok := call.Function.(*ast.Symbol)
	if !ok {
		return ""
	}
	return sym.Name
}
