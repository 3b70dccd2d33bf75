// Package graph builds the probabilistic graphical model spec.md §3/§4.6
// describes: Vertex, ConditionNode and DataNode entities linked into a DAG
// by a scoped AST walker. Grounded on original_source/pyppl/graphs.py (node
// shapes) and original_source/pyppl/backend/ppl_graph_factory.go's Python
// sibling, ppl_graph_factory.py (name generation, node bookkeeping).
//
// spec.md's Design Notes flag the node graph's back-references (a Vertex's
// DependentConditions points at ConditionNodes that themselves hold
// Ancestors pointing back at Vertices) as a cyclic-reference hazard, and
// prescribe "arena allocation with handles (indices) rather than owning
// pointers". We follow that: a Graph owns three slices, and every
// cross-reference is a small integer handle into one of them rather than a
// pointer, so nothing here can form a reference cycle for the garbage
// collector to chase.
package graph

import "foppl.dev/compiler/pkg/dist"

// VertexHandle, ConditionHandle and DataHandle index into a Graph's
// Vertices, Conditions and Data slices respectively. The zero value is a
// valid handle (index 0); absence is represented by a nil/empty slice of
// handles, never by a sentinel handle value.
type VertexHandle int
type ConditionHandle int
type DataHandle int

// Kind discriminates the three graph entity kinds for code that needs to
// range over all of them in compute order (pkg/codegen's assembly pass).
type Kind int

const (
	KindCondition Kind = iota
	KindData
	KindVertex
)

// Node is implemented by ConditionNode, DataNode and Vertex so callers that
// only need a name and a kind (compute-order iteration, pretty-printing)
// don't need to switch on the concrete type.
type Node interface {
	Name() string
	Kind() Kind
}

// ConditionNode is the boolean-valued intermediate spec.md §3 describes,
// built from an If's test expression. Ancestors are the Vertices the test
// expression itself reads from.
type ConditionNode struct {
	NodeName  string
	Code      string
	Ancestors []VertexHandle
}

func (c *ConditionNode) Name() string { return c.NodeName }
func (c *ConditionNode) Kind() Kind   { return KindCondition }

// DataNode holds a literal vector hoisted out of the code (spec.md §4.6:
// "Vector/ValueVector of length > 3 is hoisted into a DataNode").
type DataNode struct {
	NodeName string
	Code     string
}

func (d *DataNode) Name() string { return d.NodeName }
func (d *DataNode) Kind() Kind   { return KindData }

// ConditionRef pairs a ConditionNode with the truth-value a Vertex requires
// of it to be live, mirroring Python's (ConditionNode, bool) tuple.
type ConditionRef struct {
	Cond  ConditionHandle
	Truth bool
}

// Vertex is a stochastic variable: either a sampled draw (name prefix "x")
// or an observed one (name prefix "y"). Sampled and observed vertices share
// this one struct, distinguished by Observed.
type Vertex struct {
	NodeName     string
	OriginalName string

	// Ancestors holds only other Vertices (graph invariant a: "ancestors
	// contain only Vertices"). Data holds the DataNodes this vertex's
	// distribution/observation code references directly; spec.md lists
	// this as a field distinct from Ancestors, a distinction the Walker
	// (walker.go) keeps by tracking vertex-parents and data-parents as two
	// separate sets throughout (original_source's GraphFactory conflates
	// the two).
	Ancestors []VertexHandle
	Data      []DataHandle

	DistName string
	DistCode string
	Class    dist.Class

	Observed        bool
	ObservationCode string

	// Conditions is the (ConditionNode, truth) list this vertex is live
	// under; DependentConditions is the reverse edge, every ConditionNode
	// whose test expression transitively reads this vertex's value.
	Conditions           []ConditionRef
	DependentConditions  []ConditionHandle

	SampleSize int
}

func (v *Vertex) Name() string { return v.NodeName }
func (v *Vertex) Kind() Kind   { return KindVertex }

func (v *Vertex) IsConditional() bool { return len(v.Conditions) > 0 }

// Graph is the arena: every node the factory creates is appended to exactly
// one of these three slices and never removed, so a handle stays valid for
// the Graph's whole lifetime.
type Graph struct {
	Conditions []*ConditionNode
	Data       []*DataNode
	Vertices   []*Vertex

	// order records (kind, index) pairs in creation order; since names are
	// generated from one monotonically increasing counter (invariant c:
	// "node names sort by their numeric suffix to give a topological
	// compute order"), creation order already is compute order.
	order []orderEntry
}

type orderEntry struct {
	kind Kind
	idx  int
}

func newGraph() *Graph {
	return &Graph{}
}

func (g *Graph) Condition(h ConditionHandle) *ConditionNode { return g.Conditions[h] }
func (g *Graph) DataOf(h DataHandle) *DataNode              { return g.Data[h] }
func (g *Graph) Vertex(h VertexHandle) *Vertex               { return g.Vertices[h] }

// ComputeOrder returns every node in the Graph in the order the compute
// graph must execute them (graph invariant d: every ancestor appears
// earlier in the compute order).
func (g *Graph) ComputeOrder() []Node {
	out := make([]Node, 0, len(g.order))
	for _, e := range g.order {
		switch e.kind {
		case KindCondition:
			out = append(out, g.Conditions[e.idx])
		case KindData:
			out = append(out, g.Data[e.idx])
		case KindVertex:
			out = append(out, g.Vertices[e.idx])
		}
	}
	return out
}

// VertexClass selects a subset of vertices for Model.Vertices (spec.md §6:
// "iterate vertices by class (continuous, discrete, conditional, sampled,
// observed)").
type VertexClass int

const (
	ClassAll VertexClass = iota
	ClassContinuous
	ClassDiscrete
	ClassConditional
	ClassSampled
	ClassObserved
)

// VerticesByClass filters g.Vertices per VertexClass, preserving compute
// order.
func (g *Graph) VerticesByClass(class VertexClass) []*Vertex {
	out := make([]*Vertex, 0, len(g.Vertices))
	for _, v := range g.Vertices {
		if matchesClass(v, class) {
			out = append(out, v)
		}
	}
	return out
}

func matchesClass(v *Vertex, class VertexClass) bool {
	switch class {
	case ClassAll:
		return true
	case ClassContinuous:
		return v.Class == dist.Continuous
	case ClassDiscrete:
		return v.Class == dist.Discrete
	case ClassConditional:
		return v.IsConditional()
	case ClassSampled:
		return !v.Observed
	case ClassObserved:
		return v.Observed
	default:
		return false
	}
}
