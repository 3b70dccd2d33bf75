package graph

import (
	"fmt"

	"foppl.dev/compiler/pkg/dist"
)

// Factory mints graph nodes with auto-generated names and appends them to
// its Graph's arena, grounded on
// original_source/pyppl/backend/ppl_graph_factory.py's GraphFactory. A
// single counter (seeded at 30000, matching the original) backs every
// prefix so that, regardless of node kind, names sort into creation order
// (graph invariant c).
type Factory struct {
	graph    *Graph
	counter  int
	registry *dist.Registry
}

// NewFactory builds a Factory backed by a fresh Graph. A nil registry falls
// back to dist.DefaultRegistry().
func NewFactory(registry *dist.Registry) *Factory {
	if registry == nil {
		registry = dist.DefaultRegistry()
	}
	return &Factory{graph: newGraph(), counter: 30000, registry: registry}
}

// Graph returns the arena this factory has been populating.
func (f *Factory) Graph() *Graph { return f.graph }

func (f *Factory) nextName(prefix string) string {
	f.counter++
	return fmt.Sprintf("%s%d", prefix, f.counter)
}

// CreateConditionNode builds a ConditionNode from a rendered test
// expression and the Vertices it reads. Every ancestor vertex records the
// new condition in its own DependentConditions (spec.md §3: "when created,
// every ancestral Vertex records this condition in its dependent_conditions").
func (f *Factory) CreateConditionNode(code string, ancestors []VertexHandle) ConditionHandle {
	node := &ConditionNode{NodeName: f.nextName("cond_"), Code: code, Ancestors: ancestors}
	idx := len(f.graph.Conditions)
	f.graph.Conditions = append(f.graph.Conditions, node)
	handle := ConditionHandle(idx)
	f.graph.order = append(f.graph.order, orderEntry{kind: KindCondition, idx: idx})
	for _, a := range ancestors {
		f.addDependentCondition(a, handle)
	}
	return handle
}

// CreateDataNode hoists a rendered literal vector into a DataNode. The
// original never attaches ancestors to data nodes (visit_value_vector
// always passes an empty parent set), which we keep: a literal can't
// depend on a Vertex by construction.
func (f *Factory) CreateDataNode(code string) DataHandle {
	node := &DataNode{NodeName: f.nextName("data_")}
	node.Code = code
	idx := len(f.graph.Data)
	f.graph.Data = append(f.graph.Data, node)
	f.graph.order = append(f.graph.order, orderEntry{kind: KindData, idx: idx})
	return DataHandle(idx)
}

// VertexSpec collects the fields shared by CreateSampleVertex and
// CreateObserveVertex.
type VertexSpec struct {
	DistName  string
	DistCode  string
	Ancestors []VertexHandle
	Data      []DataHandle
	Conditions []ConditionRef
	SampleSize int
}

// CreateSampleVertex allocates a sampled Vertex (name prefix "x").
func (f *Factory) CreateSampleVertex(spec VertexSpec) VertexHandle {
	return f.createVertex(spec, false, "")
}

// CreateObserveVertex allocates an observed Vertex (name prefix "y"),
// recording the rendered observation expression.
func (f *Factory) CreateObserveVertex(spec VertexSpec, observationCode string) VertexHandle {
	return f.createVertex(spec, true, observationCode)
}

func (f *Factory) createVertex(spec VertexSpec, observed bool, observationCode string) VertexHandle {
	prefix := "x"
	if observed {
		prefix = "y"
	}
	sampleSize := spec.SampleSize
	if sampleSize == 0 {
		sampleSize = 1
	}
	v := &Vertex{
		NodeName:        f.nextName(prefix),
		Ancestors:       spec.Ancestors,
		Data:            spec.Data,
		DistName:        spec.DistName,
		DistCode:        spec.DistCode,
		Class:           f.registry.ClassOf(spec.DistName),
		Observed:        observed,
		ObservationCode: observationCode,
		Conditions:      spec.Conditions,
		SampleSize:      sampleSize,
	}
	idx := len(f.graph.Vertices)
	f.graph.Vertices = append(f.graph.Vertices, v)
	handle := VertexHandle(idx)
	f.graph.order = append(f.graph.order, orderEntry{kind: KindVertex, idx: idx})

	// A fresh vertex transitively depends on whatever conditions its own
	// ancestors already depend on (spec.md §8 property 5: "for every
	// ConditionNode c and every Vertex v whose ancestor-closure contains
	// an ancestor of c, c is in v.dependent_conditions"). Ancestors were
	// all created earlier, so their DependentConditions sets are already
	// final by the time this runs.
	v.DependentConditions = f.unionDependentConditions(spec.Ancestors)
	return handle
}

func (f *Factory) addDependentCondition(v VertexHandle, c ConditionHandle) {
	vertex := f.graph.Vertices[v]
	for _, existing := range vertex.DependentConditions {
		if existing == c {
			return
		}
	}
	vertex.DependentConditions = append(vertex.DependentConditions, c)
}

func (f *Factory) unionDependentConditions(ancestors []VertexHandle) []ConditionHandle {
	seen := map[ConditionHandle]bool{}
	var out []ConditionHandle
	for _, a := range ancestors {
		for _, c := range f.graph.Vertices[a].DependentConditions {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
