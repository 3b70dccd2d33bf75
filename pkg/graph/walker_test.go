package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/dist"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/graph"
)

func normalCall(mean, sd ast.Node) *ast.Call {
	return &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{mean, sd}}
}

// TestSimpleObserveChain mirrors spec.md scenario S2: a sample feeding an
// observe produces one sampled Vertex and one observed Vertex ancestored on
// it, with no condition nodes.
func TestSimpleObserveChain(t *testing.T) {
	program := ast.MakeBody(
		&ast.Def{Name: "x1", Value: &ast.Sample{Dist: normalCall(ast.NewInt(0), ast.NewInt(1))}},
		&ast.Observe{Dist: normalCall(&ast.Symbol{Name: "x1"}, ast.NewInt(1)), Value: ast.NewInt(2)},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	g := f.Graph()
	require.Len(t, g.Vertices, 2)
	assert.False(t, g.Vertices[0].Observed)
	assert.Equal(t, "Normal", g.Vertices[0].DistName)
	assert.True(t, g.Vertices[1].Observed)
	assert.Equal(t, "2", g.Vertices[1].ObservationCode)
	assert.ElementsMatch(t, []graph.VertexHandle{0}, g.Vertices[1].Ancestors)
	assert.Empty(t, g.Conditions)
}

// TestBranchGuardsBothObserves mirrors S3: an If over a sampled Bernoulli
// produces one ConditionNode and two observed Vertices guarded by opposite
// truth values of that same condition.
func TestBranchGuardsBothObserves(t *testing.T) {
	program := ast.MakeBody(
		&ast.Def{Name: "p1", Value: &ast.Sample{Dist: &ast.Call{Function: &ast.Symbol{Name: "Bernoulli"}, Args: []ast.Node{ast.NewFloat(0.5)}}}},
		&ast.If{
			Test:     &ast.Compare{Left: &ast.Symbol{Name: "p1"}, Op: ast.CmpEq, Right: ast.NewInt(1)},
			IfNode:   &ast.Observe{Dist: normalCall(ast.NewInt(0), ast.NewInt(1)), Value: ast.NewInt(0)},
			ElseNode: &ast.Observe{Dist: normalCall(ast.NewInt(1), ast.NewInt(1)), Value: ast.NewInt(0)},
		},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	g := f.Graph()
	require.Len(t, g.Conditions, 1)
	require.Len(t, g.Vertices, 3)

	sampled, yTrue, yFalse := g.Vertices[0], g.Vertices[1], g.Vertices[2]
	assert.False(t, sampled.Observed)
	require.Len(t, yTrue.Conditions, 1)
	assert.Equal(t, graph.ConditionHandle(0), yTrue.Conditions[0].Cond)
	assert.True(t, yTrue.Conditions[0].Truth)
	require.Len(t, yFalse.Conditions, 1)
	assert.False(t, yFalse.Conditions[0].Truth)

	assert.Contains(t, sampled.DependentConditions, graph.ConditionHandle(0))
}

// TestLargeVectorHoistedOnce mirrors S4: a vector literal longer than three
// elements, bound once and referenced twice, is hoisted into a single
// DataNode shared by both references.
func TestLargeVectorHoistedOnce(t *testing.T) {
	vec := &ast.ValueVector{Items: []ast.Node{ast.NewInt(1), ast.NewInt(2), ast.NewInt(3), ast.NewInt(4)}}
	program := ast.MakeBody(
		&ast.Def{Name: "big", Value: vec},
		&ast.Observe{Dist: normalCall(&ast.Symbol{Name: "big"}, ast.NewInt(1)), Value: ast.NewInt(0)},
		&ast.Observe{Dist: normalCall(&ast.Symbol{Name: "big"}, ast.NewInt(1)), Value: ast.NewInt(1)},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	g := f.Graph()
	require.Len(t, g.Data, 1)
	require.Len(t, g.Vertices, 2)
	assert.ElementsMatch(t, []graph.DataHandle{0}, g.Vertices[0].Data)
	assert.ElementsMatch(t, []graph.DataHandle{0}, g.Vertices[1].Data)
}

// TestDependentConditionsPropagateTransitively exercises property 5: a
// vertex created downstream of a condition's own ancestor inherits that
// condition in its DependentConditions even though the condition's test
// never mentions the downstream vertex directly.
func TestDependentConditionsPropagateTransitively(t *testing.T) {
	program := ast.MakeBody(
		&ast.Def{Name: "p1", Value: &ast.Sample{Dist: normalCall(ast.NewInt(0), ast.NewInt(1))}},
		&ast.If{
			Test:   &ast.Compare{Left: &ast.Symbol{Name: "p1"}, Op: ast.CmpGt, Right: ast.NewInt(0)},
			IfNode: &ast.Def{Name: "z1", Value: &ast.Sample{Dist: normalCall(&ast.Symbol{Name: "p1"}, ast.NewInt(1))}},
		},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	g := f.Graph()
	require.Len(t, g.Conditions, 1)
	require.Len(t, g.Vertices, 2)
	z := g.Vertices[1]
	assert.Contains(t, z.DependentConditions, graph.ConditionHandle(0))
}

func TestUnresolvedForIsInternalError(t *testing.T) {
	program := &ast.For{Targets: []string{"i"}, Source: &ast.ValueVector{Items: []ast.Node{ast.NewInt(0)}}, Body: ast.NewNull()}
	f := graph.NewFactory(nil)
	_, err := graph.Build(program, f)
	require.Error(t, err)
	assert.True(t, ferr.Is(err, ferr.Internal))
}

func TestComputeOrderMatchesCreationOrder(t *testing.T) {
	program := ast.MakeBody(
		&ast.Def{Name: "p1", Value: &ast.Sample{Dist: normalCall(ast.NewInt(0), ast.NewInt(1))}},
		&ast.Observe{Dist: normalCall(&ast.Symbol{Name: "p1"}, ast.NewInt(1)), Value: ast.NewInt(0)},
	)
	f := graph.NewFactory(nil)
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	order := f.Graph().ComputeOrder()
	require.Len(t, order, 2)
	assert.Equal(t, graph.KindVertex, order[0].Kind())
	assert.Equal(t, graph.KindVertex, order[1].Kind())
	assert.Equal(t, "x30001", order[0].Name())
	assert.Equal(t, "y30002", order[1].Name())
}
