package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foppl.dev/compiler/pkg/compiler"
	"foppl.dev/compiler/pkg/graph"
)

// TestS1ConstantFold mirrors spec.md scenario S1: a fully constant
// expression folds to a single literal and produces an empty graph.
func TestS1ConstantFold(t *testing.T) {
	model, err := compiler.Compile(`(+ 1 (* 2 3))`)
	require.NoError(t, err)
	assert.Empty(t, model.Vertices(graph.ClassAll))
	assert.Empty(t, model.Conditions())
	assert.Empty(t, model.Data())
}

// TestS2SimpleObserveChain mirrors spec.md scenario S2: one sampled Vertex
// feeding one observed Vertex, no conditions.
func TestS2SimpleObserveChain(t *testing.T) {
	source := `(let [x (sample (Normal 0 1))] (observe (Normal x 1) 2) x)`
	model, err := compiler.Compile(source)
	require.NoError(t, err)

	sampled := model.Vertices(graph.ClassSampled)
	observed := model.Vertices(graph.ClassObserved)
	require.Len(t, sampled, 1)
	require.Len(t, observed, 1)
	assert.Equal(t, "Normal", sampled[0].DistName)
	assert.Equal(t, "Normal", observed[0].DistName)
	assert.Empty(t, sampled[0].Ancestors)
	require.Len(t, observed[0].Ancestors, 1)
	assert.Empty(t, model.Conditions())
}

// TestS3Branch mirrors spec.md scenario S3: a Bernoulli sample guards two
// mutually-exclusive observes behind one ConditionNode.
func TestS3Branch(t *testing.T) {
	source := `(let [p (sample (Bernoulli 0.5))]
		(if (= p 1)
			(observe (Normal 0 1) 0)
			(observe (Normal 1 1) 0)))`
	model, err := compiler.Compile(source)
	require.NoError(t, err)

	require.Len(t, model.Vertices(graph.ClassSampled), 1)
	require.Len(t, model.Conditions(), 1)

	observed := model.Vertices(graph.ClassObserved)
	require.Len(t, observed, 2)
	for _, v := range observed {
		require.Len(t, v.Conditions, 1)
	}
	assert.NotEqual(t, observed[0].Conditions[0].Truth, observed[1].Conditions[0].Truth)

	logpdf := model.LogPdfCode()
	assert.Contains(t, logpdf, "state['"+model.Conditions()[0].Name()+"']")
}

// TestS4LargeDataHoist mirrors spec.md scenario S4: a >3-element literal
// vector referenced twice hoists to a single DataNode.
func TestS4LargeDataHoist(t *testing.T) {
	var nums strings.Builder
	for i := 0; i < 100; i++ {
		if i > 0 {
			nums.WriteByte(' ')
		}
		nums.WriteString("1")
	}
	source := "(let [v [" + nums.String() + "]] (observe (Normal (first v) 1) (second v)))"
	model, err := compiler.Compile(source)
	require.NoError(t, err)
	require.Len(t, model.Data(), 1)
}

// TestS5LoopUnroll mirrors spec.md scenario S5: a For over a literal
// 3-vector unrolls into three independent observed Vertices.
func TestS5LoopUnroll(t *testing.T) {
	source := `(for [i [0 1 2]] (observe (Normal i 1) i))`
	model, err := compiler.Compile(source)
	require.NoError(t, err)

	observed := model.Vertices(graph.ClassObserved)
	require.Len(t, observed, 3)
	for _, v := range observed {
		assert.Empty(t, v.Ancestors)
		assert.Equal(t, "Normal", v.DistName)
	}
}

// TestS6IfOverCall mirrors spec.md scenario S6: an If inside a distribution
// argument position lifts above the Call before graph construction, giving
// two independent observe sub-structures rather than one Vertex whose
// DistCode contains a conditional expression.
func TestS6IfOverCall(t *testing.T) {
	source := `(let [c (sample (Bernoulli 0.5))
	                  mu1 1
	                  mu2 2]
		(observe (Normal (if (= c 1) mu1 mu2) 1) 0))`
	model, err := compiler.Compile(source)
	require.NoError(t, err)

	require.Len(t, model.Vertices(graph.ClassSampled), 1)
	require.Len(t, model.Conditions(), 1)
	observed := model.Vertices(graph.ClassObserved)
	require.Len(t, observed, 2)
}

func TestCompileRejectsUnbalancedBrackets(t *testing.T) {
	_, err := compiler.Compile(`(+ 1 2`)
	require.Error(t, err)
}

func TestCompileDetectsImperativeSurface(t *testing.T) {
	source := "x = sample(Normal(0, 1))\nobserve(Normal(x, 1), 2)\n"
	model, err := compiler.Compile(source)
	require.NoError(t, err)
	require.Len(t, model.Vertices(graph.ClassSampled), 1)
	require.Len(t, model.Vertices(graph.ClassObserved), 1)
}

func TestWithSimplifyFalseSkipsConstantFolding(t *testing.T) {
	model, err := compiler.Compile(`(+ 1 (* 2 3))`, compiler.WithSimplify(false))
	require.NoError(t, err)
	// No Sample/Observe anywhere, so the graph is still empty regardless;
	// the point of this test is that Compile does not error when the
	// optimizer is disabled.
	assert.Empty(t, model.Vertices(graph.ClassAll))
}

func TestModelStringReportsVACD(t *testing.T) {
	source := `(let [x (sample (Normal 0 1))] (observe (Normal x 1) 2))`
	model, err := compiler.Compile(source)
	require.NoError(t, err)
	s := model.String()
	assert.Contains(t, s, "V = {")
	assert.Contains(t, s, "A = {")
	assert.Contains(t, s, "C = {")
	assert.Contains(t, s, "D = {")
}
