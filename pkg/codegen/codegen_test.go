package codegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/codegen"
	"foppl.dev/compiler/pkg/dist"
	"foppl.dev/compiler/pkg/graph"
)

func normalCall(mean, sd ast.Node) *ast.Call {
	return &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{mean, sd}}
}

func TestObservedVertexAssignsObservationInSampleCode(t *testing.T) {
	program := ast.MakeBody(
		&ast.Def{Name: "x1", Value: &ast.Sample{Dist: normalCall(ast.NewInt(0), ast.NewInt(1))}},
		&ast.Observe{Dist: normalCall(&ast.Symbol{Name: "x1"}, ast.NewInt(1)), Value: ast.NewInt(2)},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	gen := codegen.New(f.Graph())
	sample := gen.SampleCode()
	assert.Contains(t, sample, "state['x30001'] = dst_.sample()")
	assert.Contains(t, sample, "state['y30002'] = 2")
	assert.NotContains(t, sample, "y30002']  = dst_.sample()")

	logpdf := gen.LogPdfCode()
	assert.Contains(t, logpdf, "log_pdf += dst_.log_pdf(state['x30001'])")
	assert.Contains(t, logpdf, "log_pdf += dst_.log_pdf(state['y30002'])")
}

func TestBranchLogPdfIsGuardedByCondition(t *testing.T) {
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

	logpdf := codegen.New(f.Graph()).LogPdfCode()
	lines := strings.Split(logpdf, "\n")
	var guardTrue, guardFalse bool
	for _, l := range lines {
		if strings.Contains(l, "if state['cond_30002'] == True:") {
			guardTrue = true
		}
		if strings.Contains(l, "if state['cond_30002'] == False:") {
			guardFalse = true
		}
	}
	assert.True(t, guardTrue, "expected a guard on the true branch, got %q", logpdf)
	assert.True(t, guardFalse, "expected a guard on the false branch, got %q", logpdf)
}

func TestConsecutiveIdenticalDistributionsShareDstBinding(t *testing.T) {
	program := ast.MakeBody(
		&ast.Observe{Dist: normalCall(ast.NewInt(0), ast.NewInt(1)), Value: ast.NewInt(0)},
		&ast.Observe{Dist: normalCall(ast.NewInt(0), ast.NewInt(1)), Value: ast.NewInt(1)},
	)
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	logpdf := codegen.New(f.Graph()).LogPdfCode()
	assert.Equal(t, 1, strings.Count(logpdf, "dst_ = Normal(0, 1)"))
	assert.Equal(t, 2, strings.Count(logpdf, "log_pdf += dst_.log_pdf"))
}

func TestModelCodeSubstitutesMarkers(t *testing.T) {
	program := &ast.Observe{Dist: normalCall(ast.NewInt(0), ast.NewInt(1)), Value: ast.NewInt(0)}
	f := graph.NewFactory(dist.DefaultRegistry())
	_, err := graph.Build(program, f)
	require.NoError(t, err)

	model := codegen.New(f.Graph()).ModelCode()
	assert.NotContains(t, model, "{LOGPDF-CODE}")
	assert.NotContains(t, model, "{SAMPLE-CODE}")
	assert.Contains(t, model, "def gen_log_pdf")
	assert.Contains(t, model, "def gen_sample")
}
