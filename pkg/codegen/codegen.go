// Package codegen renders a built pkg/graph.Graph into the two code
// strings spec.md §4.6/§6 describes (prior-sample code and log-pdf code),
// plus a templated model wrapper. Grounded on
// original_source/pyppl/backend/ppl_graph_codegen.py's GraphCodeGenerator,
// which is the "most recent" of the source's near-duplicate code
// generators (spec.md §9 Design Notes: "implement the most recent
// behavior").
package codegen

import (
	"fmt"
	"strings"

	"foppl.dev/compiler/pkg/graph"
)

// Generator renders a Graph's compute-ordered nodes into source text.
type Generator struct {
	graph *graph.Graph
}

// New builds a Generator over g.
func New(g *graph.Graph) *Generator { return &Generator{graph: g} }

// SampleCode renders the prior-sampling program: every ConditionNode and
// DataNode assigns its code into state, every sampled Vertex draws from its
// distribution, and every observed Vertex assigns its fixed observation
// instead of drawing (spec.md §4.6: "Vertex observed -> state['y']=<observation>").
// This is a deliberate correction over
// original_source/pyppl/graphs.py's Vertex.gen_sampling_code, which draws a
// fresh sample for observed vertices too; GraphCodeGenerator.gen_sample_code
// (the behavior we ground on here) already checks `node.has_observation`
// and does the direct assignment spec.md requires, so no invention is
// needed, only choosing the newer of the two sources.
func (g *Generator) SampleCode() string {
	var lines []string
	lastDist := ""
	for _, n := range g.graph.ComputeOrder() {
		target := fmt.Sprintf("state['%s']", n.Name())
		switch node := n.(type) {
		case *graph.Vertex:
			if node.Observed {
				lines = append(lines, fmt.Sprintf("%s = %s", target, node.ObservationCode))
				continue
			}
			distLine := fmt.Sprintf("dst_ = %s", node.DistCode)
			if distLine != lastDist {
				lines = append(lines, distLine)
				lastDist = distLine
			}
			if node.SampleSize > 1 {
				lines = append(lines, fmt.Sprintf("%s = dst_.sample(sample_size=%d)", target, node.SampleSize))
			} else {
				lines = append(lines, fmt.Sprintf("%s = dst_.sample()", target))
			}
		case *graph.ConditionNode:
			lines = append(lines, fmt.Sprintf("%s = %s", target, node.Code))
		case *graph.DataNode:
			lines = append(lines, fmt.Sprintf("%s = %s", target, node.Code))
		}
	}
	return strings.Join(lines, "\n")
}

// LogPdfCode renders the log-pdf accumulation program. DataNodes contribute
// nothing (original_source skips them outright: a literal has no density).
// Each Vertex's contribution is wrapped in a guard over its Conditions list
// (spec.md §4.6: "gated by all (cond, truth) pairs (skip when
// state[cond]!=truth)"); original_source's GraphCodeGenerator.gen_logpdf_code
// does not show this guard, so it is implemented here directly from
// spec.md's explicit requirement.
func (g *Generator) LogPdfCode() string {
	var lines []string
	lastDist := ""
	for _, n := range g.graph.ComputeOrder() {
		target := fmt.Sprintf("state['%s']", n.Name())
		switch node := n.(type) {
		case *graph.Vertex:
			distLine := fmt.Sprintf("dst_ = %s", node.DistCode)
			if distLine != lastDist {
				lines = append(lines, distLine)
				lastDist = distLine
			}
			contribution := fmt.Sprintf("log_pdf += dst_.log_pdf(%s)", target)
			lines = append(lines, guardConditions(g.graph, node.Conditions, contribution))
		case *graph.ConditionNode:
			lines = append(lines, fmt.Sprintf("%s = %s", target, node.Code))
		case *graph.DataNode:
			// no density contribution, matches gen_logpdf_code's
			// `elif isinstance(node, DataNode): pass`.
		}
	}
	return strings.Join(lines, "\n")
}

func guardConditions(g *graph.Graph, conds []graph.ConditionRef, body string) string {
	if len(conds) == 0 {
		return body
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		cond := g.Condition(c.Cond)
		truth := "False"
		if c.Truth {
			truth = "True"
		}
		parts[i] = fmt.Sprintf("state['%s'] == %s", cond.Name(), truth)
	}
	return fmt.Sprintf("if %s:\n\t%s", strings.Join(parts, " and "), body)
}

const modelTemplate = `class Model(object):

    def gen_log_pdf(self, state):
        log_pdf = 0
        {LOGPDF-CODE}
        return log_pdf

    def gen_sample(self):
        state = {}
        {SAMPLE-CODE}
        return state
`

// ModelCode substitutes SampleCode/LogPdfCode into the default model
// template, preserving each marker's indentation, mirroring
// GraphCodeGenerator.generate_model_code.
func (g *Generator) ModelCode() string {
	out := strings.Replace(modelTemplate, "{LOGPDF-CODE}", indentLines(g.LogPdfCode(), "        "), 1)
	out = strings.Replace(out, "{SAMPLE-CODE}", indentLines(g.SampleCode(), "        "), 1)
	return out
}

func indentLines(code, indent string) string {
	return strings.ReplaceAll(code, "\n", "\n"+indent)
}
