// Package compiler wires the pipeline spec.md §2 describes
// (lexer/parser surfaces -> symbol table -> type inference -> optimizer ->
// SSA -> graph builder -> code generator) behind the single library entry
// point spec.md §6 and SPEC_FULL.md §9 describe: Compile(source, opts...).
//
// Grounded on the teacher's cmd/jack_compiler/main.go pipeline-wiring order
// (Parser -> TypeChecker -> Lowerer -> CodeGenerator, one call per stage,
// each error-wrapped and returned early) and on
// original_source/pyppl/foppl_model.py / original_source/foppl/foppl_model.py
// for the Model query surface (iterate vertices by class, render code,
// pretty-print V/A/C/D).
package compiler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/codegen"
	"foppl.dev/compiler/pkg/dist"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/graph"
	"foppl.dev/compiler/pkg/optimizer"
	"foppl.dev/compiler/pkg/pos"
	"foppl.dev/compiler/pkg/ssa"
	"foppl.dev/compiler/pkg/surface/imperative"
	"foppl.dev/compiler/pkg/surface/lisp"
	"foppl.dev/compiler/pkg/symtab"
)

// Language selects (or auto-detects) the surface grammar a source string is
// parsed with. spec.md §4.2: "the dispatch key between parsers is detected
// automatically: the first non-whitespace character decides".
type Language int

const (
	LangAuto Language = iota
	LangPython
	LangClojure
	LangFOPPL
)

// options holds every Compile knob; built up by Option functions so new
// knobs don't break existing call sites (teacher's cli.WithOption idiom,
// translated to the functional-options Go convention used across the rest
// of the pack's library-surfaced repos).
type options struct {
	language   Language
	simplify   bool
	dataLoader dist.DataLoader
	registry   *dist.Registry
}

// Option configures a Compile call.
type Option func(*options)

// WithLanguage pins the surface grammar instead of auto-detecting it.
func WithLanguage(l Language) Option { return func(o *options) { o.language = l } }

// WithSimplify toggles the optimizer/partial-evaluator pass. Disabling it
// still runs symbol table, type inference, SSA and graph construction --
// it only skips algebraic simplification, matching the source's own
// `simplify=True` keyword default (spec.md §9 Design Notes: "the one with
// simplify keyword ... is the recent copy").
func WithSimplify(enabled bool) Option { return func(o *options) { o.simplify = enabled } }

// WithDataLoader supplies the external collaborator spec.md §6 describes
// for resolving named data-file literals during constant folding. Absent a
// loader, data literals are left inline.
func WithDataLoader(d dist.DataLoader) Option { return func(o *options) { o.dataLoader = d } }

// WithRegistry overrides the default distribution-name registry (spec.md
// §6's "input table" collaborator). Unset, Compile uses dist.DefaultRegistry.
func WithRegistry(r *dist.Registry) Option { return func(o *options) { o.registry = r } }

// Context is the per-compilation state spec.md §5 requires to be
// encapsulated rather than held in process globals, so that two
// compilations never interact: "these must be reset at the start of each
// compilation (or made part of a compilation context). No data is shared
// across compilations." RunID has no semantic effect; it is threaded into
// diagnostics so a caller compiling a batch of sources (cmd/foppl walking a
// directory) can tell which run produced which error.
type Context struct {
	RunID uuid.UUID
}

// newContext builds a fresh Context with a new random run id. Each call to
// Compile owns exactly one Context and discards it at the end of the call;
// nothing survives across compilations (spec.md §5).
func newContext() *Context {
	return &Context{RunID: uuid.New()}
}

// Model is the compiled output: the vertex/arc/data/condition sets plus a
// topologically ordered compute-node list, and the two code-generation
// queries spec.md §6 exposes.
type Model struct {
	ctx   *Context
	graph *graph.Graph
	gen   *codegen.Generator
}

// Vertices iterates the model's vertices, filtered by class (spec.md §6:
// "iterate vertices by class (continuous, discrete, conditional, sampled,
// observed)"). Pass graph.ClassAll for every vertex.
func (m *Model) Vertices(class graph.VertexClass) []*graph.Vertex {
	return m.graph.VerticesByClass(class)
}

// Arcs returns every ancestor edge (u -> v) in the graph, u appearing
// before v in compute order (graph invariant a/d).
func (m *Model) Arcs() [][2]*graph.Vertex {
	var arcs [][2]*graph.Vertex
	for _, v := range m.graph.Vertices {
		for _, a := range v.Ancestors {
			arcs = append(arcs, [2]*graph.Vertex{m.graph.Vertex(a), v})
		}
	}
	return arcs
}

// Data returns every hoisted DataNode.
func (m *Model) Data() []*graph.DataNode { return m.graph.Data }

// Conditions returns every ConditionNode.
func (m *Model) Conditions() []*graph.ConditionNode { return m.graph.Conditions }

// ComputeOrder returns every node in the order code generation (and any
// consumer evaluating the produced code) must execute them in.
func (m *Model) ComputeOrder() []graph.Node { return m.graph.ComputeOrder() }

// SampleCode renders the textual prior-sampling program for every node, in
// compute order (spec.md §4.7).
func (m *Model) SampleCode() string { return m.gen.SampleCode() }

// LogPdfCode renders the textual log-density accumulation program.
func (m *Model) LogPdfCode() string { return m.gen.LogPdfCode() }

// ModelCode substitutes SampleCode/LogPdfCode into the templated container
// class skeleton at the {SAMPLE-CODE}/{LOGPDF-CODE} markers.
func (m *Model) ModelCode() string { return m.gen.ModelCode() }

// RunID exposes the Context's run identifier, e.g. for correlating a
// Compile call with its caller's own logs.
func (m *Model) RunID() uuid.UUID { return m.ctx.RunID }

// String pretty-prints the model's V (vertices), A (arcs), C (conditions)
// and D (data) sets, one per line, sorted in compute order -- the
// spec.md §6 "pretty-print V, A, C, D" query.
func (m *Model) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "V = {%s}\n", joinNames(vertexNames(m.graph.Vertices)))
	fmt.Fprintf(&b, "A = {%s}\n", joinArcs(m.Arcs()))
	fmt.Fprintf(&b, "C = {%s}\n", joinNames(conditionNames(m.graph.Conditions)))
	fmt.Fprintf(&b, "D = {%s}\n", joinNames(dataNames(m.graph.Data)))
	return b.String()
}

func vertexNames(vs []*graph.Vertex) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Name()
	}
	return out
}

func conditionNames(cs []*graph.ConditionNode) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

func dataNames(ds []*graph.DataNode) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name()
	}
	return out
}

func joinNames(names []string) string { return strings.Join(names, ", ") }

func joinArcs(arcs [][2]*graph.Vertex) string {
	parts := make([]string, len(arcs))
	for i, a := range arcs {
		parts[i] = fmt.Sprintf("(%s, %s)", a[0].Name(), a[1].Name())
	}
	return strings.Join(parts, ", ")
}

// Compile runs the full pipeline over source and returns the resulting
// Model, or the first fatal error a stage raises. Parser errors are returned
// as the surface parser produced them; every later stage's error is wrapped
// with ferr.Wrap under a stage-specific Kind, so a caller can errors.As into
// *ferr.Error and branch on Kind (spec.md §7: "all are fatal to the
// compilation").
func Compile(source string, opts ...Option) (*Model, error) {
	cfg := &options{simplify: true, registry: dist.DefaultRegistry()}
	for _, opt := range opts {
		opt(cfg)
	}
	ctx := newContext()

	root, err := parseSurface(source, cfg.language)
	if err != nil {
		return nil, err
	}

	root, table, err := symtab.Generate(root)
	if err != nil {
		return nil, ferr.Wrap(err, ferr.NameError, pos.Position{}, "run %s: symbol table pass failed", ctx.RunID)
	}

	if err := symtab.Infer(root, table); err != nil {
		return nil, ferr.Wrap(err, ferr.TypeError, pos.Position{}, "run %s: type inference failed", ctx.RunID)
	}

	if cfg.simplify {
		root, err = optimizer.New(cfg.dataLoader).Run(root)
		if err != nil {
			return nil, ferr.Wrap(err, ferr.Internal, pos.Position{}, "run %s: optimizer failed", ctx.RunID)
		}
	}

	root, err = ssa.Run(root)
	if err != nil {
		return nil, ferr.Wrap(err, ferr.Internal, pos.Position{}, "run %s: SSA pass failed", ctx.RunID)
	}

	factory := graph.NewFactory(cfg.registry)
	if _, err := graph.Build(root, factory); err != nil {
		return nil, ferr.Wrap(err, ferr.Internal, pos.Position{}, "run %s: graph construction failed", ctx.RunID)
	}

	g := factory.Graph()
	return &Model{ctx: ctx, graph: g, gen: codegen.New(g)}, nil
}

// parseSurface detects (or uses the pinned) surface grammar and returns the
// parsed common AST, matching spec.md §4.2's dispatch rule exactly when
// language is LangAuto: "the first non-whitespace character decides -- ';'
// or '(' chooses Lisp, otherwise imperative." A pinned LangFOPPL delegates
// to the Lisp/Clojure surface, per original_source/pyppl/ppl_foppl_parser.py.
func parseSurface(source string, language Language) (ast.Node, error) {
	switch language {
	case LangPython:
		return imperative.Parse(source)
	case LangClojure, LangFOPPL:
		return lisp.Parse(source)
	default:
		if isLispSurface(source) {
			return lisp.Parse(source)
		}
		return imperative.Parse(source)
	}
}

// isLispSurface implements spec.md §4.2's auto-detection rule.
func isLispSurface(source string) bool {
	for _, r := range source {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		case r == ';' || r == '(':
			return true
		default:
			return false
		}
	}
	return false
}
