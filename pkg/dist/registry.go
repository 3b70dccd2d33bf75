// Package dist holds the distribution name registry spec.md §6 describes:
// a table mapping user-visible distribution names (Normal, Gamma, ...) to
// a {continuous, discrete} class, plus the optional DataLoader collaborator
// consulted by the optimizer's constant-folding pass. Grounded on
// original_source/foppl/code_distributions.py.
package dist

// Class classifies a distribution name for pkg/graph's Vertex.Class field.
// Unknown names still compile (spec.md §6: "Unknown distributions are
// tagged unknown and still compile").
type Class int

const (
	Unknown Class = iota
	Continuous
	Discrete
)

func (c Class) String() string {
	switch c {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// Registry is the mutable distribution-name table a compilation consults
// when classifying a Vertex. DefaultRegistry returns one pre-populated with
// the common distributions original_source/foppl/code_distributions.py
// lists, NewRegistry an empty one; callers may Register additional names
// before compiling.
type Registry struct {
	classes map[string]Class
}

// NewRegistry builds an empty registry (every lookup returns Unknown).
func NewRegistry() *Registry {
	return &Registry{classes: map[string]Class{}}
}

// DefaultRegistry builds the registry pre-populated with the standard
// FOPPL/PyFOPPL-2 distribution set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{
		"Normal", "MultivariateNormal", "Gamma", "Beta", "Exponential",
		"Uniform", "Dirichlet", "StudentT", "Laplace", "Cauchy", "LogNormal",
		"InverseGamma", "Chi2", "HalfCauchy", "HalfNormal",
	} {
		r.classes[name] = Continuous
	}
	for _, name := range []string{
		"Categorical", "Bernoulli", "Poisson", "Binomial", "Discrete",
		"Multinomial", "Geometric", "Bernoulli_raw",
	} {
		r.classes[name] = Discrete
	}
	return r
}

// Register associates name with class, overriding any default entry.
func (r *Registry) Register(name string, class Class) { r.classes[name] = class }

// ClassOf looks up name, returning Unknown for anything not registered.
func (r *Registry) ClassOf(name string) Class {
	if c, ok := r.classes[name]; ok {
		return c
	}
	return Unknown
}

// DataLoader is the external collaborator spec.md §6 describes: consulted
// by the optimizer's constant-folding pass when a source literal references
// a named data file. Consumers supply the search path and file formats
// (.dat/.csv/.idx1-ubyte/.idx3-ubyte); this package only defines the seam.
type DataLoader interface {
	// Load returns the named dataset as a flat slice of float64, or false
	// if name is not recognized. An absent loader leaves data literals
	// inline (spec.md §6: "absent loader ⇒ data literals stay inline").
	Load(name string) ([]float64, bool)
}
