// Package types implements the FOPPL type lattice: Any at the top, Numeric
// narrowing to Float narrowing to Integer narrowing to Boolean,
// and the parametric sequence/dict/function types built on top of it.
package types

import "fmt"

// Kind distinguishes the named base types and the parametric ones. Kind
// alone is not enough to compare two Function or Sequence types for
// equality — use Type.Equals for that.
type Kind int

const (
	KindAny Kind = iota
	KindNull
	KindNumeric
	KindFloat
	KindInteger
	KindBoolean
	KindString
	KindList
	KindTuple
	KindDict
	KindFunction
)

// Type is the interface implemented by every member of the lattice.
type Type interface {
	Kind() Kind
	String() string
	// IsSubtypeOf reports whether every value of this type is also a value
	// of other — e.g. Integer.IsSubtypeOf(Numeric) is true.
	IsSubtypeOf(other Type) bool
	Equals(other Type) bool
}

// base implements the flat, non-parametric members of the lattice: Any,
// Null, Numeric, Float, Integer, Boolean, String.
type base struct {
	kind Kind
}

func (b base) Kind() Kind { return b.kind }

func (b base) String() string {
	switch b.kind {
	case KindAny:
		return "Any"
	case KindNull:
		return "Null"
	case KindNumeric:
		return "Numeric"
	case KindFloat:
		return "Float"
	case KindInteger:
		return "Integer"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	default:
		return "?"
	}
}

// lattice order below Numeric, used by IsSubtypeOf for the base types.
var numericChain = map[Kind]int{KindNumeric: 0, KindFloat: 1, KindInteger: 2}

func (b base) IsSubtypeOf(other Type) bool {
	if other.Kind() == KindAny {
		return true
	}
	if b.kind == other.Kind() {
		return true
	}
	// Boolean is a subtype of Integer is a subtype of Float is a subtype of
	// Numeric, mirroring the Python lattice's is-a chain.
	if b.kind == KindBoolean && (other.Kind() == KindInteger || other.Kind() == KindFloat || other.Kind() == KindNumeric) {
		return true
	}
	oRank, oOk := numericChain[other.Kind()]
	bRank, bOk := numericChain[b.kind]
	if oOk && bOk {
		return bRank >= oRank
	}
	return false
}

func (b base) Equals(other Type) bool { return other.Kind() == b.kind }

var (
	Any     Type = base{KindAny}
	Null    Type = base{KindNull}
	Numeric Type = base{KindNumeric}
	Float   Type = base{KindFloat}
	Integer Type = base{KindInteger}
	Boolean Type = base{KindBoolean}
	AnyStr  Type = base{KindString}
)

// Sequence is the parametric List/Tuple/String type. Size is -1 when the
// length is unknown at compile time; Recursive marks a sequence whose item
// type is itself (the untyped "any sequence of anything" case used as a
// fallback when item types can't be unified).
type Sequence struct {
	kind      Kind // KindList, KindTuple, or KindString
	ItemType  Type
	Size      int
	Recursive bool
}

func NewList(item Type, size int) *Sequence  { return &Sequence{kind: KindList, ItemType: item, Size: size} }
func NewTuple(item Type, size int) *Sequence { return &Sequence{kind: KindTuple, ItemType: item, Size: size} }

// String is a recursive sequence of single-character strings, mirroring the
// Python lattice where indexing a string yields another string.
var String *Sequence

func init() {
	String = &Sequence{kind: KindString, Size: -1, Recursive: true}
	String.ItemType = String
}

func (s *Sequence) Kind() Kind { return s.kind }

func (s *Sequence) String() string {
	name := map[Kind]string{KindList: "List", KindTuple: "Tuple", KindString: "String"}[s.kind]
	if s.Recursive {
		return name
	}
	if s.Size >= 0 {
		return fmt.Sprintf("%s[%s,%d]", name, s.ItemType, s.Size)
	}
	return fmt.Sprintf("%s[%s]", name, s.ItemType)
}

func (s *Sequence) IsSubtypeOf(other Type) bool {
	if other.Kind() == KindAny {
		return true
	}
	os, ok := other.(*Sequence)
	if !ok || os.kind != s.kind {
		return false
	}
	if os.Size >= 0 && os.Size != s.Size {
		return false
	}
	return s.ItemType.IsSubtypeOf(os.ItemType)
}

func (s *Sequence) Equals(other Type) bool {
	os, ok := other.(*Sequence)
	return ok && os.kind == s.kind && os.Size == s.Size && s.ItemType.Equals(os.ItemType)
}

// Dim returns the item type after dimension levels of indexing, or Any if
// dimension exceeds the sequence's actual nesting.
func (s *Sequence) Dim(dimension int) Type {
	t := Type(s)
	for i := 0; i < dimension; i++ {
		sub, ok := t.(*Sequence)
		if !ok {
			return Any
		}
		t = sub.ItemType
	}
	return t
}

// Dict is a homogeneously-valued mapping from constant keys to a single
// item type (the lattice never tracks individual key->value-type pairs).
type Dict struct {
	ItemType Type
}

func (d *Dict) Kind() Kind     { return KindDict }
func (d *Dict) String() string { return fmt.Sprintf("Dict[%s]", d.ItemType) }
func (d *Dict) IsSubtypeOf(other Type) bool {
	if other.Kind() == KindAny {
		return true
	}
	od, ok := other.(*Dict)
	return ok && d.ItemType.IsSubtypeOf(od.ItemType)
}
func (d *Dict) Equals(other Type) bool {
	od, ok := other.(*Dict)
	return ok && d.ItemType.Equals(od.ItemType)
}

// Function carries parameter and return types for call-site type checking;
// ParamTypes may be nil when arity/types are not statically known.
type Function struct {
	ParamTypes []Type
	ReturnType Type
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) String() string {
	return fmt.Sprintf("Function[%v -> %s]", f.ParamTypes, f.ReturnType)
}
func (f *Function) IsSubtypeOf(other Type) bool { return other.Kind() == KindAny || f.Equals(other) }
func (f *Function) Equals(other Type) bool {
	of, ok := other.(*Function)
	if !ok || len(of.ParamTypes) != len(f.ParamTypes) {
		return false
	}
	for i, p := range f.ParamTypes {
		if !p.Equals(of.ParamTypes[i]) {
			return false
		}
	}
	return f.ReturnType.Equals(of.ReturnType)
}

// Union returns the most specific type both a and b are subtypes of,
// falling back to Any when the two types share nothing more specific.
func Union(a, b Type) Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Equals(b) {
		return a
	}
	if a.IsSubtypeOf(b) {
		return b
	}
	if b.IsSubtypeOf(a) {
		return a
	}
	if seqA, ok := a.(*Sequence); ok {
		if seqB, ok := b.(*Sequence); ok && seqA.kind == seqB.kind {
			size := -1
			if seqA.Size == seqB.Size {
				size = seqA.Size
			}
			return &Sequence{kind: seqA.kind, ItemType: Union(seqA.ItemType, seqB.ItemType), Size: size}
		}
	}
	_, aNum := numericChain[a.Kind()]
	_, bNum := numericChain[b.Kind()]
	if aNum && bNum {
		return Numeric
	}
	return Any
}

// FromGoValue infers the Type of a Go-native literal value (int64, float64,
// bool, string, nil, or a []any for vector/tuple literals), mirroring
// ppl_types.py's from_python.
func FromGoValue(v any) Type {
	switch val := v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case int64, int:
		return Integer
	case float64:
		return Float
	case string:
		return String
	case []any:
		item := Type(Any)
		for i, e := range val {
			t := FromGoValue(e)
			if i == 0 {
				item = t
			} else {
				item = Union(item, t)
			}
		}
		return NewList(item, len(val))
	default:
		return Any
	}
}
