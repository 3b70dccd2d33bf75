package types_test

import (
	"testing"

	"foppl.dev/compiler/pkg/types"
)

func TestLatticeSubtypeChain(t *testing.T) {
	if !types.Boolean.IsSubtypeOf(types.Integer) {
		t.Fatal("Boolean should be a subtype of Integer")
	}
	if !types.Integer.IsSubtypeOf(types.Float) {
		t.Fatal("Integer should be a subtype of Float")
	}
	if !types.Float.IsSubtypeOf(types.Numeric) {
		t.Fatal("Float should be a subtype of Numeric")
	}
	if !types.Numeric.IsSubtypeOf(types.Any) {
		t.Fatal("Numeric should be a subtype of Any")
	}
	if types.Float.IsSubtypeOf(types.Integer) {
		t.Fatal("Float must not be a subtype of Integer (narrowing only goes one way)")
	}
}

func TestUnionPicksLeastCommonAncestor(t *testing.T) {
	if got := types.Union(types.Integer, types.Float); !got.Equals(types.Float) {
		t.Fatalf("Union(Integer, Float) = %s, want Float", got)
	}
	if got := types.Union(types.Boolean, types.Integer); !got.Equals(types.Integer) {
		t.Fatalf("Union(Boolean, Integer) = %s, want Integer", got)
	}
	if got := types.Union(types.AnyStr, types.Integer); !got.Equals(types.Any) {
		t.Fatalf("Union(String, Integer) = %s, want Any", got)
	}
}

func TestSequenceSubtypingRespectsSizeAndItemType(t *testing.T) {
	fixed := types.NewList(types.Integer, 3)
	unknown := types.NewList(types.Numeric, -1)
	if !fixed.IsSubtypeOf(unknown) {
		t.Fatal("List[Integer,3] should be a subtype of List[Numeric] (unspecified size matches any)")
	}
	other := types.NewList(types.Integer, 4)
	if fixed.IsSubtypeOf(other) {
		t.Fatal("List[Integer,3] must not be a subtype of List[Integer,4] (size mismatch)")
	}
}

func TestUnionOfSequencesUnifiesItemTypeAndSize(t *testing.T) {
	a := types.NewList(types.Integer, 2)
	b := types.NewList(types.Float, 2)
	got := types.Union(a, b)
	seq, ok := got.(*types.Sequence)
	if !ok {
		t.Fatalf("expected a *Sequence, got %T", got)
	}
	if !seq.ItemType.Equals(types.Float) {
		t.Fatalf("expected item type Float, got %s", seq.ItemType)
	}
	if seq.Size != 2 {
		t.Fatalf("expected size 2 to survive the union, got %d", seq.Size)
	}
}

func TestUnionOfDifferentSizesDropsSize(t *testing.T) {
	a := types.NewList(types.Integer, 2)
	b := types.NewList(types.Integer, 5)
	got := types.Union(a, b).(*types.Sequence)
	if got.Size != -1 {
		t.Fatalf("expected size to become unknown (-1), got %d", got.Size)
	}
}

func TestFromGoValueInfersScalarsAndSequences(t *testing.T) {
	if !types.FromGoValue(int64(1)).Equals(types.Integer) {
		t.Fatal("int64 should infer Integer")
	}
	if !types.FromGoValue(1.5).Equals(types.Float) {
		t.Fatal("float64 should infer Float")
	}
	if !types.FromGoValue(true).Equals(types.Boolean) {
		t.Fatal("bool should infer Boolean")
	}
	if !types.FromGoValue(nil).Equals(types.Null) {
		t.Fatal("nil should infer Null")
	}
	seq := types.FromGoValue([]any{int64(1), 2.0})
	list, ok := seq.(*types.Sequence)
	if !ok {
		t.Fatalf("expected a *Sequence, got %T", seq)
	}
	if !list.ItemType.Equals(types.Float) {
		t.Fatalf("expected the mixed int/float vector to unify to Float, got %s", list.ItemType)
	}
	if list.Size != 2 {
		t.Fatalf("expected size 2, got %d", list.Size)
	}
}

func TestStringIsARecursiveSequenceOfItself(t *testing.T) {
	if types.String.ItemType != types.Type(types.String) {
		t.Fatal("String's ItemType should be String itself")
	}
	if !types.String.Recursive {
		t.Fatal("String should be marked Recursive")
	}
}
