package bindings

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tinfer/tinfer/symbols"
)

func TestAddLowerTypeBound(t *testing.T) {
	u := newUniverse()
	testCases := []struct {
		name          string
		bounds        []symbols.TypeSymbol
		expected      string
		lastIsChanged bool
	}{
		{
			name:          "single bound",
			bounds:        []symbols.TypeSymbol{u.intT},
			expected:      "int",
			lastIsChanged: true,
		},
		{
			name:          "same bound twice is idempotent",
			bounds:        []symbols.TypeSymbol{u.intT, u.intT},
			expected:      "int",
			lastIsChanged: false,
		},
		{
			name:          "supertype replaces subtype",
			bounds:        []symbols.TypeSymbol{u.intT, u.num},
			expected:      "num",
			lastIsChanged: true,
		},
		{
			name:          "subtype is absorbed",
			bounds:        []symbols.TypeSymbol{u.num, u.intT},
			expected:      "num",
			lastIsChanged: false,
		},
		{
			name:          "unrelated types are joined",
			bounds:        []symbols.TypeSymbol{u.intT, u.floatT},
			expected:      "(float | int)",
			lastIsChanged: true,
		},
		{
			name:          "union is flattened",
			bounds:        []symbols.TypeSymbol{u.factory.CreateUnionTypeSymbol(u.str, u.intT), u.num},
			expected:      "(num | string)",
			lastIsChanged: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := withVariables(t, u.graph(), "T")
			var result *BoundResult
			for _, bound := range tc.bounds {
				var err error
				result, err = g.AddLowerTypeBound("T", bound)
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, lowerOf(g, "T"))
			assert.Equal(t, tc.lastIsChanged, result.HasChanged)
		})
	}
}

func TestAddUpperTypeBound(t *testing.T) {
	u := newUniverse()
	testCases := []struct {
		name          string
		bounds        []symbols.TypeSymbol
		expected      string
		lastIsChanged bool
		errCode       ErrCode
	}{
		{
			name:          "same bound twice is idempotent",
			bounds:        []symbols.TypeSymbol{u.num, u.num},
			expected:      "num",
			lastIsChanged: false,
		},
		{
			name:          "subtype replaces supertype",
			bounds:        []symbols.TypeSymbol{u.num, u.intT},
			expected:      "int",
			lastIsChanged: true,
		},
		{
			name:          "supertype is absorbed",
			bounds:        []symbols.TypeSymbol{u.intT, u.num},
			expected:      "int",
			lastIsChanged: false,
		},
		{
			name:          "interfaces intersect",
			bounds:        []symbols.TypeSymbol{u.ia, u.ib},
			expected:      "(IA & IB)",
			lastIsChanged: true,
		},
		{
			name:          "intersection is flattened",
			bounds:        []symbols.TypeSymbol{u.factory.CreateIntersectionTypeSymbol(u.ia, u.ib), u.ia},
			expected:      "(IA & IB)",
			lastIsChanged: false,
		},
		{
			name:          "class and interface intersect",
			bounds:        []symbols.TypeSymbol{u.base, u.ia},
			expected:      "(Base & IA)",
			lastIsChanged: true,
		},
		{
			name:    "two unrelated primitives cannot intersect",
			bounds:  []symbols.TypeSymbol{u.intT, u.str},
			errCode: IntersectionBound,
		},
		{
			name:    "final class excludes interfaces",
			bounds:  []symbols.TypeSymbol{u.final, u.ia},
			errCode: IntersectionBound,
		},
		{
			name:    "final class is excluded by interfaces",
			bounds:  []symbols.TypeSymbol{u.ia, u.final},
			errCode: IntersectionBound,
		},
		{
			name:          "final class narrows its ancestor",
			bounds:        []symbols.TypeSymbol{u.base, u.final},
			expected:      "Final",
			lastIsChanged: true,
		},
		{
			name:          "mixed is replaced",
			bounds:        []symbols.TypeSymbol{u.factory.GetMixedTypeSymbol(), u.str},
			expected:      "string",
			lastIsChanged: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := withVariables(t, u.graph(), "T")
			var result *BoundResult
			var err error
			for _, bound := range tc.bounds {
				result, err = g.AddUpperTypeBound("T", bound)
				if err != nil {
					break
				}
			}
			if tc.errCode != None {
				var boundsErr BoundsError
				assert.True(t, errors.As(err, &boundsErr))
				assert.Equal(t, tc.errCode, boundsErr.Code())
				assert.Equal(t, "T", boundsErr.TypeVariable())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, upperOf(g, "T"))
			assert.Equal(t, tc.lastIsChanged, result.HasChanged)
		})
	}
}

func TestBoundContradictions(t *testing.T) {
	u := newUniverse()

	t.Run("lower bound above the upper bound", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddUpperTypeBound("T", u.intT)
		assert.NoError(t, err)
		_, err = g.AddLowerTypeBound("T", u.num)
		var upperErr *UpperBoundError
		assert.True(t, errors.As(err, &upperErr))
		assert.Equal(t, "num", upperErr.NewLower.AbsoluteName())
		assert.True(t, IsBoundContradiction(err))
		assert.Contains(t, err.Error(), "(E002)")
	})

	t.Run("upper bound below the lower bound", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddLowerTypeBound("T", u.num)
		assert.NoError(t, err)
		_, err = g.AddUpperTypeBound("T", u.intT)
		var lowerErr *LowerBoundError
		assert.True(t, errors.As(err, &lowerErr))
		assert.Equal(t, "num", lowerErr.Lower.AbsoluteName())
	})

	t.Run("unknown type variable is a programmer error", func(t *testing.T) {
		g := u.graph()
		_, err := g.AddLowerTypeBound("T", u.intT)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
		assert.False(t, IsBoundContradiction(err))
	})

	t.Run("convertible of another graph is rejected", func(t *testing.T) {
		other := withVariables(t, u.graph(), "T")
		asT := u.factory.CreateConvertibleTypeSymbol()
		assert.NoError(t, other.Bind(asT, []TypeVariableID{"T"}))

		g := withVariables(t, u.graph(), "T")
		_, err := g.AddLowerTypeBound("T", asT)
		assert.True(t, errors.Is(err, ErrIllegalArgument))
	})
}

func TestImplicitConversions(t *testing.T) {
	u := newUniverse()
	u.withConversions(u.intToFloat())

	t.Run("lower bound bridged to the upper bound", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddUpperTypeBound("T", u.floatT)
		assert.NoError(t, err)

		result, err := g.AddLowerTypeBound("T", u.intT)
		assert.NoError(t, err)
		assert.True(t, result.HasChanged)
		assert.True(t, result.UsedImplicitConversion)
		assert.Equal(t, "int2float", result.ImplicitConversionProvider.Provider)
		assert.Equal(t, "int", lowerOf(g, "T"))
		assert.Equal(t, "float", upperOf(g, "T"))
	})

	t.Run("upper bound restricts the lower bound to the conversion source", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddLowerTypeBound("T", u.intT)
		assert.NoError(t, err)

		result, err := g.AddUpperTypeBound("T", u.floatT)
		assert.NoError(t, err)
		assert.True(t, result.UsedImplicitConversion)
		if assert.Len(t, result.LowerConstraints, 1) {
			assert.Equal(t, "int", result.LowerConstraints[0].AbsoluteName())
		}
		assert.Equal(t, "float", upperOf(g, "T"))
	})

	t.Run("no conversion in the other direction", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddUpperTypeBound("T", u.intT)
		assert.NoError(t, err)
		_, err = g.AddLowerTypeBound("T", u.floatT)
		assert.True(t, IsBoundContradiction(err))
	})
}

func TestSelfConvertibleIsNoOp(t *testing.T) {
	u := newUniverse()
	for _, upper := range []bool{false, true} {
		g := withVariables(t, u.graph(), "T")
		asT := u.factory.CreateConvertibleTypeSymbol()
		assert.NoError(t, g.Bind(asT, []TypeVariableID{"T"}))

		var result *BoundResult
		var err error
		if upper {
			result, err = g.AddUpperTypeBound("T", asT)
		} else {
			result, err = g.AddLowerTypeBound("T", asT)
		}
		assert.NoError(t, err)
		assert.False(t, result.HasChanged)
		assert.Nil(t, g.LowerTypeBounds("T"))
		assert.Nil(t, g.UpperTypeBounds("T"))
	}
}

func TestConvertibleBound(t *testing.T) {
	u := newUniverse()
	u.withConversions(u.intToFloat())
	setup := func(t *testing.T) (*Graph, *symbols.ConvertibleTypeSymbol) {
		g := withVariables(t, u.graph(), "T", "U")
		asT := u.factory.CreateConvertibleTypeSymbol()
		assert.NoError(t, g.Bind(asT, []TypeVariableID{"T"}))
		return g, asT
	}

	t.Run("lower bound is bridged once the convertible resolves", func(t *testing.T) {
		g, asT := setup(t)
		_, err := g.AddUpperTypeBound("U", asT)
		assert.NoError(t, err)
		_, err = g.AddLowerTypeBound("U", u.intT)
		assert.NoError(t, err)
		assert.Equal(t, "{as T}", upperOf(g, "U"))

		_, err = g.AddLowerTypeBound("T", u.floatT)
		assert.NoError(t, err, "int reaches {as float} through int2float")
		resolved, ok := g.ResolveConvertible(asT)
		assert.True(t, ok)
		assert.Equal(t, "float", resolved.AbsoluteName())
	})

	// the same three bounds must be rejected whichever comes last
	testCases := []struct {
		name  string
		order []string
	}{
		{name: "convertible resolves last", order: []string{"U upper", "U lower", "T lower"}},
		{name: "lower bound comes last", order: []string{"T lower", "U upper", "U lower"}},
		{name: "upper bound in between", order: []string{"U upper", "T lower", "U lower"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, asT := setup(t)
			apply := map[string]func() (*BoundResult, error){
				"U upper": func() (*BoundResult, error) { return g.AddUpperTypeBound("U", asT) },
				"U lower": func() (*BoundResult, error) { return g.AddLowerTypeBound("U", u.str) },
				"T lower": func() (*BoundResult, error) { return g.AddLowerTypeBound("T", u.floatT) },
			}
			last := len(tc.order) - 1
			for _, step := range tc.order[:last] {
				_, err := apply[step]()
				assert.NoError(t, err, step)
			}
			_, err := apply[tc.order[last]]()

			var upperErr *UpperBoundError
			if assert.True(t, errors.As(err, &upperErr), "%v", err) {
				assert.Equal(t, "U", upperErr.Variable)
			}
			assert.EqualError(t, err, "(E002) string cannot be a lower bound of U, it is not a subtype of the upper bound {as T}")
		})
	}
}

func TestAddLowerRefBound(t *testing.T) {
	u := newUniverse()

	t.Run("bounds flow along the edge", func(t *testing.T) {
		g := withVariables(t, u.graph(), "S", "T")
		_, err := g.AddLowerTypeBound("S", u.intT)
		assert.NoError(t, err)
		_, err = g.AddUpperTypeBound("T", u.num)
		assert.NoError(t, err)

		result, err := g.AddLowerRefBound("T", NewTypeVariableReference("S"))
		assert.NoError(t, err)
		assert.True(t, result.HasChanged)
		assert.Equal(t, []TypeVariableID{"S"}, g.LowerRefBounds("T"))
		assert.Equal(t, []TypeVariableID{"T"}, g.UpperRefBounds("S"))
		assert.Equal(t, "int", lowerOf(g, "T"))
		assert.Equal(t, "num", upperOf(g, "S"))

		_, err = g.AddLowerTypeBound("S", u.floatT)
		assert.NoError(t, err)
		assert.Equal(t, "(float | int)", lowerOf(g, "T"))
	})

	t.Run("repeated edge does not change anything", func(t *testing.T) {
		g := withVariables(t, u.graph(), "S", "T")
		_, err := g.AddLowerRefBound("T", NewTypeVariableReference("S"))
		assert.NoError(t, err)
		result, err := g.AddLowerRefBound("T", NewTypeVariableReference("S"))
		assert.NoError(t, err)
		assert.False(t, result.HasChanged)
	})

	t.Run("edges are closed transitively", func(t *testing.T) {
		g := withVariables(t, u.graph(), "A", "B", "C")
		_, err := g.AddLowerRefBound("B", NewTypeVariableReference("A"))
		assert.NoError(t, err)
		_, err = g.AddLowerRefBound("C", NewTypeVariableReference("B"))
		assert.NoError(t, err)
		assert.Equal(t, []TypeVariableID{"A", "B"}, g.LowerRefBounds("C"))
		assert.Equal(t, []TypeVariableID{"B", "C"}, g.UpperRefBounds("A"))
		assertRefSymmetry(t, g)
	})

	t.Run("cycle members list each other without self edges", func(t *testing.T) {
		g := withVariables(t, u.graph(), "A", "B", "C")
		_, err := g.AddLowerRefBound("B", NewTypeVariableReference("A"))
		assert.NoError(t, err)
		_, err = g.AddLowerRefBound("C", NewTypeVariableReference("B"))
		assert.NoError(t, err)
		_, err = g.AddLowerRefBound("A", NewTypeVariableReference("C"))
		assert.NoError(t, err)
		for _, id := range []TypeVariableID{"A", "B", "C"} {
			assert.NotContains(t, g.LowerRefBounds(id), id)
			assert.Len(t, g.LowerRefBounds(id), 2)
			assert.Len(t, g.UpperRefBounds(id), 2)
		}
		assertRefSymmetry(t, g)

		_, err = g.AddLowerTypeBound("A", u.intT)
		assert.NoError(t, err)
		for _, id := range []TypeVariableID{"A", "B", "C"} {
			assert.Equal(t, "int", lowerOf(g, id))
		}
	})

	t.Run("explicit self edge is added once and propagates nothing", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddLowerTypeBound("T", u.intT)
		assert.NoError(t, err)
		for range 2 {
			_, err = g.AddLowerRefBound("T", NewTypeVariableReference("T"))
			assert.NoError(t, err)
		}
		assert.Equal(t, []TypeVariableID{"T"}, g.LowerRefBounds("T"))
		assert.Equal(t, []TypeVariableID{"T"}, g.UpperRefBounds("T"))
		assert.Equal(t, 1, g.stats.lowerTypeBound)
		assert.Equal(t, 0, g.stats.upperTypeBound)
	})

	t.Run("fixed ref copies its lower bound without an edge", func(t *testing.T) {
		g := withVariables(t, u.graph(), "S", "T")
		_, err := g.AddLowerTypeBound("S", u.intT)
		assert.NoError(t, err)
		_, err = g.AddLowerRefBound("T", NewFixedTypeVariableReference("S"))
		assert.NoError(t, err)
		assert.Empty(t, g.LowerRefBounds("T"))
		assert.Empty(t, g.UpperRefBounds("S"))
		assert.Equal(t, "int", lowerOf(g, "T"))
	})

	t.Run("contradicting edge", func(t *testing.T) {
		g := withVariables(t, u.graph(), "S", "T")
		_, err := g.AddLowerTypeBound("S", u.str)
		assert.NoError(t, err)
		_, err = g.AddUpperTypeBound("T", u.intT)
		assert.NoError(t, err)

		_, err = g.AddLowerRefBound("T", NewTypeVariableReference("S"))
		var boundErr *BoundError
		assert.True(t, errors.As(err, &boundErr))
		assert.Equal(t, "T", boundErr.Variable)
		assert.Equal(t, "S", boundErr.Ref)
		assert.Equal(t, UpperBound, boundErr.Cause.Code())
		assert.True(t, IsBoundContradiction(err))
	})

	t.Run("unknown ref", func(t *testing.T) {
		g := withVariables(t, u.graph(), "T")
		_, err := g.AddLowerRefBound("T", NewTypeVariableReference("nope"))
		assert.True(t, errors.Is(err, ErrIllegalArgument))
	})
}

func TestRefSymmetryHoldsThroughOperations(t *testing.T) {
	u := newUniverse()
	g := withVariables(t, u.graph(), "A", "B", "C", "D", "E")
	edges := [][2]TypeVariableID{{"A", "B"}, {"B", "C"}, {"D", "C"}, {"C", "E"}, {"E", "B"}}
	for _, edge := range edges {
		_, err := g.AddLowerRefBound(edge[1], NewTypeVariableReference(edge[0]))
		assert.NoError(t, err)
		assertRefSymmetry(t, g)
	}
	assert.NoError(t, g.MergeFirstIntoSecond("E", "D"))
	assertRefSymmetry(t, g)
	assert.NoError(t, g.TryToFix([]TypeVariableID{"A"}))
	assertRefSymmetry(t, g)
}
