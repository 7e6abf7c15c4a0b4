package bindings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinfer/tinfer/lattice"
	"github.com/tinfer/tinfer/symbols"
)

// universe is a small type hierarchy shared by the tests:
//
//	num <- int, num <- float, string
//	IA, IB interfaces, Base <- Final (final)
type universe struct {
	factory *symbols.Factory
	helper  *lattice.Helper

	num, intT, floatT, str *symbols.ClassSymbol
	ia, ib                 *symbols.ClassSymbol
	base, final            *symbols.ClassSymbol
}

func newUniverse() *universe {
	u := &universe{factory: symbols.NewFactory()}
	u.num = symbols.NewClass("num", symbols.KindPrimitive, false)
	u.intT = symbols.NewClass("int", symbols.KindPrimitive, false, u.num)
	u.floatT = symbols.NewClass("float", symbols.KindPrimitive, false, u.num)
	u.str = symbols.NewClass("string", symbols.KindPrimitive, false)
	u.ia = symbols.NewClass("IA", symbols.KindInterface, false)
	u.ib = symbols.NewClass("IB", symbols.KindInterface, false)
	u.base = symbols.NewClass("Base", symbols.KindClass, false)
	u.final = symbols.NewClass("Final", symbols.KindClass, true, u.base)
	u.helper = lattice.NewHelper()
	return u
}

func (u *universe) withConversions(conversions ...lattice.Conversion) *universe {
	u.helper = lattice.NewHelper(conversions...)
	return u
}

func (u *universe) intToFloat() lattice.Conversion {
	return lattice.Conversion{From: u.intT, To: u.floatT, Implicit: true, Provider: "int2float"}
}

func (u *universe) graph(opts ...Option) *Graph {
	return New(u.helper, u.factory, opts...)
}

// withVariables registers one mutable variable per id, named "$" + id
func withVariables(t *testing.T, g *Graph, ids ...TypeVariableID) *Graph {
	t.Helper()
	for _, id := range ids {
		assert.NoError(t, g.AddVariable("$"+id, NewTypeVariableReference(id)))
	}
	return g
}

func lowerOf(g *Graph, id TypeVariableID) string {
	if l := g.LowerTypeBounds(id); l != nil {
		return l.AbsoluteName()
	}
	return ""
}

func upperOf(g *Graph, id TypeVariableID) string {
	if u := g.UpperTypeBounds(id); u != nil {
		return u.AbsoluteName()
	}
	return ""
}

// assertRefSymmetry checks that lower and upper ref bounds mirror each other
func assertRefSymmetry(t *testing.T, g *Graph) {
	t.Helper()
	for _, id := range g.TypeVariables() {
		for _, lower := range g.LowerRefBounds(id) {
			assert.Contains(t, g.UpperRefBounds(lower), id, "%s <: %s is not mirrored", lower, id)
		}
		for _, upper := range g.UpperRefBounds(id) {
			assert.Contains(t, g.LowerRefBounds(upper), id, "%s <: %s is not mirrored", id, upper)
		}
	}
}
