package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassSymbol(t *testing.T) {
	num := NewClass("num", KindPrimitive, false)
	intT := NewClass("int", KindPrimitive, false, num)
	iface := NewClass("Countable", KindInterface, false)
	impl := NewClass("List", KindClass, true, iface)
	mixed := NewFactory().GetMixedTypeSymbol()

	testCases := []struct {
		name     string
		sub      TypeSymbol
		super    TypeSymbol
		expected bool
	}{
		{name: "direct parent", sub: intT, super: num, expected: true},
		{name: "not a child", sub: num, super: intT, expected: false},
		{name: "itself", sub: intT, super: intT, expected: true},
		{name: "implemented interface", sub: impl, super: iface, expected: true},
		{name: "everything is mixed", sub: impl, super: mixed, expected: true},
		{name: "mixed is only mixed", sub: mixed, super: num, expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.sub.IsSubtypeOf(tc.super))
		})
	}

	assert.True(t, impl.IsFinal())
	assert.True(t, iface.CanBeUsedInIntersection())
	assert.False(t, intT.CanBeUsedInIntersection())
	assert.Equal(t, "interface", iface.Kind().String())
}

func TestContainerNames(t *testing.T) {
	f := NewFactory()
	a := NewClass("a", KindClass, false)
	b := NewClass("b", KindClass, false)

	assert.Equal(t, "nothing", f.CreateUnionTypeSymbol().AbsoluteName())
	assert.Equal(t, "a", f.CreateUnionTypeSymbol(a).AbsoluteName())
	assert.Equal(t, "(a | b)", f.CreateUnionTypeSymbol(b, a).AbsoluteName())
	assert.Equal(t, "mixed", f.CreateIntersectionTypeSymbol().AbsoluteName())
	assert.Equal(t, "(a & b)", f.CreateIntersectionTypeSymbol(b, a).AbsoluteName())
}

func TestUnionTypeSymbol(t *testing.T) {
	f := NewFactory()
	a := NewClass("a", KindClass, false)
	b := NewClass("b", KindClass, false)
	u := f.CreateUnionTypeSymbol()

	assert.True(t, u.IsEmpty())
	assert.True(t, u.AddTypeSymbol(b))
	assert.True(t, u.AddTypeSymbol(a))
	assert.False(t, u.AddTypeSymbol(NewClass("a", KindClass, false)), "members are deduplicated by name")
	assert.Equal(t, []TypeSymbol{b, a}, u.TypeSymbols(), "members keep insertion order")
	assert.Equal(t, 2, u.Len())

	assert.True(t, u.RemoveTypeSymbol("b"))
	assert.False(t, u.RemoveTypeSymbol("b"))
	assert.Equal(t, []TypeSymbol{a}, u.TypeSymbols())

	assert.True(t, u.AddTypeSymbol(b))
	assert.Equal(t, []TypeSymbol{a, b}, u.TypeSymbols(), "a removed member goes to the back when added again")
	assert.Equal(t, "(a | b)", u.AbsoluteName())
}

func TestConvertibleTypeSymbol(t *testing.T) {
	f := NewFactory()
	c := f.CreateConvertibleTypeSymbol()
	assert.False(t, c.IsBound())
	assert.Error(t, c.BindTo(NoOwner, []string{"T"}))
	assert.Error(t, c.BindTo(NextOwnerTag(), nil))

	owner := NextOwnerTag()
	assert.NoError(t, c.BindTo(owner, []string{"T"}))
	assert.True(t, c.IsBound())
	assert.Equal(t, owner, c.Owner())
	assert.Equal(t, "{as T}", c.String())

	copied := c.Copy()
	assert.True(t, copied.RenameTypeParameter("T", "U"))
	assert.False(t, copied.RenameTypeParameter("T", "U"))
	assert.Equal(t, "{as U}", copied.AbsoluteName())
	assert.Equal(t, "{as T}", c.AbsoluteName())

	fixed := f.CreateFixedConvertibleTypeSymbol(NewClass("int", KindPrimitive, false))
	assert.True(t, fixed.IsFixed())
	assert.False(t, fixed.IsBound())
	assert.Error(t, fixed.BindTo(owner, []string{"T"}))
	assert.False(t, fixed.RenameTypeParameter("", "U"))
	assert.Equal(t, "{as int}", fixed.AbsoluteName())

	assert.NotEqual(t, NextOwnerTag(), NextOwnerTag())
}

func TestMapConvertibles(t *testing.T) {
	f := NewFactory()
	a := NewClass("a", KindClass, false)
	c := f.CreateConvertibleTypeSymbol()
	assert.NoError(t, c.BindTo(NextOwnerTag(), []string{"T"}))
	nested := f.CreateUnionTypeSymbol(a, f.CreateIntersectionTypeSymbol(c, a))

	renamed := MapConvertibles(nested, func(c *ConvertibleTypeSymbol) TypeSymbol {
		copied := c.Copy()
		copied.RenameTypeParameter("T", "U")
		return copied
	})
	assert.Equal(t, "((a & {as U}) | a)", renamed.AbsoluteName())
	assert.Equal(t, "((a & {as T}) | a)", nested.AbsoluteName())
	assert.Len(t, Convertibles(renamed), 1)
	assert.NotSame(t, c, Convertibles(renamed)[0])
	assert.Same(t, a, renamed.(*UnionTypeSymbol).TypeSymbols()[0])

	visited := 0
	Walk(nested, func(TypeSymbol) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
