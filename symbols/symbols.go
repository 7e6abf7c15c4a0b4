// Package symbols holds the type symbols the bindings engine reasons about:
// nominal classes and interfaces, the mixed top type, unions, intersections and
// convertible types.
package symbols

import (
	"fmt"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TypeSymbol is a concrete type which can appear in a lower or upper type bound
type TypeSymbol interface {
	fmt.Stringer
	// AbsoluteName identifies the type; containers deduplicate members by it
	AbsoluteName() string
	ParentTypeSymbols() []TypeSymbol
	IsFinal() bool
	CanBeUsedInIntersection() bool
	// IsSubtypeOf is nominal only, see lattice.Helper for the full relation
	IsSubtypeOf(other TypeSymbol) bool
}

var (
	_ TypeSymbol = (*ClassSymbol)(nil)
	_ TypeSymbol = (*MixedSymbol)(nil)
	_ TypeSymbol = (*UnionTypeSymbol)(nil)
	_ TypeSymbol = (*IntersectionTypeSymbol)(nil)
	_ TypeSymbol = (*ConvertibleTypeSymbol)(nil)
)

type Kind int

const (
	KindPrimitive Kind = iota
	KindClass
	KindInterface
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ClassSymbol is a nominal type: a primitive, a class or an interface.
// It is immutable once constructed and can be shared between graphs.
type ClassSymbol struct {
	name    string
	kind    Kind
	final   bool
	parents []TypeSymbol
}

func NewClass(name string, kind Kind, final bool, parents ...TypeSymbol) *ClassSymbol {
	return &ClassSymbol{
		name:    name,
		kind:    kind,
		final:   final,
		parents: slices.Clone(parents),
	}
}

func (c *ClassSymbol) AbsoluteName() string            { return c.name }
func (c *ClassSymbol) String() string                  { return c.name }
func (c *ClassSymbol) Kind() Kind                      { return c.kind }
func (c *ClassSymbol) IsFinal() bool                   { return c.final }
func (c *ClassSymbol) ParentTypeSymbols() []TypeSymbol { return slices.Clone(c.parents) }

// CanBeUsedInIntersection is true for interfaces only. An intersection may hold
// any number of interfaces but at most one class or primitive.
func (c *ClassSymbol) CanBeUsedInIntersection() bool { return c.kind == KindInterface }

func (c *ClassSymbol) IsSubtypeOf(other TypeSymbol) bool {
	switch other := other.(type) {
	case *MixedSymbol:
		return true
	case *ClassSymbol:
		return c.hasAncestor(other.name)
	default:
		return false
	}
}

func (c *ClassSymbol) hasAncestor(name string) bool {
	visited := make(map[string]struct{})
	queue := []TypeSymbol{c}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.AbsoluteName() == name {
			return true
		}
		if _, seen := visited[current.AbsoluteName()]; seen {
			continue
		}
		visited[current.AbsoluteName()] = struct{}{}
		queue = append(queue, current.ParentTypeSymbols()...)
	}
	return false
}

// MixedSymbol is the top type
type MixedSymbol struct{}

const MixedName = "mixed"

func (*MixedSymbol) AbsoluteName() string            { return MixedName }
func (*MixedSymbol) String() string                  { return MixedName }
func (*MixedSymbol) ParentTypeSymbols() []TypeSymbol { return nil }
func (*MixedSymbol) IsFinal() bool                   { return false }
func (*MixedSymbol) CanBeUsedInIntersection() bool   { return true }
func (*MixedSymbol) IsSubtypeOf(other TypeSymbol) bool {
	_, isMixed := other.(*MixedSymbol)
	return isMixed
}

// typeSymbolMap holds the members of a container in insertion order, keyed by absolute name
type typeSymbolMap struct {
	members *orderedmap.OrderedMap[string, TypeSymbol]
}

func newTypeSymbolMap(size int) typeSymbolMap {
	return typeSymbolMap{members: orderedmap.New[string, TypeSymbol](size)}
}

func (m *typeSymbolMap) add(t TypeSymbol) bool {
	name := t.AbsoluteName()
	if _, ok := m.members.Get(name); ok {
		return false
	}
	m.members.Set(name, t)
	return true
}

func (m *typeSymbolMap) remove(name string) bool {
	_, ok := m.members.Delete(name)
	return ok
}

func (m *typeSymbolMap) size() int { return m.members.Len() }

func (m *typeSymbolMap) typeSymbols() []TypeSymbol {
	out := make([]TypeSymbol, 0, m.members.Len())
	for pair := m.members.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (m *typeSymbolMap) sortedNames() []string {
	names := make([]string, 0, m.members.Len())
	for pair := m.members.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	slices.Sort(names)
	return names
}

func (m *typeSymbolMap) joinedName(separator, empty string) string {
	switch m.members.Len() {
	case 0:
		return empty
	case 1:
		return m.members.Oldest().Key
	default:
		return "(" + strings.Join(m.sortedNames(), separator) + ")"
	}
}

// UnionTypeSymbol is a join of its members
type UnionTypeSymbol struct {
	typeSymbolMap
}

const NothingName = "nothing"

func (u *UnionTypeSymbol) AddTypeSymbol(t TypeSymbol) bool    { return u.add(t) }
func (u *UnionTypeSymbol) RemoveTypeSymbol(name string) bool  { return u.remove(name) }
func (u *UnionTypeSymbol) TypeSymbols() []TypeSymbol          { return u.typeSymbols() }
func (u *UnionTypeSymbol) Len() int                           { return u.size() }
func (u *UnionTypeSymbol) IsEmpty() bool                      { return u.size() == 0 }
func (u *UnionTypeSymbol) AbsoluteName() string               { return u.joinedName(" | ", NothingName) }
func (u *UnionTypeSymbol) String() string                     { return u.AbsoluteName() }
func (u *UnionTypeSymbol) ParentTypeSymbols() []TypeSymbol    { return nil }
func (u *UnionTypeSymbol) IsFinal() bool                      { return false }
func (u *UnionTypeSymbol) CanBeUsedInIntersection() bool      { return true }
func (u *UnionTypeSymbol) IsSubtypeOf(other TypeSymbol) bool {
	for _, member := range u.typeSymbols() {
		if !member.IsSubtypeOf(other) {
			return false
		}
	}
	return true
}

// IntersectionTypeSymbol is a meet of its members
type IntersectionTypeSymbol struct {
	typeSymbolMap
}

func (i *IntersectionTypeSymbol) AddTypeSymbol(t TypeSymbol) bool   { return i.add(t) }
func (i *IntersectionTypeSymbol) RemoveTypeSymbol(name string) bool { return i.remove(name) }
func (i *IntersectionTypeSymbol) TypeSymbols() []TypeSymbol         { return i.typeSymbols() }
func (i *IntersectionTypeSymbol) Len() int                          { return i.size() }
func (i *IntersectionTypeSymbol) IsEmpty() bool                     { return i.size() == 0 }
func (i *IntersectionTypeSymbol) AbsoluteName() string              { return i.joinedName(" & ", MixedName) }
func (i *IntersectionTypeSymbol) String() string                    { return i.AbsoluteName() }
func (i *IntersectionTypeSymbol) ParentTypeSymbols() []TypeSymbol   { return nil }
func (i *IntersectionTypeSymbol) IsFinal() bool {
	for _, member := range i.typeSymbols() {
		if member.IsFinal() {
			return true
		}
	}
	return false
}
func (i *IntersectionTypeSymbol) CanBeUsedInIntersection() bool {
	for _, member := range i.typeSymbols() {
		if !member.CanBeUsedInIntersection() {
			return false
		}
	}
	return true
}
func (i *IntersectionTypeSymbol) IsSubtypeOf(other TypeSymbol) bool {
	for _, member := range i.typeSymbols() {
		if member.IsSubtypeOf(other) {
			return true
		}
	}
	return false
}
