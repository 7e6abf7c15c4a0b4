package symbols

import (
	"fmt"
	"sync/atomic"
)

// OwnerTag identifies the graph a ConvertibleTypeSymbol is bound to.
// Tags are never reused within a process, so a copy of a graph gets a tag
// distinct from the original.
type OwnerTag uint64

// NoOwner is the tag of an unbound convertible type
const NoOwner OwnerTag = 0

var lastOwnerTag atomic.Uint64

func NextOwnerTag() OwnerTag {
	return OwnerTag(lastOwnerTag.Add(1))
}

// ConvertibleTypeSymbol stands for "anything convertible to X", where X is
// either a type variable of its owning graph or a fixed target type.
//
// Construct with Factory.CreateConvertibleTypeSymbol or
// Factory.CreateFixedConvertibleTypeSymbol.
type ConvertibleTypeSymbol struct {
	owner        OwnerTag
	typeVariable string
	target       TypeSymbol
}

// BindTo associates the convertible type with exactly one type variable of the graph identified by owner
func (c *ConvertibleTypeSymbol) BindTo(owner OwnerTag, typeParameters []string) error {
	if owner == NoOwner {
		return fmt.Errorf("cannot bind %s to an unidentified graph", c.AbsoluteName())
	}
	if len(typeParameters) != 1 {
		return fmt.Errorf("a convertible type is bound to exactly one type variable, got %d", len(typeParameters))
	}
	if c.target != nil {
		return fmt.Errorf("%s has a fixed target and cannot be bound", c.AbsoluteName())
	}
	c.owner = owner
	c.typeVariable = typeParameters[0]
	return nil
}

// RenameTypeParameter redirects the convertible type from oldName to newName
// if it is currently bound to oldName
func (c *ConvertibleTypeSymbol) RenameTypeParameter(oldName, newName string) bool {
	if c.target != nil || c.typeVariable != oldName {
		return false
	}
	c.typeVariable = newName
	return true
}

func (c *ConvertibleTypeSymbol) Owner() OwnerTag      { return c.owner }
func (c *ConvertibleTypeSymbol) TypeVariable() string { return c.typeVariable }
func (c *ConvertibleTypeSymbol) Target() TypeSymbol   { return c.target }
func (c *ConvertibleTypeSymbol) IsFixed() bool        { return c.target != nil }
func (c *ConvertibleTypeSymbol) IsBound() bool        { return c.target == nil && c.owner != NoOwner }

func (c *ConvertibleTypeSymbol) Copy() *ConvertibleTypeSymbol {
	copied := *c
	return &copied
}

func (c *ConvertibleTypeSymbol) AbsoluteName() string {
	switch {
	case c.target != nil:
		return "{as " + c.target.AbsoluteName() + "}"
	case c.typeVariable != "":
		return "{as " + c.typeVariable + "}"
	default:
		return "{as ?}"
	}
}

func (c *ConvertibleTypeSymbol) String() string                  { return c.AbsoluteName() }
func (c *ConvertibleTypeSymbol) ParentTypeSymbols() []TypeSymbol { return nil }
func (c *ConvertibleTypeSymbol) IsFinal() bool                   { return false }
func (c *ConvertibleTypeSymbol) CanBeUsedInIntersection() bool   { return true }
func (c *ConvertibleTypeSymbol) IsSubtypeOf(other TypeSymbol) bool {
	if _, isMixed := other.(*MixedSymbol); isMixed {
		return true
	}
	return c.AbsoluteName() == other.AbsoluteName()
}
