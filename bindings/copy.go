package bindings

import (
	"slices"

	"github.com/tinfer/tinfer/symbols"
)

// Copy returns an independent graph under a new owner tag.
//
// Convertible types nested at any depth of a bound are cloned and rebound to
// the copy, so neither graph can observe mutations of the other. Variable
// names sharing one reference keep sharing one (new) reference. Call counters
// start from zero.
func (g *Graph) Copy() *Graph {
	c := &Graph{
		tag:              symbols.NextOwnerTag(),
		helper:           g.helper,
		factory:          g.factory,
		policy:           g.policy,
		logger:           g.logger,
		count:            g.count,
		names:            slices.Clone(g.names),
		variables:        make(map[string]*TypeVariableReference, len(g.variables)),
		bounds:           make(map[TypeVariableID]*variableBounds, len(g.bounds)),
		appliedOverloads: g.appliedOverloads,
	}

	copiedRefs := make(map[*TypeVariableReference]*TypeVariableReference, len(g.variables))
	for name, ref := range g.variables {
		copied, ok := copiedRefs[ref]
		if !ok {
			copied = &TypeVariableReference{id: ref.id, fixed: ref.fixed}
			copiedRefs[ref] = copied
		}
		c.variables[name] = copied
	}

	rebind := func(conv *symbols.ConvertibleTypeSymbol) symbols.TypeSymbol {
		copied := conv.Copy()
		if g.Owns(conv) {
			// cannot fail: the copy is bound and has no fixed target
			_ = copied.BindTo(c.tag, []string{conv.TypeVariable()})
		}
		return copied
	}
	for id, b := range g.bounds {
		copied := &variableBounds{
			lowerRefs: b.lowerRefs.Copy(),
			upperRefs: b.upperRefs.Copy(),
			frozen:    b.frozen,
		}
		if b.lowerTypes != nil {
			copied.lowerTypes = symbols.MapConvertibles(b.lowerTypes, rebind).(*symbols.UnionTypeSymbol)
		}
		if b.upperTypes != nil {
			copied.upperTypes = symbols.MapConvertibles(b.upperTypes, rebind).(*symbols.IntersectionTypeSymbol)
		}
		c.bounds[id] = copied
	}

	g.logger.Debug("copied bindings", "from", g.tag, "to", c.tag, "typeVariables", len(c.bounds))
	return c
}
