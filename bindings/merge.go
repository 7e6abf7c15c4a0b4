package bindings

import (
	"github.com/tinfer/tinfer/symbols"
	"github.com/tinfer/tinfer/util"
)

// MergeFirstIntoSecond makes newID stand for everything oldID stood for.
//
// Mutable references to oldID are redirected, its bounds are joined and met
// into newID, its ref edges are rewritten to newID and convertible types bound
// to oldID are rebound to newID. A fixed reference keeps pointing at oldID,
// in which case the record of oldID survives the merge.
//
// Merging a type variable into itself does nothing.
func (g *Graph) MergeFirstIntoSecond(oldID, newID TypeVariableID) error {
	oldBounds, err := g.requireTypeVariable(oldID)
	if err != nil {
		return err
	}
	if _, err := g.requireTypeVariable(newID); err != nil {
		return err
	}
	if oldID == newID {
		return nil
	}
	g.stats.merges++
	g.logger.Debug("merging type variable", "old", oldID, "new", newID)

	keepOld := false
	for _, ref := range g.variables {
		if ref.id != oldID {
			continue
		}
		if ref.fixed {
			keepOld = true
			continue
		}
		ref.id = newID
	}
	lowers := util.SortedSlice(oldBounds.lowerRefs, util.CompareNatural)
	uppers := util.SortedSlice(oldBounds.upperRefs, util.CompareNatural)
	for _, lower := range lowers {
		g.unlink(lower, oldID)
	}
	for _, upper := range uppers {
		g.unlink(oldID, upper)
	}

	g.renameConvertibles(oldID, newID)

	result := &BoundResult{}
	if oldBounds.hasLowerTypes() {
		if err := g.propagateLower(newID, g.snapshot(oldBounds.lowerTypes), result); err != nil {
			return err
		}
	}
	if oldBounds.hasUpperTypes() {
		if err := g.propagateUpper(newID, g.snapshot(oldBounds.upperTypes), result); err != nil {
			return err
		}
	}
	if oldBounds.frozen {
		g.bounds[newID].frozen = true
	}

	for _, lower := range lowers {
		if lower == oldID || lower == newID {
			continue
		}
		if err := g.addRefEdge(lower, newID, result); err != nil {
			return err
		}
	}
	for _, upper := range uppers {
		if upper == oldID || upper == newID {
			continue
		}
		if err := g.addRefEdge(newID, upper, result); err != nil {
			return err
		}
	}

	if !keepOld {
		delete(g.bounds, oldID)
	}
	return nil
}

// RenameTypeVariable is MergeFirstIntoSecond under the name the inference
// engine uses when unifying two variables
func (g *Graph) RenameTypeVariable(oldID, newID TypeVariableID) error {
	return g.MergeFirstIntoSecond(oldID, newID)
}

// renameConvertibles rebinds every convertible type pointing at oldID to
// newID. A convertible ending up as a bound of the very variable it points at
// is a tautology and is dropped.
func (g *Graph) renameConvertibles(oldID, newID TypeVariableID) {
	rename := func(c *symbols.ConvertibleTypeSymbol) symbols.TypeSymbol {
		if !g.Owns(c) || c.TypeVariable() != oldID {
			return c
		}
		renamed := c.Copy()
		renamed.RenameTypeParameter(oldID, newID)
		return renamed
	}

	for id, b := range g.bounds {
		holder := id
		if holder == oldID {
			holder = newID
		}
		if b.lowerTypes != nil && g.pointsAt(b.lowerTypes, oldID) {
			renamed := symbols.MapConvertibles(b.lowerTypes, rename).(*symbols.UnionTypeSymbol)
			g.dropSelfConvertibles(holder, renamed.TypeSymbols(), renamed.RemoveTypeSymbol)
			b.lowerTypes = renamed
		}
		if b.upperTypes != nil && g.pointsAt(b.upperTypes, oldID) {
			renamed := symbols.MapConvertibles(b.upperTypes, rename).(*symbols.IntersectionTypeSymbol)
			g.dropSelfConvertibles(holder, renamed.TypeSymbols(), renamed.RemoveTypeSymbol)
			b.upperTypes = renamed
		}
	}
}

func (g *Graph) dropSelfConvertibles(holder TypeVariableID, members []symbols.TypeSymbol, remove func(string) bool) {
	for _, m := range members {
		if g.isSelfConvertible(holder, m) {
			g.logger.Debug("dropped tautological bound", "var", holder, "bound", m)
			remove(m.AbsoluteName())
		}
	}
}
