package bindings

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
	"github.com/tinfer/tinfer/internal/graphutil"
	"github.com/tinfer/tinfer/symbols"
	"github.com/tinfer/tinfer/util"
)

// FixType freezes the type variable behind name. Its reference becomes fixed
// and a one sided bound is mirrored so that both sides hold the resolved type.
// Fixing an already fixed variable changes nothing.
func (g *Graph) FixType(name string) error {
	ref, err := g.GetTypeVariableReference(name)
	if err != nil {
		return err
	}
	if !ref.fixed {
		g.variables[name] = NewFixedTypeVariableReference(ref.id)
	}
	b := g.bounds[ref.id]
	g.mirror(b)
	b.frozen = true
	g.logger.Debug("fixed type", "var", name, "typeVariable", ref.id, "resolved", g.resolvedType(b))
	return nil
}

// FixTypeParameter freezes id like FixType does, defaulting to mixed on both
// sides when id has no bound at all
func (g *Graph) FixTypeParameter(id TypeVariableID) error {
	b, err := g.requireTypeVariable(id)
	if err != nil {
		return err
	}
	g.markReferencesFixed(id)
	if !b.hasLowerTypes() && !b.hasUpperTypes() {
		mixed := g.factory.GetMixedTypeSymbol()
		b.lowerTypes = g.factory.CreateUnionTypeSymbol(mixed)
		b.upperTypes = g.factory.CreateIntersectionTypeSymbol(mixed)
	} else {
		g.mirror(b)
	}
	b.frozen = true
	g.logger.Debug("fixed type parameter", "typeVariable", id, "resolved", g.resolvedType(b))
	return nil
}

func (g *Graph) markReferencesFixed(id TypeVariableID) {
	for _, ref := range g.variables {
		if ref.id == id {
			ref.fixed = true
		}
	}
}

// mirror copies the resolved type onto whichever side of b is empty, as long
// as the other one is not
func (g *Graph) mirror(b *variableBounds) {
	switch {
	case b.hasLowerTypes() && !b.hasUpperTypes():
		g.setUpper(b, g.resolvedType(b))
	case b.hasUpperTypes() && !b.hasLowerTypes():
		g.setLower(b, g.resolvedType(b))
	}
}

func (g *Graph) setLower(b *variableBounds, t symbols.TypeSymbol) {
	b.lowerTypes = g.factory.CreateUnionTypeSymbol(flattenUnion(g.snapshot(t))...)
}

func (g *Graph) setUpper(b *variableBounds, t symbols.TypeSymbol) {
	b.upperTypes = g.factory.CreateIntersectionTypeSymbol(flattenIntersection(g.snapshot(t))...)
}

// TryToFix generalizes the graph at the end of a function body.
//
// Type variables no parameter flows into are fixed to their resolved type,
// the rest stays parametric. Ref cycles are collapsed into one representative
// first, preferring a parameter, and parametric variables which cannot be told
// apart from the parameter flowing into them are merged into it.
func (g *Graph) TryToFix(parameterIDs []TypeVariableID) error {
	for _, id := range parameterIDs {
		if _, err := g.requireTypeVariable(id); err != nil {
			return err
		}
	}
	params := util.SetFromSeq(slices.Values(parameterIDs), len(parameterIDs))

	g.pruneSelfLoops()
	if err := g.collapseCycles(params); err != nil {
		return err
	}

	done := set.New[TypeVariableID](len(g.bounds))
	for {
		fixable := g.fixable(params, done)
		if len(fixable) == 0 {
			break
		}
		for _, id := range fixable {
			if err := g.fix(id); err != nil {
				return err
			}
			done.Insert(id)
		}
	}

	return g.coalesce(params)
}

func (g *Graph) pruneSelfLoops() {
	for id, b := range g.bounds {
		if b.lowerRefs.Contains(id) {
			g.unlink(id, id)
			g.logger.Debug("pruned self ref bound", "var", id)
		}
	}
}

// collapseCycles merges every ref cycle into a single type variable
func (g *Graph) collapseCycles(params *set.Set[TypeVariableID]) error {
	components := graphutil.StronglyConnected(g.TypeVariables(), g.UpperRefBounds)
	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		slices.SortFunc(component, util.CompareNatural)
		representative := component[0]
		if i := slices.IndexFunc(component, params.Contains); i >= 0 {
			representative = component[i]
		}
		g.logger.Debug("collapsing ref cycle", "cycle", component, "representative", representative)
		for _, id := range component {
			if id == representative {
				continue
			}
			if err := g.MergeFirstIntoSecond(id, representative); err != nil {
				return err
			}
			if params.Remove(id) {
				params.Insert(representative)
			}
		}
	}
	return nil
}

// fixable lists, in natural order, the type variables not yet in done which
// can be fixed right now
func (g *Graph) fixable(params, done *set.Set[TypeVariableID]) []TypeVariableID {
	var out []TypeVariableID
	for _, id := range g.TypeVariables() {
		if done.Contains(id) {
			continue
		}
		b := g.bounds[id]
		switch {
		case g.isFrozen(id):
			out = append(out, id)
		case params.Contains(id):
			// a parameter only bounded from below is a constant
			if b.hasLowerTypes() && !b.hasUpperTypes() && !g.reachesParameter(id, params) {
				out = append(out, id)
			}
		case !g.reachesParameter(id, params):
			out = append(out, id)
		}
	}
	return out
}

// reachesParameter reports whether some other parameter flows into id
func (g *Graph) reachesParameter(id TypeVariableID, params *set.Set[TypeVariableID]) bool {
	visited := set.New[TypeVariableID](0)
	work := util.Stack[TypeVariableID]{}
	work.Push(id)
	for {
		current, ok := work.Pop()
		if !ok {
			return false
		}
		if !visited.Insert(current) {
			continue
		}
		for lower := range g.bounds[current].lowerRefs.Items() {
			if lower != id && params.Contains(lower) {
				return true
			}
			work.Push(lower)
		}
	}
}

// fix freezes id to its resolved type, hands the type on to every variable
// it flows into and detaches it from the graph
func (g *Graph) fix(id TypeVariableID) error {
	b := g.bounds[id]
	resolved := g.resolvedType(b)
	if !b.hasLowerTypes() {
		g.setLower(b, resolved)
	}
	if g.policy == OverloadPolicy && !b.hasUpperTypes() {
		g.setUpper(b, resolved)
	}

	result := &BoundResult{}
	for _, upper := range util.SortedSlice(b.upperRefs, util.CompareNatural) {
		if err := g.propagateLower(upper, g.snapshot(resolved), result); err != nil {
			return err
		}
	}
	for _, lower := range util.SortedSlice(b.lowerRefs, util.CompareNatural) {
		g.unlink(lower, id)
	}
	for _, upper := range util.SortedSlice(b.upperRefs, util.CompareNatural) {
		g.unlink(id, upper)
	}

	b.frozen = true
	g.markReferencesFixed(id)
	g.logger.Debug("fixed type variable", "var", id, "resolved", resolved, "policy", g.policy)
	return nil
}

// coalesce merges a parametric variable into the one parameter right below it
// when nothing but the ref edge separates the two
func (g *Graph) coalesce(params *set.Set[TypeVariableID]) error {
	for changed := true; changed; {
		changed = false
		for _, id := range g.TypeVariables() {
			if params.Contains(id) || g.isFrozen(id) {
				continue
			}
			param, ok := g.nearestLower(id)
			if !ok || !params.Contains(param) || !g.indistinguishable(id, param) {
				continue
			}
			g.logger.Debug("coalescing type variable", "var", id, "into", param)
			if err := g.MergeFirstIntoSecond(id, param); err != nil {
				return err
			}
			changed = true
			break
		}
	}
	return nil
}

// nearestLower returns the lower ref of id which every other lower ref of id
// flows into, if there is one
func (g *Graph) nearestLower(id TypeVariableID) (TypeVariableID, bool) {
	lowers := g.bounds[id].lowerRefs
	for _, candidate := range util.SortedSlice(lowers, util.CompareNatural) {
		below := g.bounds[candidate].lowerRefs
		nearest := true
		for other := range lowers.Items() {
			if other != candidate && !below.Contains(other) {
				nearest = false
				break
			}
		}
		if nearest {
			return candidate, true
		}
	}
	return "", false
}

func (g *Graph) indistinguishable(id, param TypeVariableID) bool {
	b, p := g.bounds[id], g.bounds[param]
	if lowerName(b) != lowerName(p) {
		return false
	}
	return !b.hasUpperTypes() || upperName(b) == upperName(p)
}

func lowerName(b *variableBounds) string {
	if !b.hasLowerTypes() {
		return ""
	}
	return b.lowerTypes.AbsoluteName()
}

func upperName(b *variableBounds) string {
	if !b.hasUpperTypes() {
		return ""
	}
	return b.upperTypes.AbsoluteName()
}
