package bindings

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/tinfer/tinfer/symbols"
	"github.com/tinfer/tinfer/util"
)

// AddLowerTypeBound joins t into the lower bound of id and propagates it to
// every type variable id flows into.
//
// It fails with an *UpperBoundError when t does not fit an upper bound on the
// way and no implicit conversion bridges the two.
func (g *Graph) AddLowerTypeBound(id TypeVariableID, t symbols.TypeSymbol) (*BoundResult, error) {
	if _, err := g.requireTypeVariable(id); err != nil {
		return nil, err
	}
	if err := g.requireOwned(t); err != nil {
		return nil, err
	}
	result := &BoundResult{}
	if g.isSelfConvertible(id, t) {
		g.logger.Debug("skipped self convertible lower bound", "var", id, "bound", t)
		return result, nil
	}
	return result, g.propagateLower(id, t, result)
}

// AddUpperTypeBound meets t into the upper bound of id and propagates it to
// every type variable flowing into id.
//
// It fails with a *LowerBoundError when an existing lower bound is not a
// subtype of t, and with an *IntersectionBoundError when t cannot coexist with
// another upper bound member.
func (g *Graph) AddUpperTypeBound(id TypeVariableID, t symbols.TypeSymbol) (*BoundResult, error) {
	if _, err := g.requireTypeVariable(id); err != nil {
		return nil, err
	}
	if err := g.requireOwned(t); err != nil {
		return nil, err
	}
	result := &BoundResult{}
	if g.isSelfConvertible(id, t) {
		g.logger.Debug("skipped self convertible upper bound", "var", id, "bound", t)
		return result, nil
	}
	return result, g.propagateUpper(id, t, result)
}

// AddLowerRefBound registers ref <: id.
//
// A fixed ref creates no edge: its current lower bound is copied into id once.
// Otherwise the edge is added together with its transitive closure, so every
// member of a cycle lists every other member as a direct neighbour, and the
// bounds of both ends flow across once.
func (g *Graph) AddLowerRefBound(id TypeVariableID, ref *TypeVariableReference) (*BoundResult, error) {
	b, err := g.requireTypeVariable(id)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, illegalArgument("nil lower ref bound for %s", id)
	}
	refBounds, err := g.requireTypeVariable(ref.id)
	if err != nil {
		return nil, err
	}
	result := &BoundResult{}

	if ref.fixed {
		if ref.id == id || !refBounds.hasLowerTypes() {
			return result, nil
		}
		err := g.propagateLower(id, g.snapshot(refBounds.lowerTypes), result)
		return result, asBoundError(id, ref.id, err)
	}

	if ref.id == id {
		if b.lowerRefs.Insert(id) {
			b.upperRefs.Insert(id)
			result.HasChanged = true
			g.logger.Debug("added self ref bound", "var", id)
		}
		return result, nil
	}

	return result, asBoundError(id, ref.id, g.addRefEdge(ref.id, id, result))
}

func asBoundError(id, ref TypeVariableID, err error) error {
	if err == nil {
		return nil
	}
	if _, isBoundErr := err.(*BoundError); isBoundErr {
		return err
	}
	if cause, ok := err.(BoundsError); ok {
		return &BoundError{Variable: id, Ref: ref, Cause: cause}
	}
	return err
}

// addRefEdge adds lower <: upper and closes it transitively
func (g *Graph) addRefEdge(lower, upper TypeVariableID, result *BoundResult) error {
	lowerBounds, upperBounds := g.bounds[lower], g.bounds[upper]
	if upperBounds.lowerRefs.Contains(lower) {
		return nil
	}
	lowers := append([]TypeVariableID{lower}, util.SortedSlice(lowerBounds.lowerRefs, util.CompareNatural)...)
	uppers := append([]TypeVariableID{upper}, util.SortedSlice(upperBounds.upperRefs, util.CompareNatural)...)
	for _, x := range lowers {
		for _, y := range uppers {
			if x != y {
				g.link(x, y)
			}
		}
	}
	result.HasChanged = true
	g.logger.Debug("added ref bound", "lower", lower, "upper", upper)

	if lowerBounds.hasLowerTypes() {
		if err := g.propagateLower(upper, g.snapshot(lowerBounds.lowerTypes), result); err != nil {
			return err
		}
	}
	if upperBounds.hasUpperTypes() {
		return g.propagateUpper(lower, g.snapshot(upperBounds.upperTypes), result)
	}
	return nil
}

func (g *Graph) link(lower, upper TypeVariableID) {
	g.bounds[upper].lowerRefs.Insert(lower)
	g.bounds[lower].upperRefs.Insert(upper)
}

func (g *Graph) unlink(lower, upper TypeVariableID) {
	if b, ok := g.bounds[upper]; ok {
		b.lowerRefs.Remove(lower)
	}
	if b, ok := g.bounds[lower]; ok {
		b.upperRefs.Remove(upper)
	}
}

// propagateLower joins t into start and then into everything start flows
// into. Each variable is visited at most once per call, and propagation stops
// wherever t was already absorbed.
func (g *Graph) propagateLower(start TypeVariableID, t symbols.TypeSymbol, result *BoundResult) error {
	g.stats.lowerTypeBound++
	visited := set.New[TypeVariableID](len(g.bounds))
	work := util.Stack[TypeVariableID]{}
	work.Push(start)
	for {
		id, ok := work.Pop()
		if !ok {
			return nil
		}
		if !visited.Insert(id) {
			continue
		}
		changed, err := g.joinLower(id, t, result)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		result.HasChanged = true
		if err := g.recheckDependents(id, result); err != nil {
			return err
		}
		for _, up := range util.SortedSlice(g.bounds[id].upperRefs, util.CompareNatural) {
			if !visited.Contains(up) {
				work.Push(up)
			}
		}
	}
}

// propagateUpper is the mirror of propagateLower, walking towards subtypes
func (g *Graph) propagateUpper(start TypeVariableID, t symbols.TypeSymbol, result *BoundResult) error {
	g.stats.upperTypeBound++
	visited := set.New[TypeVariableID](len(g.bounds))
	work := util.Stack[TypeVariableID]{}
	work.Push(start)
	for {
		id, ok := work.Pop()
		if !ok {
			return nil
		}
		if !visited.Insert(id) {
			continue
		}
		changed, err := g.meetUpper(id, t, result)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		result.HasChanged = true
		if err := g.recheckDependents(id, result); err != nil {
			return err
		}
		for _, down := range util.SortedSlice(g.bounds[id].lowerRefs, util.CompareNatural) {
			if !visited.Contains(down) {
				work.Push(down)
			}
		}
	}
}

func (g *Graph) joinLower(id TypeVariableID, t symbols.TypeSymbol, result *BoundResult) (bool, error) {
	b := g.bounds[id]
	changed := false
	for _, m := range g.members(id, t, flattenUnion) {
		if g.lowerAbsorbs(b, m) {
			continue
		}
		if err := g.checkAgainstUpper(id, b, m, result); err != nil {
			return changed, err
		}
		g.insertLower(id, b, m)
		changed = true
	}
	return changed, nil
}

func (g *Graph) meetUpper(id TypeVariableID, t symbols.TypeSymbol, result *BoundResult) (bool, error) {
	b := g.bounds[id]
	changed := false
	for _, m := range g.members(id, t, flattenIntersection) {
		if g.upperAbsorbs(b, m) {
			continue
		}
		sources, err := g.checkAgainstLower(id, b, m, result)
		if err != nil {
			return changed, err
		}
		if err := g.insertUpper(id, b, m); err != nil {
			return changed, err
		}
		changed = true
		// the lower bound is restricted to what the conversion accepts, so
		// that the concrete representation stays consistent
		for _, source := range sources {
			result.LowerConstraints = append(result.LowerConstraints, source)
			if err := g.propagateLower(id, source, result); err != nil {
				return changed, err
			}
		}
	}
	return changed, nil
}

// members splits t with flatten and drops convertible types pointing at id itself
func (g *Graph) members(id TypeVariableID, t symbols.TypeSymbol, flatten func(symbols.TypeSymbol) []symbols.TypeSymbol) []symbols.TypeSymbol {
	var out []symbols.TypeSymbol
	for _, m := range flatten(t) {
		if !g.isSelfConvertible(id, m) {
			out = append(out, m)
		}
	}
	return out
}

func flattenUnion(t symbols.TypeSymbol) []symbols.TypeSymbol {
	u, ok := t.(*symbols.UnionTypeSymbol)
	if !ok {
		return []symbols.TypeSymbol{t}
	}
	var out []symbols.TypeSymbol
	for _, m := range u.TypeSymbols() {
		out = append(out, flattenUnion(m)...)
	}
	return out
}

func flattenIntersection(t symbols.TypeSymbol) []symbols.TypeSymbol {
	i, ok := t.(*symbols.IntersectionTypeSymbol)
	if !ok {
		return []symbols.TypeSymbol{t}
	}
	var out []symbols.TypeSymbol
	for _, m := range i.TypeSymbols() {
		out = append(out, flattenIntersection(m)...)
	}
	return out
}

func (g *Graph) isSelfConvertible(id TypeVariableID, t symbols.TypeSymbol) bool {
	c, ok := t.(*symbols.ConvertibleTypeSymbol)
	return ok && g.Owns(c) && c.TypeVariable() == id
}

// isUnresolved is true for a convertible type whose variable has no bound yet.
// It constrains nothing until it resolves.
func (g *Graph) isUnresolved(t symbols.TypeSymbol) bool {
	c, ok := t.(*symbols.ConvertibleTypeSymbol)
	if !ok {
		return false
	}
	_, resolved := g.ResolveConvertible(c)
	return !resolved
}

func (g *Graph) lowerAbsorbs(b *variableBounds, m symbols.TypeSymbol) bool {
	if !b.hasLowerTypes() {
		return false
	}
	for _, existing := range b.lowerTypes.TypeSymbols() {
		if g.helper.IsSameOrSubType(m, existing, g) {
			return true
		}
	}
	return false
}

func (g *Graph) upperAbsorbs(b *variableBounds, m symbols.TypeSymbol) bool {
	if !b.hasUpperTypes() {
		return false
	}
	for _, existing := range b.upperTypes.TypeSymbols() {
		if g.helper.IsSameOrSubType(existing, m, g) {
			return true
		}
	}
	return false
}

// checkAgainstUpper validates a new lower bound member. When only an implicit
// conversion bridges it, the upper bound narrows to the conversion target.
func (g *Graph) checkAgainstUpper(id TypeVariableID, b *variableBounds, m symbols.TypeSymbol, result *BoundResult) error {
	if !b.hasUpperTypes() || g.isUnresolved(m) {
		return nil
	}
	checkable := g.checkableUpper(b)
	if checkable.IsEmpty() || g.helper.IsSameOrSubType(m, checkable, g) {
		return nil
	}
	conversion, ok := g.helper.GetImplicitConversion(m, checkable, g)
	if !ok {
		return &UpperBoundError{Variable: id, NewLower: m, Upper: g.snapshot(b.upperTypes)}
	}
	result.usedConversion(conversion)
	g.logger.Debug("lower bound needs implicit conversion", "var", id, "bound", m, "conversion", conversion)
	return g.propagateUpper(id, conversion.To, result)
}

// checkableUpper is the upper bound of b without the convertible types which
// do not resolve yet
func (g *Graph) checkableUpper(b *variableBounds) *symbols.IntersectionTypeSymbol {
	checkable := g.factory.CreateIntersectionTypeSymbol()
	for _, u := range b.upperTypes.TypeSymbols() {
		if !g.isUnresolved(u) {
			checkable.AddTypeSymbol(u)
		}
	}
	return checkable
}

// recheckDependents validates again every type variable whose bounds hold a
// convertible type bound to id. Such a convertible may have been unresolved
// when the bounds around it were checked, or resolve to something else now.
func (g *Graph) recheckDependents(id TypeVariableID, result *BoundResult) error {
	for _, dependent := range g.TypeVariables() {
		b := g.bounds[dependent]
		if !b.hasLowerTypes() || !b.hasUpperTypes() {
			continue
		}
		if !g.pointsAt(b.lowerTypes, id) && !g.pointsAt(b.upperTypes, id) {
			continue
		}
		checkable := g.checkableUpper(b)
		if checkable.IsEmpty() {
			continue
		}
		for _, l := range b.lowerTypes.TypeSymbols() {
			if g.isUnresolved(l) || g.helper.IsSameOrSubType(l, checkable, g) {
				continue
			}
			conversion, ok := g.helper.GetImplicitConversion(l, checkable, g)
			if !ok {
				return &UpperBoundError{Variable: dependent, NewLower: g.snapshot(l), Upper: g.snapshot(b.upperTypes)}
			}
			result.usedConversion(conversion)
		}
		g.logger.Debug("rechecked bounds", "var", dependent, "changed", id)
	}
	return nil
}

// pointsAt reports whether t nests a convertible type of this graph bound to id
func (g *Graph) pointsAt(t symbols.TypeSymbol, id TypeVariableID) bool {
	for _, c := range symbols.Convertibles(t) {
		if g.Owns(c) && c.TypeVariable() == id {
			return true
		}
	}
	return false
}

// checkAgainstLower validates a new upper bound member and returns the
// sources of the implicit conversions it relies on
func (g *Graph) checkAgainstLower(id TypeVariableID, b *variableBounds, m symbols.TypeSymbol, result *BoundResult) ([]symbols.TypeSymbol, error) {
	if !b.hasLowerTypes() || g.isUnresolved(m) {
		return nil, nil
	}
	var sources []symbols.TypeSymbol
	for _, l := range b.lowerTypes.TypeSymbols() {
		if g.isUnresolved(l) || g.helper.IsSameOrSubType(l, m, g) {
			continue
		}
		conversion, ok := g.helper.GetImplicitConversion(l, m, g)
		if !ok {
			return nil, &LowerBoundError{Variable: id, NewUpper: m, Lower: g.snapshot(b.lowerTypes)}
		}
		result.usedConversion(conversion)
		sources = append(sources, conversion.From)
		g.logger.Debug("upper bound needs implicit conversion", "var", id, "bound", m, "conversion", conversion)
	}
	return sources, nil
}

func (g *Graph) insertLower(id TypeVariableID, b *variableBounds, m symbols.TypeSymbol) {
	if b.lowerTypes == nil {
		b.lowerTypes = g.factory.CreateUnionTypeSymbol()
	}
	for _, existing := range b.lowerTypes.TypeSymbols() {
		if g.helper.IsSameOrSubType(existing, m, g) {
			b.lowerTypes.RemoveTypeSymbol(existing.AbsoluteName())
		}
	}
	// the graph keeps its own copy so that no caller can rebind a stored convertible
	b.lowerTypes.AddTypeSymbol(g.snapshot(m))
	g.logger.Debug("added lower bound", "var", id, "bound", m, "lower", b.lowerTypes)
}

func (g *Graph) insertUpper(id TypeVariableID, b *variableBounds, m symbols.TypeSymbol) error {
	if b.upperTypes == nil {
		b.upperTypes = g.factory.CreateIntersectionTypeSymbol()
	}
	var replaced []string
	for _, existing := range b.upperTypes.TypeSymbols() {
		if g.helper.IsSameOrSubType(m, existing, g) {
			replaced = append(replaced, existing.AbsoluteName())
			continue
		}
		if existing.IsFinal() || m.IsFinal() ||
			!existing.CanBeUsedInIntersection() && !m.CanBeUsedInIntersection() {
			return &IntersectionBoundError{Variable: id, NewUpper: m, Conflicting: existing}
		}
	}
	for _, name := range replaced {
		b.upperTypes.RemoveTypeSymbol(name)
	}
	b.upperTypes.AddTypeSymbol(g.snapshot(m))
	g.logger.Debug("added upper bound", "var", id, "bound", m, "upper", b.upperTypes)
	return nil
}

// snapshot deep copies t so that it can be stored or propagated while the graph changes
func (g *Graph) snapshot(t symbols.TypeSymbol) symbols.TypeSymbol {
	return symbols.MapConvertibles(t, func(c *symbols.ConvertibleTypeSymbol) symbols.TypeSymbol {
		return c.Copy()
	})
}
