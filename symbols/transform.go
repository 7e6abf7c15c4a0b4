package symbols

// MapConvertibles rebuilds t with every nested ConvertibleTypeSymbol replaced
// by the result of f, at any depth of unions and intersections.
// Containers are always rebuilt, so the result never aliases a container of t.
// Classes and mixed are immutable and shared.
func MapConvertibles(t TypeSymbol, f func(*ConvertibleTypeSymbol) TypeSymbol) TypeSymbol {
	switch t := t.(type) {
	case *ConvertibleTypeSymbol:
		return f(t)
	case *UnionTypeSymbol:
		u := &UnionTypeSymbol{typeSymbolMap: newTypeSymbolMap(t.Len())}
		for _, member := range t.TypeSymbols() {
			u.AddTypeSymbol(MapConvertibles(member, f))
		}
		return u
	case *IntersectionTypeSymbol:
		i := &IntersectionTypeSymbol{typeSymbolMap: newTypeSymbolMap(t.Len())}
		for _, member := range t.TypeSymbols() {
			i.AddTypeSymbol(MapConvertibles(member, f))
		}
		return i
	default:
		return t
	}
}

// Walk visits t and then its members depth first. Returning false from visit
// stops the walk.
func Walk(t TypeSymbol, visit func(TypeSymbol) bool) bool {
	if !visit(t) {
		return false
	}
	var members []TypeSymbol
	switch t := t.(type) {
	case *UnionTypeSymbol:
		members = t.TypeSymbols()
	case *IntersectionTypeSymbol:
		members = t.TypeSymbols()
	}
	for _, member := range members {
		if !Walk(member, visit) {
			return false
		}
	}
	return true
}

// Convertibles lists every convertible type nested in t
func Convertibles(t TypeSymbol) []*ConvertibleTypeSymbol {
	var found []*ConvertibleTypeSymbol
	Walk(t, func(t TypeSymbol) bool {
		if c, ok := t.(*ConvertibleTypeSymbol); ok {
			found = append(found, c)
		}
		return true
	})
	return found
}
