package symbols

// Factory creates the container and convertible symbols the bindings engine
// needs, and hands out the shared mixed type.
type Factory struct {
	mixed *MixedSymbol
}

func NewFactory() *Factory {
	return &Factory{mixed: &MixedSymbol{}}
}

func (f *Factory) GetMixedTypeSymbol() *MixedSymbol { return f.mixed }

func (f *Factory) CreateUnionTypeSymbol(members ...TypeSymbol) *UnionTypeSymbol {
	u := &UnionTypeSymbol{typeSymbolMap: newTypeSymbolMap(len(members))}
	for _, m := range members {
		u.AddTypeSymbol(m)
	}
	return u
}

func (f *Factory) CreateIntersectionTypeSymbol(members ...TypeSymbol) *IntersectionTypeSymbol {
	i := &IntersectionTypeSymbol{typeSymbolMap: newTypeSymbolMap(len(members))}
	for _, m := range members {
		i.AddTypeSymbol(m)
	}
	return i
}

// CreateConvertibleTypeSymbol returns an unbound convertible type. It must be
// bound to a graph before it can be used in a bound.
func (f *Factory) CreateConvertibleTypeSymbol() *ConvertibleTypeSymbol {
	return &ConvertibleTypeSymbol{}
}

func (f *Factory) CreateFixedConvertibleTypeSymbol(target TypeSymbol) *ConvertibleTypeSymbol {
	return &ConvertibleTypeSymbol{target: target}
}
