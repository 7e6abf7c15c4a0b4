// Package lattice answers subtype and conversion questions over type symbols.
// It is pure: all state lives in persistent tables, so one Helper can be shared
// by every graph forked during an overload search.
package lattice

import (
	"slices"

	"github.com/benbjohnson/immutable"
	"github.com/tinfer/tinfer/symbols"
)

// Conversion converts values of From into values of To
type Conversion struct {
	From     symbols.TypeSymbol
	To       symbols.TypeSymbol
	Implicit bool
	// Provider names whatever performs the conversion (a cast, a method, ...)
	Provider string
}

func (c Conversion) String() string {
	kind := "explicit"
	if c.Implicit {
		kind = "implicit"
	}
	return kind + " " + c.From.AbsoluteName() + " -> " + c.To.AbsoluteName() + " via " + c.Provider
}

// Resolver looks up the type a convertible type bound to a type variable
// currently stands for. ok is false while the variable is unconstrained.
type Resolver interface {
	ResolveConvertible(c *symbols.ConvertibleTypeSymbol) (t symbols.TypeSymbol, ok bool)
}

type Helper struct {
	// conversions is keyed by the absolute name of Conversion.From
	conversions *immutable.Map[string, []Conversion]
}

func NewHelper(conversions ...Conversion) *Helper {
	b := immutable.NewMapBuilder[string, []Conversion](nil)
	for _, c := range conversions {
		key := c.From.AbsoluteName()
		existing, _ := b.Get(key)
		b.Set(key, append(slices.Clone(existing), c))
	}
	return &Helper{conversions: b.Map()}
}

// WithConversion returns a new Helper which also knows c. The receiver is unchanged.
func (h *Helper) WithConversion(c Conversion) *Helper {
	key := c.From.AbsoluteName()
	existing, _ := h.conversions.Get(key)
	return &Helper{conversions: h.conversions.Set(key, append(slices.Clone(existing), c))}
}

func resolve(c *symbols.ConvertibleTypeSymbol, r Resolver) (symbols.TypeSymbol, bool) {
	if c.IsFixed() {
		return c.Target(), true
	}
	if r == nil {
		return nil, false
	}
	return r.ResolveConvertible(c)
}

// IsSameOrSubType reports whether a <: b.
//
// A convertible type on the right accepts anything which is a subtype of, or
// convertible to, what it resolves to. An unresolved convertible type is only
// related to itself and to mixed.
func (h *Helper) IsSameOrSubType(a, b symbols.TypeSymbol, r Resolver) bool {
	if a.AbsoluteName() == b.AbsoluteName() {
		return true
	}
	if _, isMixed := b.(*symbols.MixedSymbol); isMixed {
		return true
	}
	if u, ok := a.(*symbols.UnionTypeSymbol); ok {
		for _, member := range u.TypeSymbols() {
			if !h.IsSameOrSubType(member, b, r) {
				return false
			}
		}
		return true
	}
	if i, ok := b.(*symbols.IntersectionTypeSymbol); ok {
		for _, member := range i.TypeSymbols() {
			if !h.IsSameOrSubType(a, member, r) {
				return false
			}
		}
		return true
	}
	if c, ok := a.(*symbols.ConvertibleTypeSymbol); ok {
		target, resolved := resolve(c, r)
		return resolved && h.IsSameOrSubType(target, b, r)
	}
	if u, ok := b.(*symbols.UnionTypeSymbol); ok {
		for _, member := range u.TypeSymbols() {
			if h.IsSameOrSubType(a, member, r) {
				return true
			}
		}
		return false
	}
	if c, ok := b.(*symbols.ConvertibleTypeSymbol); ok {
		target, resolved := resolve(c, r)
		if !resolved {
			return false
		}
		return h.IsSameOrSubType(a, target, r) || h.isConvertible(a, target, r)
	}
	if i, ok := a.(*symbols.IntersectionTypeSymbol); ok {
		for _, member := range i.TypeSymbols() {
			if h.IsSameOrSubType(member, b, r) {
				return true
			}
		}
		return false
	}
	return a.IsSubtypeOf(b)
}

func (h *Helper) IsSameOrParentType(a, b symbols.TypeSymbol, r Resolver) bool {
	return h.IsSameOrSubType(b, a, r)
}

func (h *Helper) AreSameType(a, b symbols.TypeSymbol, r Resolver) bool {
	return h.IsSameOrSubType(a, b, r) && h.IsSameOrSubType(b, a, r)
}

// GetImplicitConversion finds an implicit conversion bridging from to to.
// A conversion applies when from <: c.From and c.To <: to. For a union from,
// every member must either be a subtype of to or have its own conversion; the
// last conversion needed is returned.
func (h *Helper) GetImplicitConversion(from, to symbols.TypeSymbol, r Resolver) (Conversion, bool) {
	if u, ok := from.(*symbols.UnionTypeSymbol); ok {
		var found Conversion
		used := false
		for _, member := range u.TypeSymbols() {
			if h.IsSameOrSubType(member, to, r) {
				continue
			}
			c, ok := h.GetImplicitConversion(member, to, r)
			if !ok {
				return Conversion{}, false
			}
			found, used = c, true
		}
		return found, used
	}
	for _, c := range h.candidates(from, r) {
		if c.Implicit && h.IsSameOrSubType(c.To, to, r) {
			return c, true
		}
	}
	return Conversion{}, false
}

// GetExplicitConversions lists the explicit conversions applicable to from
func (h *Helper) GetExplicitConversions(from symbols.TypeSymbol, r Resolver) []Conversion {
	var explicit []Conversion
	for _, c := range h.candidates(from, r) {
		if !c.Implicit {
			explicit = append(explicit, c)
		}
	}
	return explicit
}

func (h *Helper) isConvertible(from, to symbols.TypeSymbol, r Resolver) bool {
	if _, ok := h.GetImplicitConversion(from, to, r); ok {
		return true
	}
	for _, c := range h.GetExplicitConversions(from, r) {
		if h.IsSameOrSubType(c.To, to, r) {
			return true
		}
	}
	return false
}

// candidates returns the conversions whose source accepts from, the exact
// source match first and the rest ordered by source name
func (h *Helper) candidates(from symbols.TypeSymbol, r Resolver) []Conversion {
	exact, _ := h.conversions.Get(from.AbsoluteName())
	out := slices.Clone(exact)

	var keys []string
	itr := h.conversions.Iterator()
	for !itr.Done() {
		key, _, _ := itr.Next()
		if key != from.AbsoluteName() {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		conversions, _ := h.conversions.Get(key)
		for _, c := range conversions {
			if h.IsSameOrSubType(from, c.From, r) {
				out = append(out, c)
			}
		}
	}
	return out
}
