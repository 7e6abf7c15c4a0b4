// Package bindings is the constraint core of the type inference: per function
// body it tracks lower and upper bounds of type variables, propagates them along
// subtype edges between variables, and finally generalizes the result into a
// signature.
package bindings

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/benbjohnson/immutable"
	"github.com/hashicorp/go-set/v3"
	"github.com/tinfer/tinfer/internal/log"
	"github.com/tinfer/tinfer/lattice"
	"github.com/tinfer/tinfer/symbols"
	"github.com/tinfer/tinfer/util"
)

var logger = log.DefaultLogger.With("section", "bindings")

type TypeVariableID = string

// TypeVariableReference is what a variable name is bound to.
// A mutable reference is redirected when the type variable it denotes is merged
// into another one. A fixed reference permanently denotes one type variable.
type TypeVariableReference struct {
	id    TypeVariableID
	fixed bool
}

func NewTypeVariableReference(id TypeVariableID) *TypeVariableReference {
	return &TypeVariableReference{id: id}
}

func NewFixedTypeVariableReference(id TypeVariableID) *TypeVariableReference {
	return &TypeVariableReference{id: id, fixed: true}
}

func (r *TypeVariableReference) ID() TypeVariableID { return r.id }
func (r *TypeVariableReference) IsFixed() bool      { return r.fixed }
func (r *TypeVariableReference) String() string {
	if r.fixed {
		return r.id + "!"
	}
	return r.id
}

// State of a type variable during inference. Fixed is terminal.
type State int

const (
	Unconstrained State = iota
	Bounded
	Fixed
)

func (s State) String() string {
	switch s {
	case Unconstrained:
		return "unconstrained"
	case Bounded:
		return "bounded"
	case Fixed:
		return "fixed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Policy selects between the two flavors of the engine
type Policy int

const (
	// PlainPolicy mirrors a resolved lower bound onto the upper side in FixType only
	PlainPolicy Policy = iota
	// OverloadPolicy also mirrors when TryToFix freezes a variable
	OverloadPolicy
)

func (p Policy) String() string {
	if p == OverloadPolicy {
		return "overload"
	}
	return "plain"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "plain":
		return PlainPolicy, nil
	case "overload":
		return OverloadPolicy, nil
	default:
		return PlainPolicy, fmt.Errorf("unknown policy %q, expected plain or overload", s)
	}
}

// variableBounds is the arena record of one type variable
type variableBounds struct {
	lowerTypes *symbols.UnionTypeSymbol
	upperTypes *symbols.IntersectionTypeSymbol
	// lowerRefs are the variables known to be subtypes of this one,
	// upperRefs the ones known to be supertypes. They mirror each other
	// across the graph.
	lowerRefs *set.Set[TypeVariableID]
	upperRefs *set.Set[TypeVariableID]
	frozen    bool
}

func newVariableBounds() *variableBounds {
	return &variableBounds{
		lowerRefs: set.New[TypeVariableID](0),
		upperRefs: set.New[TypeVariableID](0),
	}
}

func (b *variableBounds) hasLowerTypes() bool { return b.lowerTypes != nil && !b.lowerTypes.IsEmpty() }
func (b *variableBounds) hasUpperTypes() bool { return b.upperTypes != nil && !b.upperTypes.IsEmpty() }

// callStats counts invocations of the propagation entry points
type callStats struct {
	lowerTypeBound int
	upperTypeBound int
	merges         int
}

// Graph is the binding collection of one function body or overload attempt.
//
// It is not safe for concurrent use. Copy produces a fully independent
// instance, which is how alternatives are explored.
type Graph struct {
	tag     symbols.OwnerTag
	helper  *lattice.Helper
	factory *symbols.Factory
	policy  Policy
	logger  *slog.Logger

	count            int
	names            []string
	variables        map[string]*TypeVariableReference
	bounds           map[TypeVariableID]*variableBounds
	// appliedOverloads is persistent so copies share it until one of them sets an entry
	appliedOverloads *immutable.Map[string, *FunctionType]

	stats callStats
}

var _ util.Copyable[*Graph] = (*Graph)(nil)

type Option func(*Graph)

func WithPolicy(p Policy) Option {
	return func(g *Graph) { g.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

func New(helper *lattice.Helper, factory *symbols.Factory, opts ...Option) *Graph {
	g := &Graph{
		tag:              symbols.NextOwnerTag(),
		helper:           helper,
		factory:          factory,
		policy:           PlainPolicy,
		logger:           logger,
		variables:        make(map[string]*TypeVariableReference),
		bounds:           make(map[TypeVariableID]*variableBounds),
		appliedOverloads: immutable.NewMap[string, *FunctionType](nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) Tag() symbols.OwnerTag { return g.tag }
func (g *Graph) Policy() Policy        { return g.policy }

// Owns reports whether c is bound to a type variable of this graph
func (g *Graph) Owns(c *symbols.ConvertibleTypeSymbol) bool {
	return c.IsBound() && c.Owner() == g.tag
}

// AddVariable binds name to ref. Each name can only be added once.
func (g *Graph) AddVariable(name string, ref *TypeVariableReference) error {
	if ref == nil {
		return illegalArgument("nil type variable reference for %s", name)
	}
	if _, exists := g.variables[name]; exists {
		return illegalArgument("variable %s was already added", name)
	}
	g.names = append(g.names, name)
	g.variables[name] = ref
	if _, exists := g.bounds[ref.id]; !exists {
		g.bounds[ref.id] = newVariableBounds()
	}
	g.logger.Debug("added variable", "var", name, "typeVariable", ref)
	return nil
}

func (g *Graph) ContainsVariable(name string) bool {
	_, ok := g.variables[name]
	return ok
}

func (g *Graph) GetTypeVariableReference(name string) (*TypeVariableReference, error) {
	ref, ok := g.variables[name]
	if !ok {
		return nil, illegalArgument("unknown variable %s", name)
	}
	return ref, nil
}

// GetTypeVariable is a shorthand for the id behind the reference of name
func (g *Graph) GetTypeVariable(name string) (TypeVariableID, error) {
	ref, err := g.GetTypeVariableReference(name)
	if err != nil {
		return "", err
	}
	return ref.id, nil
}

// GetNextTypeVariable mints a fresh mutable reference. The counter is part of
// what Copy duplicates, so a copy continues from the same point.
func (g *Graph) GetNextTypeVariable() *TypeVariableReference {
	g.count++
	return NewTypeVariableReference("V" + strconv.Itoa(g.count))
}

// Variables returns the variable names in insertion order
func (g *Graph) Variables() []string {
	return slices.Clone(g.names)
}

// TypeVariables returns every registered type variable in natural order
func (g *Graph) TypeVariables() []TypeVariableID {
	ids := slices.Collect(maps.Keys(g.bounds))
	slices.SortFunc(ids, util.CompareNatural)
	return ids
}

func (g *Graph) HasTypeVariable(id TypeVariableID) bool {
	_, ok := g.bounds[id]
	return ok
}

func (g *Graph) requireTypeVariable(id TypeVariableID) (*variableBounds, error) {
	b, ok := g.bounds[id]
	if !ok {
		return nil, illegalArgument("unknown type variable %s", id)
	}
	return b, nil
}

// Bind associates c with the type variable it refers to inside this graph.
// A convertible type must be bound before it participates in any bound.
func (g *Graph) Bind(c *symbols.ConvertibleTypeSymbol, typeVariables []TypeVariableID) error {
	for _, id := range typeVariables {
		if _, err := g.requireTypeVariable(id); err != nil {
			return err
		}
	}
	if err := c.BindTo(g.tag, typeVariables); err != nil {
		return illegalArgument("%v", err)
	}
	g.logger.Debug("bound convertible type", "convertible", c, "typeVariables", typeVariables)
	return nil
}

// requireOwned rejects convertible types which are unbound or bound to another graph
func (g *Graph) requireOwned(t symbols.TypeSymbol) error {
	for _, c := range symbols.Convertibles(t) {
		if c.IsFixed() {
			continue
		}
		if !g.Owns(c) {
			return illegalArgument("%s is not bound to this graph", c.AbsoluteName())
		}
		if _, err := g.requireTypeVariable(c.TypeVariable()); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) LowerTypeBounds(id TypeVariableID) *symbols.UnionTypeSymbol {
	if b, ok := g.bounds[id]; ok && b.hasLowerTypes() {
		return b.lowerTypes
	}
	return nil
}

func (g *Graph) UpperTypeBounds(id TypeVariableID) *symbols.IntersectionTypeSymbol {
	if b, ok := g.bounds[id]; ok && b.hasUpperTypes() {
		return b.upperTypes
	}
	return nil
}

// LowerRefBounds lists the type variables which flow into id
func (g *Graph) LowerRefBounds(id TypeVariableID) []TypeVariableID {
	if b, ok := g.bounds[id]; ok {
		return util.SortedSlice(b.lowerRefs, util.CompareNatural)
	}
	return nil
}

// UpperRefBounds lists the type variables id flows into
func (g *Graph) UpperRefBounds(id TypeVariableID) []TypeVariableID {
	if b, ok := g.bounds[id]; ok {
		return util.SortedSlice(b.upperRefs, util.CompareNatural)
	}
	return nil
}

func (g *Graph) HasLowerTypeBounds(id TypeVariableID) bool { return g.LowerTypeBounds(id) != nil }
func (g *Graph) HasUpperTypeBounds(id TypeVariableID) bool { return g.UpperTypeBounds(id) != nil }

func (g *Graph) State(id TypeVariableID) (State, error) {
	b, err := g.requireTypeVariable(id)
	if err != nil {
		return Unconstrained, err
	}
	if g.isFrozen(id) {
		return Fixed, nil
	}
	if b.hasLowerTypes() || b.hasUpperTypes() || b.lowerRefs.Size() > 0 || b.upperRefs.Size() > 0 {
		return Bounded, nil
	}
	return Unconstrained, nil
}

// isFrozen is true once a type variable was fixed, either directly or through
// a fixed reference pointing at it
func (g *Graph) isFrozen(id TypeVariableID) bool {
	if b, ok := g.bounds[id]; ok && b.frozen {
		return true
	}
	for _, ref := range g.variables {
		if ref.id == id && ref.fixed {
			return true
		}
	}
	return false
}

// ResolvedType is the single type id stands for once fixed: its lower bound,
// else its upper bound, else mixed
func (g *Graph) ResolvedType(id TypeVariableID) (symbols.TypeSymbol, error) {
	b, err := g.requireTypeVariable(id)
	if err != nil {
		return nil, err
	}
	return g.resolvedType(b), nil
}

func (g *Graph) resolvedType(b *variableBounds) symbols.TypeSymbol {
	switch {
	case b.hasLowerTypes():
		return collapse(b.lowerTypes.TypeSymbols(), b.lowerTypes)
	case b.hasUpperTypes():
		return collapse(b.upperTypes.TypeSymbols(), b.upperTypes)
	default:
		return g.factory.GetMixedTypeSymbol()
	}
}

// collapse returns the sole member of a container, or the container itself
func collapse(members []symbols.TypeSymbol, container symbols.TypeSymbol) symbols.TypeSymbol {
	if len(members) == 1 {
		return members[0]
	}
	return container
}

// ResolveConvertible implements lattice.Resolver. A convertible bound to a
// type variable stands for that variable's lower bound, else its upper bound,
// ignoring nested convertible members. ok is false while neither exists.
func (g *Graph) ResolveConvertible(c *symbols.ConvertibleTypeSymbol) (symbols.TypeSymbol, bool) {
	if c.IsFixed() {
		return c.Target(), true
	}
	if !g.Owns(c) {
		return nil, false
	}
	b, ok := g.bounds[c.TypeVariable()]
	if !ok {
		return nil, false
	}
	if b.hasLowerTypes() {
		if u := g.withoutConvertibles(b.lowerTypes.TypeSymbols()); !u.IsEmpty() {
			return collapse(u.TypeSymbols(), u), true
		}
	}
	if b.hasUpperTypes() {
		i := g.factory.CreateIntersectionTypeSymbol()
		for _, member := range b.upperTypes.TypeSymbols() {
			if _, isConvertible := member.(*symbols.ConvertibleTypeSymbol); !isConvertible {
				i.AddTypeSymbol(member)
			}
		}
		if !i.IsEmpty() {
			return collapse(i.TypeSymbols(), i), true
		}
	}
	return nil, false
}

func (g *Graph) withoutConvertibles(members []symbols.TypeSymbol) *symbols.UnionTypeSymbol {
	u := g.factory.CreateUnionTypeSymbol()
	for _, member := range members {
		if _, isConvertible := member.(*symbols.ConvertibleTypeSymbol); !isConvertible {
			u.AddTypeSymbol(member)
		}
	}
	return u
}

func (g *Graph) SetAppliedOverload(name string, overload *FunctionType) error {
	if !g.ContainsVariable(name) {
		return illegalArgument("unknown variable %s", name)
	}
	g.appliedOverloads = g.appliedOverloads.Set(name, overload)
	return nil
}

func (g *Graph) GetAppliedOverload(name string) (*FunctionType, bool) {
	return g.appliedOverloads.Get(name)
}
