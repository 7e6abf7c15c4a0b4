package problem

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
	"github.com/tinfer/tinfer/bindings"
	"github.com/tinfer/tinfer/lattice"
	"github.com/tinfer/tinfer/symbols"
)

// Universe holds the named types of a problem
type Universe struct {
	factory *symbols.Factory
	types   map[string]symbols.TypeSymbol
}

func NewUniverse(factory *symbols.Factory, decls []TypeDecl) (*Universe, error) {
	u := &Universe{
		factory: factory,
		types:   map[string]symbols.TypeSymbol{symbols.MixedName: factory.GetMixedTypeSymbol()},
	}
	for _, decl := range decls {
		if decl.Name == "" {
			return nil, errors.New("type declaration without a name")
		}
		if _, exists := u.types[decl.Name]; exists {
			return nil, errors.Errorf("type %s is declared twice", decl.Name)
		}
		kind, err := parseKind(decl.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", decl.Name)
		}
		parents := make([]symbols.TypeSymbol, 0, len(decl.Parents))
		for _, name := range decl.Parents {
			parent, ok := u.types[name]
			if !ok {
				return nil, errors.Errorf("parent %s of %s must be declared before it", name, decl.Name)
			}
			parents = append(parents, parent)
		}
		u.types[decl.Name] = symbols.NewClass(decl.Name, kind, decl.Final, parents...)
	}
	return u, nil
}

func parseKind(kind string) (symbols.Kind, error) {
	switch kind {
	case "", "primitive":
		return symbols.KindPrimitive, nil
	case "class":
		return symbols.KindClass, nil
	case "interface":
		return symbols.KindInterface, nil
	default:
		return symbols.KindPrimitive, errors.Errorf("unknown kind %q", kind)
	}
}

func (u *Universe) Lookup(name string) (symbols.TypeSymbol, bool) {
	t, ok := u.types[name]
	return t, ok
}

// Helper builds the lattice helper knowing the given conversions
func (u *Universe) Helper(decls []ConversionDecl) (*lattice.Helper, error) {
	conversions := make([]lattice.Conversion, 0, len(decls))
	for _, decl := range decls {
		from, ok := u.Lookup(decl.From)
		if !ok {
			return nil, errors.Errorf("conversion from unknown type %s", decl.From)
		}
		to, ok := u.Lookup(decl.To)
		if !ok {
			return nil, errors.Errorf("conversion to unknown type %s", decl.To)
		}
		provider := decl.Provider
		if provider == "" {
			provider = decl.From + "->" + decl.To
		}
		conversions = append(conversions, lattice.Conversion{From: from, To: to, Implicit: decl.Implicit, Provider: provider})
	}
	return lattice.NewHelper(conversions...), nil
}

var (
	typeLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
		{Name: "Punct", Pattern: `[|&()]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})
	typeParser = participle.MustBuild[typeExpr](
		participle.Lexer(typeLexer),
		participle.Elide("Whitespace"),
	)
)

// typeExpr is a union of intersections. & binds tighter than |.
type typeExpr struct {
	Union []*intersectionExpr `parser:"@@ ( '|' @@ )*"`
}

type intersectionExpr struct {
	Members []*atomExpr `parser:"@@ ( '&' @@ )*"`
}

type atomExpr struct {
	Convertible *atomExpr `parser:"  'as' @@"`
	Group       *typeExpr `parser:"| '(' @@ ')'"`
	Name        string    `parser:"| @Ident"`
}

// ParseType reads a type expression in the context of g:
//
//	int                a named type, or mixed
//	a | b, a & b       a union or an intersection, parenthesised when nested
//	as T               convertible to the type variable T of g
//	as int             convertible to a fixed type
func (u *Universe) ParseType(expr string, g *bindings.Graph) (symbols.TypeSymbol, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, errors.New("empty type expression")
	}
	for _, op := range []string{"|", "&"} {
		if strings.HasSuffix(trimmed, op) {
			return nil, errors.Errorf("type expression %q ends with %s, a type must follow it", trimmed, op)
		}
	}
	parsed, err := typeParser.ParseString("", trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "type expression %q", trimmed)
	}
	return u.buildType(parsed, g)
}

func (u *Universe) buildType(e *typeExpr, g *bindings.Graph) (symbols.TypeSymbol, error) {
	if len(e.Union) == 1 {
		return u.buildIntersection(e.Union[0], g)
	}
	union := u.factory.CreateUnionTypeSymbol()
	for _, part := range e.Union {
		member, err := u.buildIntersection(part, g)
		if err != nil {
			return nil, err
		}
		union.AddTypeSymbol(member)
	}
	return union, nil
}

func (u *Universe) buildIntersection(e *intersectionExpr, g *bindings.Graph) (symbols.TypeSymbol, error) {
	if len(e.Members) == 1 {
		return u.buildAtom(e.Members[0], g)
	}
	intersection := u.factory.CreateIntersectionTypeSymbol()
	for _, part := range e.Members {
		member, err := u.buildAtom(part, g)
		if err != nil {
			return nil, err
		}
		intersection.AddTypeSymbol(member)
	}
	return intersection, nil
}

func (u *Universe) buildAtom(e *atomExpr, g *bindings.Graph) (symbols.TypeSymbol, error) {
	switch {
	case e.Convertible != nil:
		return u.buildConvertible(e.Convertible, g)
	case e.Group != nil:
		return u.buildType(e.Group, g)
	}
	t, ok := u.Lookup(e.Name)
	if !ok {
		return nil, errors.Errorf("unknown type %s", e.Name)
	}
	return t, nil
}

// buildConvertible binds to a type variable of g when the target is a bare
// name g knows, and fixes the target type otherwise
func (u *Universe) buildConvertible(target *atomExpr, g *bindings.Graph) (symbols.TypeSymbol, error) {
	if target.Name != "" && g.HasTypeVariable(target.Name) {
		c := u.factory.CreateConvertibleTypeSymbol()
		if err := g.Bind(c, []bindings.TypeVariableID{target.Name}); err != nil {
			return nil, err
		}
		return c, nil
	}
	t, err := u.buildAtom(target, g)
	if err != nil {
		return nil, errors.Wrap(err, "convertible target is neither a type variable nor a type")
	}
	return u.factory.CreateFixedConvertibleTypeSymbol(t), nil
}
