package bindings

import (
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/tinfer/tinfer/util"
)

// FunctionType captures a generalized function: the graph it was inferred in
// and the variable names of its parameters and return value
type FunctionType struct {
	Name           string
	Bindings       *Graph
	Parameters     []string
	ReturnVariable string
}

func NewFunctionType(name string, bindings *Graph, parameters []string, returnVariable string) *FunctionType {
	return &FunctionType{
		Name:           name,
		Bindings:       bindings,
		Parameters:     parameters,
		ReturnVariable: returnVariable,
	}
}

func (f *FunctionType) String() string {
	signature, err := f.Signature()
	if err != nil {
		return f.Name + ": " + err.Error()
	}
	return f.Name + ": " + signature
}

// Signature formats the function as `P1 x P2 -> R \ constraints`.
//
// Fixed type variables print as their resolved type, parametric ones as their
// id. The constraints list the bounds of every parametric type variable the
// signature mentions or is connected to by a ref bound.
func (f *FunctionType) Signature() (string, error) {
	parameters := make([]string, 0, len(f.Parameters))
	mentioned := make([]TypeVariableID, 0, len(f.Parameters)+1)
	for _, name := range f.Parameters {
		id, err := f.Bindings.GetTypeVariable(name)
		if err != nil {
			return "", err
		}
		parameters = append(parameters, f.typeString(id))
		mentioned = append(mentioned, id)
	}
	returnID, err := f.Bindings.GetTypeVariable(f.ReturnVariable)
	if err != nil {
		return "", err
	}
	mentioned = append(mentioned, returnID)

	var sb strings.Builder
	if len(parameters) == 0 {
		sb.WriteString("void")
	} else {
		sb.WriteString(strings.Join(parameters, " x "))
	}
	sb.WriteString(" -> ")
	sb.WriteString(f.typeString(returnID))

	if constraints := f.constraints(mentioned); len(constraints) > 0 {
		sb.WriteString(` \ `)
		sb.WriteString(strings.Join(constraints, ", "))
	}
	return sb.String(), nil
}

func (f *FunctionType) typeString(id TypeVariableID) string {
	g := f.Bindings
	if g.isFrozen(id) {
		return g.resolvedType(g.bounds[id]).AbsoluteName()
	}
	return id
}

func (f *FunctionType) constraints(mentioned []TypeVariableID) []string {
	g := f.Bindings
	parametric := set.New[TypeVariableID](len(mentioned))
	work := util.Stack[TypeVariableID]{}
	for _, id := range mentioned {
		work.Push(id)
	}
	for {
		id, ok := work.Pop()
		if !ok {
			break
		}
		if g.isFrozen(id) || !parametric.Insert(id) {
			continue
		}
		for neighbour := range util.ConcatIter(g.bounds[id].lowerRefs.Items(), g.bounds[id].upperRefs.Items()) {
			work.Push(neighbour)
		}
	}

	var constraints []string
	for _, id := range util.SortedSlice(parametric, util.CompareNatural) {
		b := g.bounds[id]
		switch {
		case b.hasLowerTypes() && b.hasUpperTypes():
			constraints = append(constraints, lowerName(b)+" < "+id+" < "+upperName(b))
		case b.hasUpperTypes():
			constraints = append(constraints, id+" < "+upperName(b))
		case b.hasLowerTypes():
			constraints = append(constraints, lowerName(b)+" < "+id)
		}
		for _, upper := range util.SortedSlice(b.upperRefs, util.CompareNatural) {
			if upper != id && parametric.Contains(upper) {
				constraints = append(constraints, id+" < "+upper)
			}
		}
	}
	return constraints
}
