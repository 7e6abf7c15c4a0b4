package problem

import (
	"github.com/tinfer/tinfer/bindings"
)

// Description is a plain data view of a graph, meant for pretty printing
type Description struct {
	Policy        string
	Variables     []VariableDescription
	TypeVariables []TypeVariableDescription
}

type VariableDescription struct {
	Name      string
	Reference string
}

type TypeVariableDescription struct {
	ID        string
	State     string
	Lower     string
	Upper     string
	LowerRefs []string
	UpperRefs []string
}

func Describe(g *bindings.Graph) Description {
	d := Description{Policy: g.Policy().String()}
	for _, name := range g.Variables() {
		ref, err := g.GetTypeVariableReference(name)
		if err != nil {
			continue
		}
		d.Variables = append(d.Variables, VariableDescription{Name: name, Reference: ref.String()})
	}
	for _, id := range g.TypeVariables() {
		state, _ := g.State(id)
		tv := TypeVariableDescription{
			ID:        id,
			State:     state.String(),
			LowerRefs: g.LowerRefBounds(id),
			UpperRefs: g.UpperRefBounds(id),
		}
		if lower := g.LowerTypeBounds(id); lower != nil {
			tv.Lower = lower.AbsoluteName()
		}
		if upper := g.UpperTypeBounds(id); upper != nil {
			tv.Upper = upper.AbsoluteName()
		}
		d.TypeVariables = append(d.TypeVariables, tv)
	}
	return d
}
