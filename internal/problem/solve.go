package problem

import (
	"github.com/pkg/errors"
	"github.com/tinfer/tinfer/bindings"
	"github.com/tinfer/tinfer/symbols"
	"github.com/tinfer/tinfer/util"
)

// Step is an operation together with what it did to the graph
type Step = util.Pair[Operation, *bindings.BoundResult]

type Solution struct {
	Graph    *bindings.Graph
	Steps    []Step
	Function *bindings.FunctionType
	// Signature is empty when the problem declares no function
	Signature string
}

// Solve builds a graph for p, replays its operations and, when p declares a
// function, generalizes it and formats its signature.
//
// A bound contradiction aborts the replay. The returned error then wraps the
// bindings error and names the failing operation.
func Solve(p *Problem) (*Solution, error) {
	policy, err := bindings.ParsePolicy(p.Flavor)
	if err != nil {
		return nil, err
	}
	factory := symbols.NewFactory()
	universe, err := NewUniverse(factory, p.Types)
	if err != nil {
		return nil, errors.Wrap(err, "invalid types")
	}
	helper, err := universe.Helper(p.Conversions)
	if err != nil {
		return nil, errors.Wrap(err, "invalid conversions")
	}

	g := bindings.New(helper, factory, bindings.WithPolicy(policy))
	for _, decl := range p.Variables {
		if err := addVariable(g, decl); err != nil {
			return nil, err
		}
	}

	solution := &Solution{Graph: g}
	for i, op := range p.Operations {
		result, err := apply(g, universe, op)
		if err != nil {
			return solution, errors.Wrapf(err, "operation %d (%s)", i, op)
		}
		logger.Debug("applied operation", "index", i, "op", op, "changed", result != nil && result.HasChanged)
		solution.Steps = append(solution.Steps, util.NewPair(op, result))
	}

	if p.Function == nil {
		return solution, nil
	}
	parameters := make([]bindings.TypeVariableID, 0, len(p.Function.Parameters))
	for _, name := range p.Function.Parameters {
		id, err := g.GetTypeVariable(name)
		if err != nil {
			return solution, errors.Wrap(err, "function parameter")
		}
		parameters = append(parameters, id)
	}
	if err := g.TryToFix(parameters); err != nil {
		return solution, errors.Wrap(err, "could not generalize")
	}
	solution.Function = bindings.NewFunctionType(p.Function.Name, g, p.Function.Parameters, p.Function.Return)
	solution.Signature, err = solution.Function.Signature()
	if err != nil {
		return solution, err
	}
	return solution, nil
}

func addVariable(g *bindings.Graph, decl VariableDecl) error {
	var ref *bindings.TypeVariableReference
	switch {
	case decl.ID == "":
		ref = g.GetNextTypeVariable()
		if decl.Fixed {
			ref = bindings.NewFixedTypeVariableReference(ref.ID())
		}
	case decl.Fixed:
		ref = bindings.NewFixedTypeVariableReference(decl.ID)
	default:
		ref = bindings.NewTypeVariableReference(decl.ID)
	}
	return g.AddVariable(decl.Name, ref)
}

// apply performs op on g. Operations which do not add bounds return a nil result.
func apply(g *bindings.Graph, universe *Universe, op Operation) (*bindings.BoundResult, error) {
	switch op.Op {
	case OpLower, OpUpper:
		t, err := universe.ParseType(op.Type, g)
		if err != nil {
			return nil, err
		}
		if op.Op == OpLower {
			return g.AddLowerTypeBound(op.Var, t)
		}
		return g.AddUpperTypeBound(op.Var, t)
	case OpRef:
		ref := bindings.NewTypeVariableReference(op.Ref)
		if op.Fixed {
			ref = bindings.NewFixedTypeVariableReference(op.Ref)
		}
		return g.AddLowerRefBound(op.Var, ref)
	case OpFix:
		return nil, g.FixType(op.Var)
	case OpFixParameter:
		return nil, g.FixTypeParameter(op.Var)
	case OpMerge:
		return nil, g.MergeFirstIntoSecond(op.Var, op.Ref)
	default:
		return nil, errors.Errorf("unknown operation %q", op.Op)
	}
}
