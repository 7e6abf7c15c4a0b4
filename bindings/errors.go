package bindings

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tinfer/tinfer/symbols"
)

// ErrIllegalArgument marks programmer errors such as referring to a variable
// which was never registered. It is never recovered from internally.
var ErrIllegalArgument = errors.New("illegal argument")

func illegalArgument(format string, args ...any) error {
	return errors.Wrapf(ErrIllegalArgument, format, args...)
}

type ErrCode int

const (
	None ErrCode = iota
	LowerBound
	UpperBound
	IntersectionBound
	Bound
)

// BoundsError is a semantic contradiction between bounds. Callers interpret it
// as "this candidate cannot apply" and try another.
type BoundsError interface {
	error
	Code() ErrCode
	TypeVariable() TypeVariableID
}

var (
	_ BoundsError = (*LowerBoundError)(nil)
	_ BoundsError = (*UpperBoundError)(nil)
	_ BoundsError = (*IntersectionBoundError)(nil)
	_ BoundsError = (*BoundError)(nil)
)

// UpperBoundError is raised when a new lower bound does not fit the existing upper bound
type UpperBoundError struct {
	Variable TypeVariableID
	NewLower symbols.TypeSymbol
	Upper    symbols.TypeSymbol
}

func (e *UpperBoundError) Error() string {
	return fmt.Sprintf("(E%03d) %s cannot be a lower bound of %s, it is not a subtype of the upper bound %s",
		e.Code(), e.NewLower.AbsoluteName(), e.Variable, e.Upper.AbsoluteName())
}
func (e *UpperBoundError) Code() ErrCode                { return UpperBound }
func (e *UpperBoundError) TypeVariable() TypeVariableID { return e.Variable }

// LowerBoundError is raised when a new upper bound is below the existing lower bound
type LowerBoundError struct {
	Variable TypeVariableID
	NewUpper symbols.TypeSymbol
	Lower    symbols.TypeSymbol
}

func (e *LowerBoundError) Error() string {
	return fmt.Sprintf("(E%03d) %s cannot be an upper bound of %s, the lower bound %s is not a subtype of it",
		e.Code(), e.NewUpper.AbsoluteName(), e.Variable, e.Lower.AbsoluteName())
}
func (e *LowerBoundError) Code() ErrCode                { return LowerBound }
func (e *LowerBoundError) TypeVariable() TypeVariableID { return e.Variable }

// IntersectionBoundError is raised when two upper bound members cannot coexist in an intersection
type IntersectionBoundError struct {
	Variable    TypeVariableID
	NewUpper    symbols.TypeSymbol
	Conflicting symbols.TypeSymbol
}

func (e *IntersectionBoundError) Error() string {
	return fmt.Sprintf("(E%03d) %s cannot be used in an intersection with %s as upper bound of %s",
		e.Code(), e.NewUpper.AbsoluteName(), e.Conflicting.AbsoluteName(), e.Variable)
}
func (e *IntersectionBoundError) Code() ErrCode                { return IntersectionBound }
func (e *IntersectionBoundError) TypeVariable() TypeVariableID { return e.Variable }

// BoundError is raised when a ref bound forces an impossible bound combination.
// Cause is the contradiction found while propagating.
type BoundError struct {
	Variable TypeVariableID
	Ref      TypeVariableID
	Cause    BoundsError
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("(E%03d) %s cannot be a lower ref bound of %s: %v", e.Code(), e.Ref, e.Variable, e.Cause)
}
func (e *BoundError) Code() ErrCode                { return Bound }
func (e *BoundError) TypeVariable() TypeVariableID { return e.Variable }
func (e *BoundError) Unwrap() error                { return e.Cause }

// IsBoundContradiction reports whether err means the bounds cannot be
// satisfied, as opposed to a programmer error
func IsBoundContradiction(err error) bool {
	var boundsErr BoundsError
	return errors.As(err, &boundsErr)
}
