package bindings

import (
	"github.com/tinfer/tinfer/lattice"
	"github.com/tinfer/tinfer/symbols"
)

// BoundResult is returned by every bound-adding operation
type BoundResult struct {
	HasChanged             bool
	UsedImplicitConversion bool
	// ImplicitConversionProvider is the last implicit conversion the operation relied on
	ImplicitConversionProvider *lattice.Conversion
	// LowerConstraints are the conversion sources lower bounds were restricted to
	LowerConstraints []symbols.TypeSymbol
}

func (r *BoundResult) usedConversion(c lattice.Conversion) {
	r.UsedImplicitConversion = true
	r.ImplicitConversionProvider = &c
}
