package core

import "errors"

// Domain errors
var (
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNotConverged     = errors.New("numerical optimisation did not converge")
	ErrDegenerate       = errors.New("degenerate input")

	ErrFamilySealed = errors.New("correction family already sealed")
	ErrEmptyDataset = errors.New("dataset contains no phrases")
)

// IsNotConverged reports whether err stems from an optimiser that gave up
func IsNotConverged(err error) bool {
	return errors.Is(err, ErrNotConverged)
}
