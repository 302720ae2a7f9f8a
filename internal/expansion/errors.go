package expansion

import (
	"errors"
	"fmt"
)

// Domain errors for expansion and reporting.
var (
	// ErrNilCore indicates the engine was built without a core.
	ErrNilCore = errors.New("expansion: nil core")

	// ErrNilEntity indicates a nil assembly, block or component in the core layout.
	ErrNilEntity = errors.New("expansion: nil entity in core layout")

	// ErrDuplicateEntity indicates a block owned by two assemblies or a
	// component owned by two blocks.
	ErrDuplicateEntity = errors.New("expansion: entity cached under two owners")

	// ErrInvalidGeometry indicates block heights that cannot produce a finite
	// strain (zero, negative, NaN or Inf).
	ErrInvalidGeometry = errors.New("expansion: invalid geometry")

	// ErrInvalidFactor indicates a thermal expansion factor that is NaN, Inf or
	// not positive.
	ErrInvalidFactor = errors.New("expansion: invalid thermal expansion factor")

	// ErrInvalidTemperature indicates a NaN or Inf component temperature.
	ErrInvalidTemperature = errors.New("expansion: invalid temperature")
)

// BlockError identifies the block, and component if any, that stopped a time
// node from being expanded.
type BlockError struct {
	Node      int
	Assembly  string
	Block     string
	Component string
	Err       error
}

func (e *BlockError) Error() string {
	where := fmt.Sprintf("node %d assembly %s block %s", e.Node, e.Assembly, e.Block)
	if e.Component != "" {
		where += " component " + e.Component
	}
	return where + ": " + e.Err.Error()
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// AssemblyError is one itemized failure of report generation.
type AssemblyError struct {
	Location string
	Err      error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly %s: %v", e.Location, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
