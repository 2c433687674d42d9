package mosaic

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is returned for empty plans, non-positive steps or a plan
// whose last step misses the configured target grid.
var ErrInvalidPlan = errors.New("invalid mosaic plan")

const (
	// DefaultSize is the working dimension D the source is drawn into.
	DefaultSize = 512

	// DefaultTarget is the final grid resolution in cells per axis.
	DefaultTarget = 32
)

// DefaultGrids is the step sequence of the pixel art generator, coarse to
// fine, ending on DefaultTarget.
var DefaultGrids = []int{4, 6, 8, 10, 12, 16, 20, 24, 28, DefaultTarget}

// Plan is the ordered list of grid resolutions, in cells per axis, that a
// pixelation run steps through.
type Plan struct {
	Cells []int `json:"cells"`
}

// DefaultPlan returns a copy of DefaultGrids as a plan.
func DefaultPlan() Plan {
	return Plan{Cells: append([]int(nil), DefaultGrids...)}
}

// FromGridSizes builds a plan directly from cell counts.
func FromGridSizes(grids []int) (Plan, error) {
	p := Plan{Cells: append([]int(nil), grids...)}
	if err := p.Validate(0); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// FromBlockSizes builds a plan from block sizes in pixels. Each block size
// b becomes ceil(size/b) cells.
func FromBlockSizes(size int, blocks []int) (Plan, error) {
	if size <= 0 {
		return Plan{}, fmt.Errorf("%w: working size %d", ErrInvalidPlan, size)
	}
	if len(blocks) == 0 {
		return Plan{}, fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	cells := make([]int, len(blocks))
	for i, b := range blocks {
		if b <= 0 {
			return Plan{}, fmt.Errorf("%w: block size %d at step %d", ErrInvalidPlan, b, i)
		}
		cells[i] = (size + b - 1) / b
	}
	return Plan{Cells: cells}, nil
}

// Len returns the number of steps.
func (p Plan) Len() int { return len(p.Cells) }

// Last returns the final grid resolution, or 0 for an empty plan.
func (p Plan) Last() int {
	if len(p.Cells) == 0 {
		return 0
	}
	return p.Cells[len(p.Cells)-1]
}

// Validate checks the plan. A positive target requires the last step to
// equal it exactly.
func (p Plan) Validate(target int) error {
	if len(p.Cells) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	for i, c := range p.Cells {
		if c <= 0 {
			return fmt.Errorf("%w: %d cells at step %d", ErrInvalidPlan, c, i)
		}
	}
	if target > 0 && p.Last() != target {
		return fmt.Errorf("%w: last step is %d cells, target is %d", ErrInvalidPlan, p.Last(), target)
	}
	return nil
}
