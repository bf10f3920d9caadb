package tetrify

import (
	"fmt"
	"image"
	"math"
)

// DefaultTetrominoBonus is the per-cell cost reduction given to tetrominoes
// when SolverOptions.Prioritize is set. It is larger than any distance the
// metrics produce, so garbage is then only used where no piece fits.
const DefaultTetrominoBonus = 4.0

// SolverOptions configures Solve.
type SolverOptions struct {
	// Prioritize biases the solver towards covering cells with tetrominoes
	// rather than garbage, trading color accuracy for more pieces.
	Prioritize bool
	// TetrominoBonus is subtracted from every tetromino's per-cell cost when
	// Prioritize is set. Zero means DefaultTetrominoBonus.
	TetrominoBonus float64
	// Metric is the color distance used to compare targets with tiles.
	Metric Metric
}

// DefaultSolverOptions returns the options used by the command line tools
// when no flags are given.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Prioritize:     false,
		TetrominoBonus: DefaultTetrominoBonus,
		Metric:         MetricRGB,
	}
}

func (o *SolverOptions) bonus() float64 {
	if !o.Prioritize {
		return 0
	}
	if o.TetrominoBonus == 0 {
		return DefaultTetrominoBonus
	}
	return o.TetrominoBonus
}

// Solve covers grid with tetromino placements and garbage minos, choosing
// shapes and skins from cat to approximate the grid's target colors.
//
// Cells are visited in row-major order. At each unassigned cell every
// rotation of every shape is tried at every anchor that covers the cell, and
// the candidate with the lowest mean per-cell color distance wins, ties going
// to the first one enumerated. A single garbage mino competes with the
// tetrominoes and is used when nothing else fits. The result is
// deterministic for a given grid, catalog and options.
func Solve(grid *Grid, cat *Catalog, opts SolverOptions) (*Board, error) {
	if grid == nil || grid.Width <= 0 || grid.Height <= 0 ||
		len(grid.Colors) != grid.Width*grid.Height {
		return nil, fmt.Errorf("tetrify: Solve: malformed grid: %w",
			ErrInvalidDimensions)
	}

	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("tetrify: Solve: %w", ErrNoSkinsAvailable)
	}
	for i := 0; i < cat.Len(); i++ {
		if err := cat.checkSkin(cat.Skin(i)); err != nil {
			return nil, fmt.Errorf("tetrify: Solve: %w", err)
		}
	}

	sel := NewSelector(grid, cat, opts.Metric)
	board := solveGreedy(grid, sel, opts.bonus())

	if opts.Prioritize {
		// Prioritizing must never produce more garbage than the plain pass.
		plain := solveGreedy(grid, sel, 0)
		if len(plain.Garbage) < len(board.Garbage) {
			board = plain
		}
	}

	return board, nil
}

func solveGreedy(grid *Grid, sel *Selector, bonus float64) *Board {
	board := newBoard(grid)

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			cur := image.Pt(x, y)
			if !board.empty(cur) {
				continue
			}

			best, ok := bestPlacement(board, sel, cur, bonus)

			kind, skin, cost := sel.BestGarbage(cur)
			if !ok || cost < best.cost {
				board.fill(Garbage{
					Cell: cur,
					Kind: kind,
					Skin: skin,
				})
				continue
			}

			board.place(best.Placement)
		}
	}

	return board
}

type candidate struct {
	Placement
	cost float64
}

// bestPlacement returns the cheapest tetromino covering cur that fits on the
// board. Rotations are tried in table order and, within a rotation, with each
// of its cells in turn aligned onto cur.
func bestPlacement(board *Board, sel *Selector, cur image.Point,
	bonus float64) (candidate, bool) {
	best := candidate{cost: math.Inf(1)}
	found := false

	for r := range Rotations {
		rot := &Rotations[r]
		for _, off := range rot.Offsets {
			origin := cur.Sub(off)
			cells := rot.Cells(origin)
			if !board.canPlace(cells) {
				continue
			}

			skin, sum := sel.Best(rot.Shape.Category(), cells[:])
			cost := sum/float64(len(cells)) - bonus
			if !found || cost < best.cost {
				best = candidate{
					Placement: Placement{
						Rotation: r,
						Origin:   origin,
						Skin:     skin,
					},
					cost: cost,
				}
				found = true
			}
		}
	}

	return best, found
}
