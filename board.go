package tetrify

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// CellState is the occupancy of a board cell.
type CellState uint8

// Cell occupancy states.
const (
	Unassigned CellState = iota
	CoveredByPlacement
	CoveredByGarbage
)

// GarbageKind is the subtype of a garbage mino.
type GarbageKind uint8

// Garbage subtypes.
const (
	GarbageRegular GarbageKind = iota
	GarbageHurryUp
)

// Category returns the tile category used to draw the garbage subtype.
func (k GarbageKind) Category() Category {
	if k == GarbageHurryUp {
		return CategoryHurryUp
	}
	return CategoryGarbage
}

// Placement is a tetromino placed on the board.
type Placement struct {
	// Rotation indexes Rotations.
	Rotation int
	// Origin is where the top-left corner of the rotation's bounding box sits.
	Origin image.Point
	// Skin indexes the catalog the board was solved with.
	Skin int
}

// Shape returns the placement's tetromino shape.
func (p Placement) Shape() Shape {
	return Rotations[p.Rotation].Shape
}

// Cells returns the four cells covered by the placement.
func (p Placement) Cells() [4]image.Point {
	return Rotations[p.Rotation].Cells(p.Origin)
}

// Garbage is a single garbage mino.
type Garbage struct {
	Cell image.Point
	Kind GarbageKind
	Skin int
}

// Cell describes one board cell.
type Cell struct {
	X, Y   int
	Target color.RGBA
	State  CellState
	// Index indexes Board.Placements or Board.Garbage depending on State.
	Index  int
}

// Board is a complete assignment of every grid cell to a tetromino placement
// or a garbage mino. Boards returned by Solve are never modified afterwards.
type Board struct {
	Width      int
	Height     int
	Targets    []color.RGBA
	Placements []Placement
	Garbage    []Garbage

	// owner is >= 1 for placement owner-1, <= -1 for garbage -owner-1 and 0
	// for unassigned cells.
	owner []int32
}

func newBoard(grid *Grid) *Board {
	targets := make([]color.RGBA, len(grid.Colors))
	copy(targets, grid.Colors)

	return &Board{
		Width:   grid.Width,
		Height:  grid.Height,
		Targets: targets,
		owner:   make([]int32, grid.Width*grid.Height),
	}
}

func (b *Board) inBounds(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.Width && p.Y < b.Height
}

func (b *Board) empty(p image.Point) bool {
	return b.inBounds(p) && b.owner[p.Y*b.Width+p.X] == 0
}

// canPlace reports whether all cells are in bounds and unassigned.
func (b *Board) canPlace(cells [4]image.Point) bool {
	for _, c := range cells {
		if !b.empty(c) {
			return false
		}
	}
	return true
}

func (b *Board) place(p Placement) {
	b.Placements = append(b.Placements, p)
	id := int32(len(b.Placements))
	for _, c := range p.Cells() {
		b.owner[c.Y*b.Width+c.X] = id
	}
}

func (b *Board) fill(g Garbage) {
	b.Garbage = append(b.Garbage, g)
	b.owner[g.Cell.Y*b.Width+g.Cell.X] = -int32(len(b.Garbage))
}

// At returns the cell at x, y.
func (b *Board) At(x, y int) Cell {
	cell := Cell{
		X:      x,
		Y:      y,
		Target: b.Targets[y*b.Width+x],
	}

	switch o := b.owner[y*b.Width+x]; {
	case o > 0:
		cell.State = CoveredByPlacement
		cell.Index = int(o) - 1
	case o < 0:
		cell.State = CoveredByGarbage
		cell.Index = int(-o) - 1
	}

	return cell
}

// Mino returns the tile category and skin used to draw the cell at x, y. ok
// is false if the cell is unassigned.
func (b *Board) Mino(x, y int) (cat Category, skin int, ok bool) {
	cell := b.At(x, y)
	switch cell.State {
	case CoveredByPlacement:
		p := b.Placements[cell.Index]
		return p.Shape().Category(), p.Skin, true
	case CoveredByGarbage:
		g := b.Garbage[cell.Index]
		return g.Kind.Category(), g.Skin, true
	}
	return 0, 0, false
}

// Validate checks that the board is a complete, non-overlapping cover of its
// grid by well-formed placements and garbage, and that every skin reference
// is valid for cat. cat may be nil to skip skin checks.
func (b *Board) Validate(cat *Catalog) error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("tetrify: Board.Validate: board %dx%d: %w",
			b.Width, b.Height, ErrInvalidDimensions)
	}

	seen := make([]bool, b.Width*b.Height)
	mark := func(p image.Point) error {
		if !b.inBounds(p) {
			return fmt.Errorf("cell %v is out of bounds", p)
		}
		if seen[p.Y*b.Width+p.X] {
			return fmt.Errorf("cell %v is covered twice", p)
		}
		seen[p.Y*b.Width+p.X] = true
		return nil
	}

	checkSkin := func(skin int) error {
		if cat == nil {
			return nil
		}
		if skin < 0 || skin >= cat.Len() {
			return fmt.Errorf("skin %d is not in the catalog", skin)
		}
		return nil
	}

	for i, p := range b.Placements {
		if p.Rotation < 0 || p.Rotation >= len(Rotations) {
			return fmt.Errorf("tetrify: Board.Validate: placement %d: unknown rotation %d",
				i, p.Rotation)
		}

		cells := p.Cells()
		if _, _, ok := MatchRotation(cells); !ok {
			return fmt.Errorf("tetrify: Board.Validate: placement %d is not a tetromino", i)
		}

		for _, c := range cells {
			if err := mark(c); err != nil {
				return fmt.Errorf("tetrify: Board.Validate: placement %d: %w", i, err)
			}
		}

		if err := checkSkin(p.Skin); err != nil {
			return fmt.Errorf("tetrify: Board.Validate: placement %d: %w", i, err)
		}
	}

	for i, g := range b.Garbage {
		if err := mark(g.Cell); err != nil {
			return fmt.Errorf("tetrify: Board.Validate: garbage %d: %w", i, err)
		}
		if err := checkSkin(g.Skin); err != nil {
			return fmt.Errorf("tetrify: Board.Validate: garbage %d: %w", i, err)
		}
	}

	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("tetrify: Board.Validate: cell (%d,%d) is not covered",
				i%b.Width, i/b.Width)
		}
	}

	return nil
}

// String draws the board as text, one letter per mino and a space for
// unassigned cells.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("+" + strings.Repeat("-", b.Width) + "+\n")
	for y := 0; y < b.Height; y++ {
		sb.WriteByte('|')
		for x := 0; x < b.Width; x++ {
			cat, _, ok := b.Mino(x, y)
			if !ok {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteByte(cat.Letter())
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("+" + strings.Repeat("-", b.Width) + "+")
	return sb.String()
}
