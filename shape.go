package tetrify

import "image"

// Shape is one of the seven tetromino shapes.
type Shape uint8

// The tetromino shapes, in enumeration order.
const (
	ShapeI Shape = iota
	ShapeO
	ShapeT
	ShapeS
	ShapeZ
	ShapeJ
	ShapeL

	NumShapes = 7
)

// Category is the kind of tile a mino is drawn with: one of the seven
// tetromino shapes or one of the two garbage subtypes.
type Category uint8

// Mino categories. The tetromino categories share their values with the
// corresponding Shape.
const (
	CategoryI Category = iota
	CategoryO
	CategoryT
	CategoryS
	CategoryZ
	CategoryJ
	CategoryL
	CategoryGarbage
	CategoryHurryUp

	NumCategories = 9
)

var categoryLetters = [NumCategories]byte{'I', 'O', 'T', 'S', 'Z', 'J', 'L', 'G', 'B'}

// Category returns the tile category used to draw the shape.
func (s Shape) Category() Category {
	return Category(s)
}

func (s Shape) String() string {
	if s >= NumShapes {
		return "?"
	}
	return string(categoryLetters[s])
}

// Letter returns the single character used for the category in board dumps.
func (c Category) Letter() byte {
	if c >= NumCategories {
		return '?'
	}
	return categoryLetters[c]
}

func (c Category) String() string {
	switch c {
	case CategoryGarbage:
		return "garbage"
	case CategoryHurryUp:
		return "hurry-up"
	}
	return string(c.Letter())
}

// IsGarbage reports whether the category is a garbage subtype.
func (c Category) IsGarbage() bool {
	return c == CategoryGarbage || c == CategoryHurryUp
}

// Rotation is one distinct rotation state of a shape. Offsets are relative to
// the top-left of the rotation's bounding box, y growing downwards, and are
// listed in row-major order.
type Rotation struct {
	Shape   Shape
	Index   int
	Offsets [4]image.Point
}

// Rotations holds every distinct rotation of every shape, ordered by shape
// then rotation index. The solver enumerates candidates in this order.
var Rotations = []Rotation{
	{ShapeI, 0, [4]image.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}},
	{ShapeI, 1, [4]image.Point{{0, 0}, {0, 1}, {0, 2}, {0, 3}}},

	{ShapeO, 0, [4]image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}},

	{ShapeT, 0, [4]image.Point{{1, 0}, {0, 1}, {1, 1}, {2, 1}}},
	{ShapeT, 1, [4]image.Point{{0, 0}, {0, 1}, {1, 1}, {0, 2}}},
	{ShapeT, 2, [4]image.Point{{0, 0}, {1, 0}, {2, 0}, {1, 1}}},
	{ShapeT, 3, [4]image.Point{{1, 0}, {0, 1}, {1, 1}, {1, 2}}},

	{ShapeS, 0, [4]image.Point{{1, 0}, {2, 0}, {0, 1}, {1, 1}}},
	{ShapeS, 1, [4]image.Point{{0, 0}, {0, 1}, {1, 1}, {1, 2}}},

	{ShapeZ, 0, [4]image.Point{{0, 0}, {1, 0}, {1, 1}, {2, 1}}},
	{ShapeZ, 1, [4]image.Point{{1, 0}, {0, 1}, {1, 1}, {0, 2}}},

	{ShapeJ, 0, [4]image.Point{{0, 0}, {0, 1}, {1, 1}, {2, 1}}},
	{ShapeJ, 1, [4]image.Point{{0, 0}, {1, 0}, {0, 1}, {0, 2}}},
	{ShapeJ, 2, [4]image.Point{{0, 0}, {1, 0}, {2, 0}, {2, 1}}},
	{ShapeJ, 3, [4]image.Point{{1, 0}, {1, 1}, {0, 2}, {1, 2}}},

	{ShapeL, 0, [4]image.Point{{2, 0}, {0, 1}, {1, 1}, {2, 1}}},
	{ShapeL, 1, [4]image.Point{{0, 0}, {0, 1}, {0, 2}, {1, 2}}},
	{ShapeL, 2, [4]image.Point{{0, 0}, {1, 0}, {2, 0}, {0, 1}}},
	{ShapeL, 3, [4]image.Point{{0, 0}, {1, 0}, {1, 1}, {1, 2}}},
}

// Cells returns the absolute cells covered by the rotation when its
// top-left bounding box corner sits at origin.
func (r *Rotation) Cells(origin image.Point) [4]image.Point {
	var cells [4]image.Point
	for i, off := range r.Offsets {
		cells[i] = origin.Add(off)
	}
	return cells
}

// MatchRotation returns the index into Rotations of the rotation whose
// pattern the cells form under some translation, and the origin of that
// translation. The cells may be in any order.
func MatchRotation(cells [4]image.Point) (int, image.Point, bool) {
	min := cells[0]
	for _, c := range cells[1:] {
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
	}

	var rel [4]image.Point
	for i, c := range cells {
		rel[i] = c.Sub(min)
	}

	for i := range Rotations {
		if sameCells(rel, Rotations[i].Offsets) {
			return i, min, true
		}
	}

	return -1, image.Point{}, false
}

func sameCells(a, b [4]image.Point) bool {
	for _, p := range a {
		found := false
		for _, q := range b {
			if p == q {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	// Patterns hold distinct cells, so matching every cell of a is enough
	// as long as a is also distinct.
	for i := 0; i < len(a); i++ {
		for j := i + 1; j < len(a); j++ {
			if a[i] == a[j] {
				return false
			}
		}
	}
	return true
}
