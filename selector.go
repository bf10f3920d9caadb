package tetrify

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Selector picks the catalog skin that best matches a group of cells of a
// grid. Distances between every cell's target and every tile's representative
// color are computed once up front.
type Selector struct {
	width  int
	skins  int
	metric Metric
	dist   []float64
}

// NewSelector prepares a selector for grid and cat using metric.
func NewSelector(grid *Grid, cat *Catalog, metric Metric) *Selector {
	reps := make([]colorful.Color, cat.Len()*NumCategories)
	for s := 0; s < cat.Len(); s++ {
		for c, tile := range cat.Skin(s).Tiles {
			reps[s*NumCategories+c] = toColorful(tile.Color)
		}
	}

	targets := grid.colorfulColors()
	sel := &Selector{
		width:  grid.Width,
		skins:  cat.Len(),
		metric: metric,
		dist:   make([]float64, len(targets)*len(reps)),
	}

	for i, t := range targets {
		row := sel.dist[i*len(reps) : (i+1)*len(reps)]
		for j, r := range reps {
			row[j] = metric.Distance(t, r)
		}
	}

	return sel
}

// Distance returns the distance between the target of the cell at p and the
// representative color of skin's tile for category c.
func (s *Selector) Distance(p image.Point, skin int, c Category) float64 {
	return s.dist[((p.Y*s.width+p.X)*s.skins+skin)*NumCategories+int(c)]
}

// Best returns the skin whose tile for category c has the smallest summed
// distance to the targets of cells, and that sum. Ties go to the skin that
// comes first in the catalog.
func (s *Selector) Best(c Category, cells []image.Point) (skin int, cost float64) {
	cost = math.Inf(1)
	for k := 0; k < s.skins; k++ {
		var sum float64
		for _, p := range cells {
			sum += s.Distance(p, k, c)
		}
		if sum < cost {
			skin, cost = k, sum
		}
	}
	return skin, cost
}

// BestGarbage returns the garbage subtype and skin closest to the target of
// the cell at p. Ties go to regular garbage, then to the earlier skin.
func (s *Selector) BestGarbage(p image.Point) (kind GarbageKind, skin int, cost float64) {
	cells := [1]image.Point{p}

	skin, cost = s.Best(CategoryGarbage, cells[:])
	kind = GarbageRegular

	if hSkin, hCost := s.Best(CategoryHurryUp, cells[:]); hCost < cost {
		kind, skin, cost = GarbageHurryUp, hSkin, hCost
	}

	return kind, skin, cost
}
