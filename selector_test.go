package tetrify

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestSelectorDistance(t *testing.T) {
	grid := uniformGrid(t, 3, 2, color.RGBA{A: 255})
	grid.Set(2, 1, color.RGBA{100, 150, 200, 255})

	cat := solidCatalog(t, testPalette, withColor(CategoryJ, color.RGBA{100, 150, 200, 255}))

	for _, metric := range []Metric{MetricRGB, MetricLab, MetricCIEDE2000} {
		sel := NewSelector(grid, cat, metric)
		for s := 0; s < cat.Len(); s++ {
			for c := Category(0); c < NumCategories; c++ {
				want := metric.Distance(toColorful(grid.At(2, 1)),
					toColorful(cat.Skin(s).Tiles[c].Color))
				got := sel.Distance(image.Pt(2, 1), s, c)
				if math.Abs(got-want) > 1e-12 {
					t.Errorf("%s: Distance(skin %d, %s) = %v, want %v", metric, s, c,
						got, want)
				}
			}
		}
	}
}

func TestSelectorBest(t *testing.T) {
	target := color.RGBA{100, 150, 200, 255}
	grid := uniformGrid(t, 4, 1, target)
	cells := []image.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}

	cat := solidCatalog(t, testPalette, withColor(CategoryI, target), testPalette)
	sel := NewSelector(grid, cat, MetricRGB)

	skin, cost := sel.Best(CategoryI, cells)
	if skin != 1 || cost != 0 {
		t.Errorf("Best(I) = skin %d, cost %v, want skin 1, cost 0", skin, cost)
	}

	// Skins 0 and 2 are identical, and 1 only differs in its I tile.
	skin, _ = sel.Best(CategoryO, cells)
	if skin != 0 {
		t.Errorf("Best(O) = skin %d, want the first of the tied skins", skin)
	}
}

func TestSelectorBestGarbage(t *testing.T) {
	tests := []struct {
		name    string
		garbage color.RGBA
		hurry   color.RGBA
		target  color.RGBA
		want    GarbageKind
	}{
		{"regular", color.RGBA{128, 128, 128, 255}, color.RGBA{0, 0, 0, 255},
			color.RGBA{140, 140, 140, 255}, GarbageRegular},
		{"hurry-up", color.RGBA{128, 128, 128, 255}, color.RGBA{0, 0, 0, 255},
			color.RGBA{10, 10, 10, 255}, GarbageHurryUp},
		{"tie", color.RGBA{50, 50, 50, 255}, color.RGBA{50, 50, 50, 255},
			color.RGBA{50, 50, 50, 255}, GarbageRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			palette := withColor(CategoryGarbage, tt.garbage)
			palette[CategoryHurryUp] = tt.hurry

			sel := NewSelector(uniformGrid(t, 1, 1, tt.target),
				solidCatalog(t, palette), MetricRGB)

			kind, skin, _ := sel.BestGarbage(image.Pt(0, 0))
			if kind != tt.want || skin != 0 {
				t.Errorf("got kind %v skin %d, want kind %v skin 0", kind, skin, tt.want)
			}
		})
	}
}
