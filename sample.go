package tetrify

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Grid is a width by height grid of target colors, one per board cell, in
// row-major order.
type Grid struct {
	Width  int
	Height int
	Colors []color.RGBA
}

// NewGrid returns a grid filled with a single color.
func NewGrid(width, height int, fill color.RGBA) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tetrify: NewGrid: %dx%d: %w", width, height,
			ErrInvalidDimensions)
	}

	g := &Grid{
		Width:  width,
		Height: height,
		Colors: make([]color.RGBA, width*height),
	}
	for i := range g.Colors {
		g.Colors[i] = fill
	}

	return g, nil
}

// At returns the target color of the cell at x, y.
func (g *Grid) At(x, y int) color.RGBA {
	return g.Colors[y*g.Width+x]
}

// Set sets the target color of the cell at x, y.
func (g *Grid) Set(x, y int, c color.RGBA) {
	g.Colors[y*g.Width+x] = c
}

func (g *Grid) colorfulColors() []colorful.Color {
	out := make([]colorful.Color, len(g.Colors))
	for i, c := range g.Colors {
		out[i] = toColorful(c)
	}
	return out
}

// Sample reduces img to a width by height grid of target colors. Each cell
// gets the mean color of its region of the image. Region edges are placed at
// floor(i*W/width), so regions differ by at most one pixel when the sizes are
// not divisible, and a region is widened to a single pixel when the board is
// larger than the image.
func Sample(img image.Image, width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tetrify: Sample: board %dx%d: %w", width, height,
			ErrInvalidDimensions)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("tetrify: Sample: image has zero area: %w",
			ErrInvalidDimensions)
	}

	xs := regionEdges(bounds.Min.X, bounds.Dx(), width)
	ys := regionEdges(bounds.Min.Y, bounds.Dy(), height)

	grid := &Grid{
		Width:  width,
		Height: height,
		Colors: make([]color.RGBA, width*height),
	}

	for cy := 0; cy < height; cy++ {
		for cx := 0; cx < width; cx++ {
			grid.Colors[cy*width+cx] = meanColor(img,
				image.Rect(xs[cx][0], ys[cy][0], xs[cx][1], ys[cy][1]))
		}
	}

	return grid, nil
}

// regionEdges splits [min, min+size) into n consecutive, non-empty spans.
func regionEdges(min, size, n int) [][2]int {
	edges := make([][2]int, n)
	for i := 0; i < n; i++ {
		lo := i * size / n
		hi := (i + 1) * size / n
		if hi <= lo {
			hi = lo + 1
		}
		edges[i] = [2]int{min + lo, min + hi}
	}
	return edges
}

func meanColor(img image.Image, r image.Rectangle) color.RGBA {
	var sr, sg, sb uint64

	switch src := img.(type) {
	case *image.RGBA:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			i := src.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				sr += uint64(src.Pix[i])
				sg += uint64(src.Pix[i+1])
				sb += uint64(src.Pix[i+2])
				i += 4
			}
		}
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				sr += uint64(c.R)
				sg += uint64(c.G)
				sb += uint64(c.B)
			}
		}
	}

	n := uint64(r.Dx() * r.Dy())
	return color.RGBA{
		R: uint8(sr / n),
		G: uint8(sg / n),
		B: uint8(sb / n),
		A: 255,
	}
}
