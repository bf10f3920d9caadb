package tetrify

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Render draws board with the tiles of cat, which must be the catalog the
// board was solved with or one resized from it. The result is exactly
// board.Width*tileWidth by board.Height*tileHeight pixels, each cell an
// unaltered copy of its tile.
func Render(board *Board, cat *Catalog) (*image.RGBA, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("tetrify: Render: %w", ErrNoSkinsAvailable)
	}

	size := cat.TileSize()
	output := image.NewRGBA(image.Rect(0, 0, board.Width*size.X,
		board.Height*size.Y))

	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			category, skin, ok := board.Mino(x, y)
			if !ok {
				return nil, fmt.Errorf("tetrify: Render: cell (%d,%d) is unassigned",
					x, y)
			}
			if skin < 0 || skin >= cat.Len() {
				return nil, fmt.Errorf("tetrify: Render: cell (%d,%d) uses skin %d, "+
					"catalog has %d", x, y, skin, cat.Len())
			}

			tile := cat.Skin(skin).Tiles[category].Image
			dst := image.Rect(x*size.X, y*size.Y, (x+1)*size.X, (y+1)*size.Y)
			draw.Draw(output, dst, tile, tile.Bounds().Min, draw.Src)
		}
	}

	return output, nil
}
