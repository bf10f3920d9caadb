package tetrify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/gift"
)

// TileColor selects how a tile's representative color is computed.
type TileColor int

// Representative color modes.
const (
	// TileColorMean uses the arithmetic mean of the tile's pixels.
	TileColorMean TileColor = iota
	// TileColorDominant uses the tile's most dominant color.
	TileColorDominant
)

// ParseTileColor parses a representative color mode name.
func ParseTileColor(name string) (TileColor, error) {
	switch name {
	case "mean", "":
		return TileColorMean, nil
	case "dominant":
		return TileColorDominant, nil
	}
	return 0, fmt.Errorf("tetrify: unknown tile color mode %q (want mean or dominant)", name)
}

// stripOrder is the category of each section of a skin strip, left to right.
var stripOrder = [NumCategories]Category{
	CategoryHurryUp, CategoryGarbage, CategoryZ, CategoryL, CategoryO,
	CategoryS, CategoryI, CategoryJ, CategoryT,
}

// tileFiles are the file names of the tiles in a skin directory.
var tileFiles = [NumCategories]string{
	CategoryI:       "i.png",
	CategoryO:       "o.png",
	CategoryT:       "t.png",
	CategoryS:       "s.png",
	CategoryZ:       "z.png",
	CategoryJ:       "j.png",
	CategoryL:       "l.png",
	CategoryGarbage: "garbage.png",
	CategoryHurryUp: "hurry.png",
}

// Tile is a single mino design and its representative color.
type Tile struct {
	Image *image.RGBA
	Color color.RGBA
}

// Skin is a set of tiles, one per mino category.
type Skin struct {
	Name  string
	Tiles [NumCategories]Tile

	colorMode TileColor
}

// NewSkin creates a skin from one image per category. All tiles must be
// non-nil and share the same size.
func NewSkin(name string, tiles [NumCategories]image.Image,
	mode TileColor) (*Skin, error) {
	skin := &Skin{
		Name:      name,
		colorMode: mode,
	}

	var size image.Point
	for cat, img := range tiles {
		if img == nil {
			return nil, fmt.Errorf("tetrify: skin %q: missing %s tile: %w",
				name, Category(cat), ErrIncompleteSkin)
		}

		if img.Bounds().Empty() {
			return nil, fmt.Errorf("tetrify: skin %q: empty %s tile: %w",
				name, Category(cat), ErrIncompleteSkin)
		}

		if cat == 0 {
			size = img.Bounds().Size()
		} else if img.Bounds().Size() != size {
			return nil, fmt.Errorf("tetrify: skin %q: %s tile is %v, want %v: %w",
				name, Category(cat), img.Bounds().Size(), size, ErrIncompleteSkin)
		}

		rgba := toRGBA(img)
		skin.Tiles[cat] = Tile{
			Image: rgba,
			Color: representativeColor(rgba, mode),
		}
	}

	return skin, nil
}

// TileSize returns the size of the skin's tiles.
func (s *Skin) TileSize() image.Point {
	return s.Tiles[0].Image.Bounds().Size()
}

// resize returns a copy of the skin with every tile resampled to size.
func (s *Skin) resize(size image.Point) *Skin {
	out := &Skin{
		Name:      s.Name,
		colorMode: s.colorMode,
	}

	filter := gift.Resize(size.X, size.Y, gift.LanczosResampling)
	for cat, tile := range s.Tiles {
		dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		filter.Draw(dst, tile.Image, &gift.Options{
			Parallelization: false,
		})
		out.Tiles[cat] = Tile{
			Image: dst,
			Color: representativeColor(dst, s.colorMode),
		}
	}

	return out
}

func representativeColor(img *image.RGBA, mode TileColor) color.RGBA {
	if mode == TileColorDominant {
		c := dominantcolor.Find(img)
		c.A = 255
		return c
	}
	return meanColor(img, img.Bounds())
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Catalog is an ordered, immutable set of skins sharing one tile size. It is
// safe for concurrent use.
type Catalog struct {
	skins    []*Skin
	tileSize image.Point
}

// NewCatalog creates a catalog from skins, in order. Earlier skins win ties
// during skin selection.
func NewCatalog(skins ...*Skin) (*Catalog, error) {
	if len(skins) == 0 {
		return nil, fmt.Errorf("tetrify: NewCatalog: %w", ErrNoSkinsAvailable)
	}

	cat := &Catalog{
		skins:    make([]*Skin, len(skins)),
		tileSize: skins[0].TileSize(),
	}
	copy(cat.skins, skins)

	for _, skin := range skins {
		if err := cat.checkSkin(skin); err != nil {
			return nil, fmt.Errorf("tetrify: NewCatalog: %w", err)
		}
	}

	return cat, nil
}

func (c *Catalog) checkSkin(skin *Skin) error {
	for cat, tile := range skin.Tiles {
		if tile.Image == nil {
			return fmt.Errorf("skin %q: missing %s tile: %w", skin.Name,
				Category(cat), ErrIncompleteSkin)
		}
		if size := tile.Image.Bounds().Size(); size != c.tileSize {
			return fmt.Errorf("skin %q: %s tile is %v, catalog tiles are %v: %w",
				skin.Name, Category(cat), size, c.tileSize, ErrIncompleteSkin)
		}
	}
	return nil
}

// Len returns the number of skins in the catalog.
func (c *Catalog) Len() int {
	return len(c.skins)
}

// Skin returns the i-th skin.
func (c *Catalog) Skin(i int) *Skin {
	return c.skins[i]
}

// Names returns the skin names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.skins))
	for i, skin := range c.skins {
		names[i] = skin.Name
	}
	return names
}

// TileSize returns the size shared by every tile in the catalog.
func (c *Catalog) TileSize() image.Point {
	return c.tileSize
}

// Resize returns a new catalog with every tile resampled to width by height.
// The receiver is left untouched.
func (c *Catalog) Resize(width, height int) (*Catalog, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tetrify: Catalog.Resize: tile %dx%d: %w",
			width, height, ErrInvalidDimensions)
	}

	size := image.Pt(width, height)
	if size == c.tileSize {
		return c, nil
	}

	out := &Catalog{
		skins:    make([]*Skin, len(c.skins)),
		tileSize: size,
	}
	for i, skin := range c.skins {
		out.skins[i] = skin.resize(size)
	}

	return out, nil
}

// FitTo returns the catalog resized so that a board of the given size drawn
// with it is as close as possible to, without exceeding, the source size.
// Tiles are never smaller than one pixel.
func (c *Catalog) FitTo(source image.Point, boardWidth, boardHeight int) (*Catalog, error) {
	if boardWidth <= 0 || boardHeight <= 0 {
		return nil, fmt.Errorf("tetrify: Catalog.FitTo: board %dx%d: %w",
			boardWidth, boardHeight, ErrInvalidDimensions)
	}
	return c.Resize(max(1, source.X/boardWidth), max(1, source.Y/boardHeight))
}

// CatalogOptions configures LoadCatalog.
type CatalogOptions struct {
	TileColor TileColor
}

// LoadCatalog loads every skin in dir, in lexical order. A PNG file is read
// as a horizontal strip of nine equally sized tiles; a directory is read as
// nine named tiles (i.png, o.png, t.png, s.png, z.png, j.png, l.png,
// garbage.png and hurry.png). Other entries are ignored.
func LoadCatalog(dir string, opts CatalogOptions) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tetrify: LoadCatalog: %w", err)
	}

	var skins []*Skin
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		var skin *Skin
		switch {
		case entry.IsDir():
			skin, err = loadSkinDir(path, opts.TileColor)
		case strings.EqualFold(filepath.Ext(entry.Name()), ".png"):
			skin, err = loadSkinStrip(path, opts.TileColor)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tetrify: LoadCatalog: %w", err)
		}

		skins = append(skins, skin)
	}

	if len(skins) == 0 {
		return nil, fmt.Errorf("tetrify: LoadCatalog: %s: %w", dir,
			ErrNoSkinsAvailable)
	}

	return NewCatalog(skins...)
}

func loadSkinStrip(path string, mode TileColor) (*Skin, error) {
	img, err := readPNG(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b := img.Bounds()
	if b.Dx() < NumCategories || b.Dx()%NumCategories != 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("skin %q: strip is %dx%d, width must be a "+
			"non-zero multiple of %d: %w", name, b.Dx(), b.Dy(), NumCategories,
			ErrIncompleteSkin)
	}

	rgba := toRGBA(img)
	section := b.Dx() / NumCategories

	var tiles [NumCategories]image.Image
	for i, cat := range stripOrder {
		tiles[cat] = rgba.SubImage(image.Rect(i*section, 0, (i+1)*section,
			b.Dy()))
	}

	return NewSkin(name, tiles, mode)
}

func loadSkinDir(dir string, mode TileColor) (*Skin, error) {
	name := filepath.Base(dir)

	var tiles [NumCategories]image.Image
	for cat, file := range tileFiles {
		img, err := readPNG(filepath.Join(dir, file))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("skin %q: missing %s: %w", name, file,
				ErrIncompleteSkin)
		} else if err != nil {
			return nil, err
		}
		tiles[cat] = img
	}

	return NewSkin(name, tiles, mode)
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrIncompleteSkin)
	}

	return img, nil
}
