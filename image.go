package tetrify

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"

	// Source decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageOptions configures the approximation of a single image.
type ImageOptions struct {
	// Width and Height are the board size in minos.
	Width  int
	Height int
	// FitTiles resizes the catalog's tiles so the output is about as large as
	// the source. Otherwise the catalog's own tile size is used.
	FitTiles bool
	Solver   SolverOptions
}

func (o *ImageOptions) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("board %dx%d, width and height must be positive: %w",
			o.Width, o.Height, ErrInvalidDimensions)
	}
	return nil
}

// ApproxImage approximates img with a board of tetrominoes drawn from cat. It
// returns the rendered board along with the board itself.
func ApproxImage(img image.Image, cat *Catalog, opts ImageOptions) (*image.RGBA, *Board, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, fmt.Errorf("tetrify: ApproxImage: %w", err)
	}

	if img.Bounds().Empty() {
		return nil, nil, fmt.Errorf("tetrify: ApproxImage: image has zero area: %w",
			ErrInvalidDimensions)
	}

	if cat == nil {
		return nil, nil, fmt.Errorf("tetrify: ApproxImage: %w", ErrNoSkinsAvailable)
	}

	if opts.FitTiles {
		var err error
		cat, err = cat.FitTo(img.Bounds().Size(), opts.Width, opts.Height)
		if err != nil {
			return nil, nil, fmt.Errorf("tetrify: ApproxImage: %w", err)
		}

		tile := cat.TileSize()
		img = resizeImage(img, opts.Width*tile.X, opts.Height*tile.Y)
	}

	return approx(img, cat, opts.Width, opts.Height, opts.Solver)
}

// approx runs the sample, solve and render stages with an already sized
// catalog.
func approx(img image.Image, cat *Catalog, width, height int,
	opts SolverOptions) (*image.RGBA, *Board, error) {
	grid, err := Sample(img, width, height)
	if err != nil {
		return nil, nil, err
	}

	board, err := Solve(grid, cat, opts)
	if err != nil {
		return nil, nil, err
	}

	output, err := Render(board, cat)
	if err != nil {
		return nil, nil, err
	}

	return output, board, nil
}

// resizeImage resamples img to exactly width by height pixels, so that every
// sampling region lines up with one tile of the rendered output.
func resizeImage(img image.Image, width, height int) image.Image {
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return img
	}

	g := gift.New(gift.Resize(width, height, gift.LanczosResampling))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// DecodeImage decodes a PNG, JPEG, GIF, BMP or WebP image.
func DecodeImage(rd io.Reader) (image.Image, error) {
	img, _, err := image.Decode(bufio.NewReader(rd))
	if err != nil {
		return nil, fmt.Errorf("tetrify: DecodeImage: %v: %w", err,
			ErrUnsupportedSourceFormat)
	}
	return img, nil
}

// ReadImage opens and decodes the image at path.
func ReadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tetrify: ReadImage: %w", err)
	}
	defer f.Close()

	img, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("tetrify: ReadImage: %s: %w", path, err)
	}

	return img, nil
}

// ApproxImageFile approximates the image at source and writes the result to
// output as a PNG. Nothing is written to output if any step fails.
func ApproxImageFile(source, output string, cat *Catalog, opts ImageOptions) (*Board, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("tetrify: ApproxImageFile: %w", err)
	}

	img, err := ReadImage(source)
	if err != nil {
		return nil, err
	}

	result, board, err := ApproxImage(img, cat, opts)
	if err != nil {
		return nil, err
	}

	err = writeAtomic(output, func(f *os.File) error {
		wr := bufio.NewWriter(f)
		if err := png.Encode(wr, result); err != nil {
			return err
		}
		return wr.Flush()
	})
	if err != nil {
		return nil, fmt.Errorf("tetrify: ApproxImageFile: %w", err)
	}

	return board, nil
}

// createTemp creates an empty temporary file next to path that keeps path's
// extension, so tools that pick a format from the extension still work.
func createTemp(path string) (*os.File, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	ext := filepath.Ext(base)
	return os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
}

// writeAtomic writes a file through a temporary file that is renamed onto
// path only once write succeeds.
func writeAtomic(path string, write func(f *os.File) error) error {
	f, err := createTemp(path)
	if err != nil {
		return err
	}

	tmp := f.Name()
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return fmt.Errorf("%w (also failed to remove %s: %v)", err, tmp, rerr)
		}
		return err
	}

	return nil
}
