package tetrify

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestApproxImage(t *testing.T) {
	target := color.RGBA{30, 200, 90, 255}
	cat := solidCatalog(t, testPalette, withColor(CategoryO, target))

	tests := []struct {
		name     string
		img      image.Image
		opts     ImageOptions
		wantSize image.Point
	}{
		{
			name:     "catalog tiles",
			img:      makeTestImage(8, 8, target),
			opts:     ImageOptions{Width: 2, Height: 2, Solver: DefaultSolverOptions()},
			wantSize: image.Pt(4, 4),
		},
		{
			name:     "fitted tiles",
			img:      makeTestImage(20, 10, target),
			opts:     ImageOptions{Width: 4, Height: 2, FitTiles: true},
			wantSize: image.Pt(20, 10),
		},
		{
			name:     "fitted non-divisible",
			img:      makeTestImage(23, 11, target),
			opts:     ImageOptions{Width: 4, Height: 2, FitTiles: true},
			wantSize: image.Pt(20, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, board, err := ApproxImage(tt.img, cat, tt.opts)
			if err != nil {
				t.Fatalf("ApproxImage: %v", err)
			}

			if out.Bounds().Size() != tt.wantSize {
				t.Errorf("got %v output, want %v", out.Bounds().Size(), tt.wantSize)
			}

			if err := board.Validate(cat); err != nil {
				t.Error(err)
			}

			for _, p := range board.Placements {
				if p.Shape() != ShapeO || p.Skin != 1 {
					t.Errorf("got %s placement with skin %d, want O with skin 1",
						p.Shape(), p.Skin)
				}
			}
			if len(board.Garbage) != 0 {
				t.Errorf("got %d garbage, want 0", len(board.Garbage))
			}
		})
	}
}

func TestApproxImageInvalid(t *testing.T) {
	cat := solidCatalog(t, testPalette)
	img := makeTestImage(4, 4, color.RGBA{A: 255})

	tests := []struct {
		name string
		img  image.Image
		opts ImageOptions
		want error
	}{
		{"zero width", img, ImageOptions{Width: 0, Height: 2}, ErrInvalidDimensions},
		{"zero height", img, ImageOptions{Width: 2, Height: 0, FitTiles: true}, ErrInvalidDimensions},
		{"empty image", image.NewRGBA(image.Rect(0, 0, 0, 0)), ImageOptions{Width: 2, Height: 2}, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ApproxImage(tt.img, cat, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, _, err := ApproxImage(img, nil, ImageOptions{Width: 1, Height: 1}); !errors.Is(err, ErrNoSkinsAvailable) {
		t.Errorf("nil catalog: got %v", err)
	}
}

func TestApproxImageFile(t *testing.T) {
	dir := t.TempDir()
	cat := solidCatalog(t, testPalette)

	source := filepath.Join(dir, "source.png")
	writePNG(t, source, makeTestImage(12, 6, testPalette[CategoryT]))

	output := filepath.Join(dir, "out.png")
	board, err := ApproxImageFile(source, output, cat, ImageOptions{
		Width:    6,
		Height:   3,
		FitTiles: true,
	})
	if err != nil {
		t.Fatalf("ApproxImageFile: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}

	if img.Bounds().Size() != image.Pt(12, 6) {
		t.Errorf("got %v output, want 12x6", img.Bounds().Size())
	}
	if board.Width != 6 || board.Height != 3 {
		t.Errorf("got %dx%d board", board.Width, board.Height)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files in output directory, want 2", len(entries))
	}
}

func TestApproxImageFileErrors(t *testing.T) {
	dir := t.TempDir()
	cat := solidCatalog(t, testPalette)

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	good := filepath.Join(dir, "good.png")
	writePNG(t, good, makeTestImage(4, 4, testPalette[CategoryO]))

	tests := []struct {
		name   string
		source string
		opts   ImageOptions
		want   error
	}{
		{"unsupported format", text, ImageOptions{Width: 2, Height: 2}, ErrUnsupportedSourceFormat},
		{"missing source", filepath.Join(dir, "missing.png"), ImageOptions{Width: 2, Height: 2}, fs.ErrNotExist},
		{"invalid dimensions", good, ImageOptions{Width: 2, Height: -1}, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(dir, "out.png")
			_, err := ApproxImageFile(tt.source, output, cat, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}

			if _, err := os.Stat(output); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("output exists after failure: %v", err)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files, want only the two sources", len(entries))
	}
}

func TestDecodeImageBMP(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := bmp.Encode(buf, makeTestImage(5, 3, testPalette[CategoryS])); err != nil {
		t.Fatal(err)
	}

	img, err := DecodeImage(buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Bounds().Size() != image.Pt(5, 3) {
		t.Errorf("got %v", img.Bounds().Size())
	}
}

func TestWriteAtomicFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	err := writeAtomic(path, func(f *os.File) error {
		f.WriteString("partial")
		return errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("got %v, want boom", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d leftover files", len(entries))
	}
}
