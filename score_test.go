package tetrify

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestScore(t *testing.T) {
	img := makeTestImage(8, 8, color.RGBA{30, 60, 90, 255})

	score, err := Score(img, img)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score > 1e-6 {
		t.Errorf("identical images scored %v, want 0", score)
	}

	near, err := Score(img, makeTestImage(4, 4, color.RGBA{35, 60, 90, 255}))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	far, err := Score(img, makeTestImage(4, 4, color.RGBA{250, 250, 250, 255}))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if !(near < far) {
		t.Errorf("near image scored %v, far image %v", near, far)
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Score(img, empty); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("empty image: got %v", err)
	}
}
