package tetrify

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/gift"
)

// Score returns the mean CIE L*a*b* distance between source and approx,
// after resampling source to approx's size. Lower is better; identical images
// score 0.
func Score(source, approx image.Image) (float64, error) {
	size := approx.Bounds().Size()
	if size.X == 0 || size.Y == 0 || source.Bounds().Empty() {
		return 0, fmt.Errorf("tetrify: Score: %w", ErrInvalidDimensions)
	}

	ref := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	gift.Resize(size.X, size.Y, gift.LanczosResampling).Draw(ref, source,
		&gift.Options{
			Parallelization: true,
		})

	min := approx.Bounds().Min
	var total float64
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			a := toColorful(ref.RGBAAt(x, y))
			b := toColorful(color.RGBAModel.Convert(
				approx.At(min.X+x, min.Y+y)).(color.RGBA))
			total += a.DistanceLab(b)
		}
	}

	return total / float64(size.X*size.Y), nil
}
