package tetrify

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Metric is a color distance used to compare target colors against tile
// colors.
type Metric int

// Supported metrics.
const (
	// MetricRGB is a Euclidean distance in RGB with green weighted the most
	// and blue the least, roughly following perceived brightness.
	MetricRGB Metric = iota
	// MetricLab is the Euclidean distance in CIE L*a*b*.
	MetricLab
	// MetricCIEDE2000 is the CIEDE2000 color difference.
	MetricCIEDE2000
)

const (
	redWeight   = 1.0
	greenWeight = 1.7
	blueWeight  = 0.8
)

// ParseMetric parses a metric name as accepted by the command line.
func ParseMetric(name string) (Metric, error) {
	switch name {
	case "rgb", "":
		return MetricRGB, nil
	case "lab":
		return MetricLab, nil
	case "ciede2000":
		return MetricCIEDE2000, nil
	}
	return 0, fmt.Errorf("tetrify: unknown metric %q (want rgb, lab or ciede2000)", name)
}

func (m Metric) String() string {
	switch m {
	case MetricRGB:
		return "rgb"
	case MetricLab:
		return "lab"
	case MetricCIEDE2000:
		return "ciede2000"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// Distance returns the distance between two colors. It is zero for equal
// colors and symmetric.
func (m Metric) Distance(a, b colorful.Color) float64 {
	switch m {
	case MetricLab:
		return a.DistanceLab(b)
	case MetricCIEDE2000:
		return a.DistanceCIEDE2000(b)
	}

	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return math.Sqrt(dr*dr*redWeight + dg*dg*greenWeight + db*db*blueWeight)
}

// toColorful converts an 8-bit color to colorful's representation, ignoring
// alpha.
func toColorful(c color.RGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}
