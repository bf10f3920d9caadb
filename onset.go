package tetrify

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	// analysisSize is the number of samples in each analysis window.
	analysisSize = 2048
	onsetHop     = analysisSize / 4
	// onsetGamma sets the log compression of magnitudes, which lifts quiet
	// high frequencies up to the level of the loud low ones.
	onsetGamma     = 100
	onsetThreshold = 0.2
	// onsetAverage is the half width in seconds of the neighbourhood a peak
	// in flux must stand out from, and onsetGap the shortest time in seconds
	// between two onsets.
	onsetAverage = 0.1
	onsetGap     = 0.2
)

// analyzer computes the magnitude spectra of Hann windowed frames. It is not
// safe for concurrent use.
type analyzer struct {
	fft    *fourier.FFT
	window []float64
	frame  []float64
	coeffs []complex128
}

func newAnalyzer(size int) *analyzer {
	w := make([]float64, size)
	for i := range w {
		w[i] = 1
	}

	return &analyzer{
		fft:    fourier.NewFFT(size),
		window: window.Hann(w),
		frame:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
	}
}

func (a *analyzer) bins() int {
	return len(a.coeffs)
}

// spectrum writes the magnitude spectrum of the frame of samples starting at
// start into dst, allocating it if nil. Samples past the end count as
// silence.
func (a *analyzer) spectrum(dst, samples []float64, start int) []float64 {
	for i := range a.frame {
		v := 0.0
		if j := start + i; j < len(samples) {
			v = samples[j]
		}
		a.frame[i] = v * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)
	if dst == nil {
		dst = make([]float64, len(a.coeffs))
	}
	for i, c := range a.coeffs {
		dst[i] = cmplx.Abs(c)
	}

	return dst
}

// fingerprint returns the mean magnitude spectrum of samples, scaled to unit
// length, along with the RMS level of the samples it covers. At most
// fingerprintFrames half overlapping windows from the start of samples are
// used. Silence has a zero fingerprint.
func (a *analyzer) fingerprint(samples []float64) ([]float64, float64) {
	hop := len(a.frame) / 2
	sum := make([]float64, a.bins())
	mags := make([]float64, a.bins())

	frames := 0
	for start := 0; start < len(samples) && frames < fingerprintFrames; start += hop {
		a.spectrum(mags, samples, start)
		floats.Add(sum, mags)
		frames++
	}
	if frames == 0 {
		return sum, 0
	}

	covered := min(len(samples), (frames-1)*hop+len(a.frame))
	level := rmsLevel(samples[:covered])

	if norm := floats.Norm(sum, 2); norm > 0 {
		floats.Scale(1/norm, sum)
	}

	return sum, level
}

func rmsLevel(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Norm(samples, 2) / math.Sqrt(float64(len(samples)))
}

// DetectOnsets returns the indexes of the samples of a at which a new sound
// starts, in increasing order.
//
// Onsets are peaks in spectral flux, the summed rise of log compressed
// magnitudes from one window to the next, that stand out from the flux
// around them.
func DetectOnsets(a *Audio) []int {
	n := len(a.Samples)
	if n == 0 || a.SampleRate <= 0 {
		return nil
	}

	an := newAnalyzer(analysisSize)
	prev := make([]float64, an.bins())
	cur := make([]float64, an.bins())

	// Only whole windows are analyzed, so the end of the stream does not
	// read as a burst of new sound.
	frames := 1
	if n > analysisSize {
		frames += (n - analysisSize) / onsetHop
	}

	flux := make([]float64, frames)
	for i := range flux {
		an.spectrum(cur, a.Samples, i*onsetHop)
		for b, m := range cur {
			cur[b] = math.Log1p(onsetGamma * m)
			if d := cur[b] - prev[b]; i > 0 && d > 0 {
				flux[i] += d
			}
		}
		prev, cur = cur, prev
	}

	span := int(math.Ceil(onsetAverage * float64(a.SampleRate) / onsetHop))
	novelty := subtractLocalAverage(flux, span)

	peak := floats.Max(novelty)
	if peak <= 0 {
		return nil
	}
	floats.Scale(1/peak, novelty)

	gap := int(onsetGap * float64(a.SampleRate))
	var onsets []int
	last := -1
	for i, v := range novelty {
		at := i * onsetHop
		if v > onsetThreshold && (last < 0 || at-last > gap) {
			onsets = append(onsets, at)
			last = at
		}
	}

	return onsets
}

// subtractLocalAverage returns each value less the mean of the values within
// span of it, clamped at zero.
func subtractLocalAverage(values []float64, span int) []float64 {
	sums := make([]float64, len(values)+1)
	for i, v := range values {
		sums[i+1] = sums[i] + v
	}

	out := make([]float64, len(values))
	for i, v := range values {
		lo := max(0, i-span)
		hi := min(len(values), i+span+1)
		avg := (sums[hi] - sums[lo]) / float64(hi-lo)
		out[i] = math.Max(v-avg, 0)
	}

	return out
}
