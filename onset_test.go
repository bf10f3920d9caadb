package tetrify

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// tone returns seconds of a sine wave at freq Hz.
func tone(rate int, freq, seconds, amp float64) []float64 {
	samples := make([]float64, int(float64(rate)*seconds))
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return samples
}

func TestSpectrumPeak(t *testing.T) {
	tests := []struct {
		freq float64
		bin  int
	}{
		{1000, 256},
		{500, 128},
		{2000, 512},
	}

	an := newAnalyzer(analysisSize)
	for _, tt := range tests {
		mags := an.spectrum(nil, tone(8000, tt.freq, 1, 0.5), 0)
		if len(mags) != analysisSize/2+1 {
			t.Fatalf("got %d bins, want %d", len(mags), analysisSize/2+1)
		}
		if got := floats.MaxIdx(mags); got != tt.bin {
			t.Errorf("%v Hz: peak at bin %d, want %d", tt.freq, got, tt.bin)
		}
	}
}

func TestSpectrumPadding(t *testing.T) {
	an := newAnalyzer(analysisSize)
	mags := an.spectrum(nil, tone(8000, 1000, 0.1, 0.5), 4000)
	if floats.Max(mags) != 0 {
		t.Errorf("frame past the end has magnitude %v, want silence",
			floats.Max(mags))
	}
}

func TestFingerprint(t *testing.T) {
	an := newAnalyzer(analysisSize)

	fp, level := an.fingerprint(tone(8000, 440, 0.5, 0.5))
	if norm := floats.Norm(fp, 2); math.Abs(norm-1) > 1e-9 {
		t.Errorf("fingerprint has length %v, want 1", norm)
	}
	if want := 0.5 / math.Sqrt2; math.Abs(level-want) > 0.01 {
		t.Errorf("level = %v, want %v", level, want)
	}

	fp, level = an.fingerprint(make([]float64, 3000))
	if level != 0 || floats.Max(fp) != 0 {
		t.Errorf("silence has level %v and peak %v, want 0", level, floats.Max(fp))
	}
}

func TestDetectOnsets(t *testing.T) {
	const rate = 8000

	samples := append(make([]float64, rate/2), tone(rate, 440, 1, 0.5)...)
	onsets := DetectOnsets(&Audio{SampleRate: rate, Samples: samples})
	if len(onsets) == 0 {
		t.Fatal("no onsets detected")
	}

	// The windows that first overlap the tone start between 2048 and 4096.
	for _, at := range onsets {
		if at < 2048 || at > 4096 {
			t.Errorf("onset at %d, want one near %d", at, rate/2)
		}
	}

	for i := 1; i < len(onsets); i++ {
		if onsets[i]-onsets[i-1] <= int(onsetGap*rate) {
			t.Errorf("onsets %d and %d are too close", onsets[i-1], onsets[i])
		}
	}
}

func TestDetectOnsetsSilence(t *testing.T) {
	tests := []struct {
		name  string
		audio *Audio
	}{
		{"silence", &Audio{SampleRate: 8000, Samples: make([]float64, 8000)}},
		{"empty", &Audio{SampleRate: 8000}},
		{"no rate", &Audio{Samples: tone(8000, 440, 1, 0.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if onsets := DetectOnsets(tt.audio); len(onsets) != 0 {
				t.Errorf("got onsets %v, want none", onsets)
			}
		})
	}
}

func TestSubtractLocalAverage(t *testing.T) {
	got := subtractLocalAverage([]float64{0, 0, 6, 0, 0}, 1)
	want := []float64{0, 0, 4, 0, 0}
	if !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("got %v, want %v", got, want)
	}
}
