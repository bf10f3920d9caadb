package tetrify

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const (
	// fingerprintFrames caps the windows averaged into a fingerprint.
	fingerprintFrames = 16
	// silenceLevel is the RMS level below which a segment is left silent.
	silenceLevel = 1e-3
	// comboTonesName is the clip file holding the rising combo notes played
	// back to back. It is split into comboTonesCount clips when loaded.
	comboTonesName  = "comboTones"
	comboTonesCount = 15
)

var audioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".flac": true,
}

// Clip is a sound effect that approximated audio is built out of.
type Clip struct {
	Name    string
	Samples []float64

	fingerprint []float64
	level       float64
}

// ClipSet is an ordered set of clips that share a sample rate.
type ClipSet struct {
	rate  int
	clips []*Clip
}

// NewClipSet returns an empty set of clips sampled at rate Hz.
func NewClipSet(rate int) (*ClipSet, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("tetrify: NewClipSet: sample rate %d: %w", rate,
			ErrInvalidDimensions)
	}
	return &ClipSet{rate: rate}, nil
}

// Add adds samples to s as a clip called name.
func (s *ClipSet) Add(name string, samples []float64) error {
	fp, level := newAnalyzer(analysisSize).fingerprint(samples)
	if level == 0 {
		return fmt.Errorf("tetrify: ClipSet.Add: clip %s is silent: %w", name,
			ErrUnsupportedSourceFormat)
	}

	s.clips = append(s.clips, &Clip{
		Name:        name,
		Samples:     samples,
		fingerprint: fp,
		level:       level,
	})
	return nil
}

func (s *ClipSet) Len() int {
	return len(s.clips)
}

func (s *ClipSet) Clip(i int) *Clip {
	return s.clips[i]
}

func (s *ClipSet) SampleRate() int {
	return s.rate
}

// Names returns the names of the clips in order.
func (s *ClipSet) Names() []string {
	names := make([]string, len(s.clips))
	for i, c := range s.clips {
		names[i] = c.Name
	}
	return names
}

// LoadClips decodes every audio file in dir into a clip sampled at rate Hz,
// in file name order. The combo tones file is split into one clip per note.
func LoadClips(ctx context.Context, dir string, rate int) (*ClipSet, error) {
	set, err := NewClipSet(rate)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tetrify: LoadClips: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && audioExts[ext] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	decoded := make([]*Audio, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			a, err := decodeAudio(gctx, path, rate, false)
			if err != nil {
				return err
			}
			decoded[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tetrify: LoadClips: %w", err)
	}

	for i, path := range paths {
		name := FileTitle(path)
		if !strings.EqualFold(name, comboTonesName) {
			if err := set.Add(name, decoded[i].Samples); err != nil {
				return nil, err
			}
			continue
		}

		for j, note := range splitEven(decoded[i].Samples, comboTonesCount) {
			if err := set.Add(fmt.Sprintf("%s-%02d", name, j+1), note); err != nil {
				return nil, err
			}
		}
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("tetrify: LoadClips: %s: %w", dir,
			ErrNoClipsAvailable)
	}

	return set, nil
}

// splitEven cuts samples into n parts of equal length, dropping whatever is
// left over.
func splitEven(samples []float64, n int) [][]float64 {
	size := len(samples) / n
	if size == 0 {
		return nil
	}

	parts := make([][]float64, n)
	for i := range parts {
		parts[i] = samples[i*size : (i+1)*size]
	}
	return parts
}

// segment is the stretch of audio between two onsets and the clip picked to
// stand in for it. A clip of -1 leaves the segment silent.
type segment struct {
	start, end int
	clip       int
	gain       float64
}

// approximate splits a at its onsets, picks the closest clip for every
// segment, and mixes the picks, scaled to the level of their segments, into
// a stream as long as a.
func (s *ClipSet) approximate(ctx context.Context, a *Audio,
	workers int) (*Audio, []segment, error) {
	if a.SampleRate != s.rate {
		return nil, nil, fmt.Errorf("audio at %d Hz, clips at %d Hz: %w",
			a.SampleRate, s.rate, ErrInvalidDimensions)
	}

	bounds := segmentBounds(DetectOnsets(a), len(a.Samples))
	segments := make([]segment, len(bounds)-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			segments[i] = s.match(a.Samples, bounds[i], bounds[i+1])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]float64, len(a.Samples))
	for _, seg := range segments {
		if seg.clip < 0 {
			continue
		}

		clip := s.clips[seg.clip].Samples
		n := min(len(clip), seg.end-seg.start)
		floats.AddScaled(out[seg.start:seg.start+n], seg.gain, clip[:n])
	}

	return &Audio{SampleRate: a.SampleRate, Samples: out}, segments, nil
}

// match picks the clip whose fingerprint is most similar to that of
// samples[start:end], ties going to the first clip.
func (s *ClipSet) match(samples []float64, start, end int) segment {
	seg := segment{start: start, end: end, clip: -1}

	fp, level := newAnalyzer(analysisSize).fingerprint(samples[start:end])
	if level < silenceLevel {
		return seg
	}

	best := math.Inf(-1)
	for i, c := range s.clips {
		if sim := floats.Dot(fp, c.fingerprint); sim > best {
			best = sim
			seg.clip = i
		}
	}
	seg.gain = level / s.clips[seg.clip].level

	return seg
}

// segmentBounds returns the start of every segment followed by the end of
// the last one.
func segmentBounds(onsets []int, n int) []int {
	bounds := []int{0}
	for _, at := range onsets {
		if at > bounds[len(bounds)-1] && at < n {
			bounds = append(bounds, at)
		}
	}
	return append(bounds, n)
}
