package tetrify

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultSampleRate is the rate in Hz that audio is decoded and rebuilt at.
const DefaultSampleRate = 44100

// Audio is a mono stream of samples, nominally in [-1, 1].
type Audio struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the length of a.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second /
		time.Duration(a.SampleRate)
}

// AudioOptions configures ApproxAudio.
type AudioOptions struct {
	// Workers is the number of segments matched against the clips at once.
	Workers int
	// Debug forwards the output of ffmpeg to stderr.
	Debug bool
	// Logger receives progress messages. Nil disables them.
	Logger *log.Logger
}

// DefaultAudioOptions returns the options used by the command line tools.
func DefaultAudioOptions() AudioOptions {
	return AudioOptions{Workers: 4}
}

func (o *AudioOptions) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// ApproxAudio rebuilds the audio of source out of the sound clips in clips
// and writes it to output, in a format ffmpeg picks from output's extension.
// Nothing is written to output if any step fails or ctx is cancelled.
func ApproxAudio(ctx context.Context, source, output string, clips *ClipSet,
	opts AudioOptions) error {
	if opts.Workers <= 0 {
		return errors.New("tetrify: ApproxAudio: workers must be positive")
	}

	if clips == nil || clips.Len() == 0 {
		return fmt.Errorf("tetrify: ApproxAudio: %w", ErrNoClipsAvailable)
	}

	start := time.Now()
	src, err := decodeAudio(ctx, source, clips.SampleRate(), opts.Debug)
	if err != nil {
		return fmt.Errorf("tetrify: ApproxAudio: %w", err)
	}

	approx, segments, err := clips.approximate(ctx, src, opts.Workers)
	if err != nil {
		return fmt.Errorf("tetrify: ApproxAudio: %w", err)
	}

	opts.logf("tetrify: %s: rebuilt %s of audio from %d segments in %s",
		FileTitle(source), src.Duration().Round(time.Millisecond),
		len(segments), time.Since(start).Round(time.Millisecond))

	tmp, err := createTemp(output)
	if err != nil {
		return fmt.Errorf("tetrify: ApproxAudio: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	err = encodeAudio(ctx, approx, tmpPath, opts.Debug)
	if err == nil {
		err = os.Rename(tmpPath, output)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tetrify: ApproxAudio: %w", err)
	}

	return nil
}

// DecodeAudio decodes the first audio stream of the file at path with
// ffmpeg, mixed down to mono and resampled to rate Hz.
func DecodeAudio(ctx context.Context, path string, rate int) (*Audio, error) {
	a, err := decodeAudio(ctx, path, rate, false)
	if err != nil {
		return nil, fmt.Errorf("tetrify: DecodeAudio: %w", err)
	}
	return a, nil
}

func decodeAudio(ctx context.Context, path string, rate int,
	debug bool) (*Audio, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate %d must be positive: %w", rate,
			ErrInvalidDimensions)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	stderr := newTailWriter(4096)
	cmd := pcmDecodeCommand(path, rate)
	cmd.Stderr = stderrFor(stderr, debug)
	rd, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %v: %w", err, ErrExternalToolFailure)
	}

	stop := context.AfterFunc(ctx, func() {
		cmd.Process.Kill()
	})
	defer stop()

	samples, rerr := readPCM(rd)
	werr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if werr != nil {
		return nil, fmt.Errorf("ffmpeg: decoding %s: %v: %s: %w", path, werr,
			stderr, ErrExternalToolFailure)
	}
	if rerr != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, rerr)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio decoded from %s: %w", path,
			ErrUnsupportedSourceFormat)
	}

	return &Audio{SampleRate: rate, Samples: samples}, nil
}

func encodeAudio(ctx context.Context, a *Audio, output string, debug bool) error {
	stderr := newTailWriter(4096)
	cmd := pcmEncodeCommand(output, a.SampleRate)
	cmd.Stderr = stderrFor(stderr, debug)
	wr, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %w", err, ErrExternalToolFailure)
	}

	stop := context.AfterFunc(ctx, func() {
		cmd.Process.Kill()
	})
	defer stop()

	err = writePCM(wr, a.Samples)
	wr.Close()

	// As with video, a failed write is explained by the encoder's exit.
	werr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if werr != nil {
		return fmt.Errorf("ffmpeg: encoding: %v: %s: %w", werr, stderr,
			ErrExternalToolFailure)
	}

	return err
}

// readPCM reads mono 32-bit little endian float samples until EOF.
func readPCM(rd io.Reader) ([]float64, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	if rem := len(data) % 4; rem != 0 {
		return nil, fmt.Errorf("%d stray bytes after the last sample: %w", rem,
			io.ErrUnexpectedEOF)
	}

	samples := make([]float64, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}

	return samples, nil
}

// writePCM writes samples as mono 32-bit little endian floats, clipped to
// [-1, 1].
func writePCM(wr io.Writer, samples []float64) error {
	bw := bufio.NewWriter(wr)
	var buf [4]byte
	for _, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(s)))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// pcmDecodeCommand returns an ffmpeg command that writes the audio of path to
// its stdout as raw mono samples at rate Hz.
func pcmDecodeCommand(path string, rate int) *exec.Cmd {
	return ffmpeg.Input(path).
		Output("pipe:1", ffmpeg.KwArgs{
			"f":  "f32le",
			"ac": 1,
			"ar": rate,
		}).
		Compile()
}

// pcmEncodeCommand returns an ffmpeg command that reads raw mono samples at
// rate Hz from its stdin and encodes them into output.
func pcmEncodeCommand(output string, rate int) *exec.Cmd {
	return ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":  "f32le",
		"ac": 1,
		"ar": rate,
	}).
		Output(output).
		OverWriteOutput().
		Compile()
}
