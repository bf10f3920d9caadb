package tetrify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"
)

// VideoOptions configures ApproxVideo.
type VideoOptions struct {
	// Width and Height are the board size in minos of every frame.
	Width  int
	Height int
	// Workers is the number of frames approximated at once.
	Workers int
	// FitTiles resizes the catalog's tiles so each frame is about as large
	// as the source video.
	FitTiles bool
	// Audio copies the source's audio track, if it has one, into the output.
	Audio bool
	// Clips, if set along with Audio, replaces the audio track with one
	// rebuilt from Tetris sound clips by ApproxAudio.
	Clips  *ClipSet
	Solver SolverOptions
	// Debug forwards the output of ffmpeg to stderr.
	Debug bool
	// Logger receives progress messages. Nil disables them.
	Logger *log.Logger
}

// DefaultVideoOptions returns the options used by the command line tools for
// a board of width by height minos.
func DefaultVideoOptions(width, height int) VideoOptions {
	return VideoOptions{
		Width:    width,
		Height:   height,
		Workers:  4,
		FitTiles: true,
		Audio:    true,
		Solver:   DefaultSolverOptions(),
	}
}

func (o *VideoOptions) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("board %dx%d, width and height must be positive: %w",
			o.Width, o.Height, ErrInvalidDimensions)
	}
	if o.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	return nil
}

func (o *VideoOptions) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

type frameResult struct {
	frame *image.RGBA
	err   error
}

// ApproxVideo approximates every frame of the video at source and encodes
// the frames, in their original order and at the original frame rate, into
// output. The format of output is chosen by ffmpeg from its extension.
// Nothing is written to output if any frame fails or ctx is cancelled.
func ApproxVideo(ctx context.Context, source, output string, cat *Catalog,
	opts VideoOptions) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("tetrify: ApproxVideo: %w", err)
	}

	if cat == nil || cat.Len() == 0 {
		return fmt.Errorf("tetrify: ApproxVideo: %w", ErrNoSkinsAvailable)
	}

	info, err := ProbeVideo(source)
	if err != nil {
		return err
	}

	if opts.FitTiles {
		cat, err = cat.FitTo(image.Pt(info.Width, info.Height), opts.Width,
			opts.Height)
		if err != nil {
			return fmt.Errorf("tetrify: ApproxVideo: %w", err)
		}
	}

	tile := cat.TileSize()
	opts.logf("tetrify: %s: %dx%d at %s fps, %dx%d board of %dx%d tiles",
		info.Title, info.Width, info.Height, info.FrameRate, opts.Width,
		opts.Height, tile.X, tile.Y)

	track := audioTrack{}
	if opts.Audio && info.HasAudio {
		track = audioTrack{path: source, codec: "copy"}
	}

	if track.path != "" && opts.Clips != nil {
		path, err := approxSoundtrack(ctx, source, &opts)
		if err != nil {
			return fmt.Errorf("tetrify: ApproxVideo: %w", err)
		}
		defer os.Remove(path)
		track = audioTrack{path: path, codec: "aac"}
	}

	tmp, err := createTemp(output)
	if err != nil {
		return fmt.Errorf("tetrify: ApproxVideo: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	err = approxVideo(ctx, source, tmpPath, info, track, cat, &opts)
	if err == nil {
		err = os.Rename(tmpPath, output)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tetrify: ApproxVideo: %w", err)
	}

	return nil
}

// audioTrack is the audio stream muxed into an output video. An empty path
// means the output has no audio.
type audioTrack struct {
	path  string
	codec string
}

// approxSoundtrack approximates the audio of source into a temporary WAV
// file and returns its path.
func approxSoundtrack(ctx context.Context, source string, opts *VideoOptions) (string, error) {
	tmp, err := os.CreateTemp("", "tetrify-*.wav")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	tmp.Close()

	err = ApproxAudio(ctx, source, path, opts.Clips, AudioOptions{
		Workers: opts.Workers,
		Debug:   opts.Debug,
		Logger:  opts.Logger,
	})
	if err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

func approxVideo(ctx context.Context, source, output string, info *VideoInfo,
	track audioTrack, cat *Catalog, opts *VideoOptions) error {
	tile := cat.TileSize()

	decodeErr := newTailWriter(4096)
	decoder := extractCommand(source, info, opts.Width*tile.X,
		opts.Height*tile.Y)
	decoder.Stderr = stderrFor(decodeErr, opts.Debug)
	frameRd, err := decoder.StdoutPipe()
	if err != nil {
		return err
	}

	encodeErr := newTailWriter(4096)
	encoder := encodeCommand(output, info, track)
	encoder.Stderr = stderrFor(encodeErr, opts.Debug)
	frameWr, err := encoder.StdinPipe()
	if err != nil {
		return err
	}

	if err := decoder.Start(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %w", err, ErrExternalToolFailure)
	}

	if err := encoder.Start(); err != nil {
		decoder.Process.Kill()
		decoder.Wait()
		return fmt.Errorf("ffmpeg: %v: %w", err, ErrExternalToolFailure)
	}

	g, gctx := errgroup.WithContext(ctx)

	stop := context.AfterFunc(gctx, func() {
		decoder.Process.Kill()
		encoder.Process.Kill()
	})
	defer stop()

	slots := make(chan chan frameResult, opts.Workers)
	start := time.Now()

	g.Go(func() error {
		defer close(slots)

		err := decodeToWorkerPump(gctx, frameRd, slots, cat, opts)
		if werr := decoder.Wait(); werr != nil && gctx.Err() == nil {
			return fmt.Errorf("ffmpeg: decoding %s: %v: %s: %w", source, werr,
				decodeErr, ErrExternalToolFailure)
		}
		return err
	})

	g.Go(func() error {
		n, err := writeFrames(gctx, frameWr, slots)
		frameWr.Close()

		// A write error usually means the encoder exited, and its exit status
		// and stderr explain why. Any other error leaves nothing to encode.
		var wrErr *frameWriteError
		writeFailed := errors.As(err, &wrErr)
		if err != nil && !writeFailed {
			encoder.Process.Kill()
		}

		werr := encoder.Wait()
		if err != nil && !writeFailed {
			return err
		}

		if werr != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return fmt.Errorf("ffmpeg: encoding: %v: %s: %w", werr, encodeErr,
				ErrExternalToolFailure)
		}

		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("no frames decoded from %s: %w", source,
				ErrUnsupportedSourceFormat)
		}

		opts.logf("tetrify: %s: encoded %d frames in %s", info.Title, n,
			time.Since(start).Round(time.Millisecond))
		return nil
	})

	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// decodeToWorkerPump decodes frames from frameRd in order, queueing a result
// slot for each one on slots before handing it to a worker. At most
// opts.Workers frames are approximated at once.
func decodeToWorkerPump(ctx context.Context, frameRd io.Reader,
	slots chan<- chan frameResult, cat *Catalog, opts *VideoOptions) error {
	var workers errgroup.Group
	workers.SetLimit(opts.Workers)
	defer workers.Wait()

	rd := bufio.NewReader(frameRd)
	for i := 0; ; i++ {
		img, err := bmp.Decode(rd)
		if err == io.EOF {
			// Only a clean end between frames ends the stream. A frame cut
			// short is an error like any other.
			return nil
		} else if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("frame %d: %w", i, err)
		}

		slot := make(chan frameResult, 1)
		select {
		case slots <- slot:
		case <-ctx.Done():
			return ctx.Err()
		}

		workers.Go(func() error {
			if ctx.Err() != nil {
				slot <- frameResult{err: ctx.Err()}
				return nil
			}

			frame, _, err := approx(img, cat, opts.Width, opts.Height, opts.Solver)
			if err != nil {
				err = fmt.Errorf("frame %d: %w", i, err)
			}
			slot <- frameResult{frame: frame, err: err}
			return nil
		})

		if i > 0 && i%100 == 0 {
			opts.logf("tetrify: decoded %d frames", i)
		}
	}
}

// writeFrames writes the result of every slot, in the order the slots were
// queued, to wr as BMP images. It returns the number of frames written.
func writeFrames(ctx context.Context, wr io.Writer,
	slots <-chan chan frameResult) (int, error) {
	bw := bufio.NewWriter(wr)
	n := 0

	for {
		var slot chan frameResult
		var more bool
		select {
		case slot, more = <-slots:
			if !more {
				if err := bw.Flush(); err != nil {
					return n, &frameWriteError{frame: n, err: err}
				}
				return n, nil
			}
		case <-ctx.Done():
			return n, ctx.Err()
		}

		var res frameResult
		select {
		case res = <-slot:
		case <-ctx.Done():
			return n, ctx.Err()
		}

		if res.err != nil {
			return n, res.err
		}

		if err := bmp.Encode(bw, res.frame); err != nil {
			return n, &frameWriteError{frame: n, err: err}
		}
		n++
	}
}

// frameWriteError is a failure to hand a finished frame to the encoder.
type frameWriteError struct {
	frame int
	err   error
}

func (e *frameWriteError) Error() string {
	return fmt.Sprintf("writing frame %d: %v", e.frame, e.err)
}

func (e *frameWriteError) Unwrap() error {
	return e.err
}

// extractCommand returns an ffmpeg command that writes the frames of source,
// scaled to width by height, to its stdout as a stream of BMP images.
func extractCommand(source string, info *VideoInfo, width, height int) *exec.Cmd {
	return ffmpeg.Input(source).
		Output("pipe:1", ffmpeg.KwArgs{
			"format": "image2pipe",
			"vcodec": "bmp",
			"r":      info.FrameRate,
			"vf":     fmt.Sprintf("scale=%d:%d:flags=area", width, height),
		}).
		Compile()
}

// encodeCommand returns an ffmpeg command that reads a stream of BMP images
// from its stdin and encodes them into output, scaled back to the size of
// the source, along with the audio of track.
func encodeCommand(output string, info *VideoInfo, track audioTrack) *exec.Cmd {
	frames := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":         "image2pipe",
		"framerate": info.FrameRate,
	})

	streams := []*ffmpeg.Stream{frames.Video()}
	args := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"crf":     10,
		"pix_fmt": "yuv420p",
		"vf": fmt.Sprintf("scale=%d:%d:flags=neighbor", info.Width&^1,
			info.Height&^1),
	}

	if track.path != "" {
		streams = append(streams, ffmpeg.Input(track.path).Audio())
		args["c:a"] = track.codec
	}

	return ffmpeg.Output(streams, output, args).OverWriteOutput().Compile()
}

func stderrFor(tail *tailWriter, debug bool) io.Writer {
	if debug {
		return io.MultiWriter(tail, os.Stderr)
	}
	return tail
}

// tailWriter keeps the last bytes written to it, for error messages.
type tailWriter struct {
	mutex sync.Mutex
	size  int
	buf   []byte
}

func newTailWriter(size int) *tailWriter {
	return &tailWriter{size: size}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.buf = append(t.buf, p...)
	if len(t.buf) > t.size {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.size:]...)
	}

	return len(p), nil
}

func (t *tailWriter) String() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return string(t.buf)
}
