package tetrify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPCM(t *testing.T) {
	samples := []float64{0, 0.25, -0.5, 1, -1, 2, -3}
	want := []float64{0, 0.25, -0.5, 1, -1, 1, -1}

	buf := new(bytes.Buffer)
	if err := writePCM(buf, samples); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4*len(samples) {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 4*len(samples))
	}

	got, err := readPCM(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("readPCM: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	_, err = readPCM(bytes.NewReader(buf.Bytes()[:buf.Len()-1]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated: got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestAudioDuration(t *testing.T) {
	a := &Audio{SampleRate: 8000, Samples: make([]float64, 12000)}
	if got := a.Duration(); got != 1500*time.Millisecond {
		t.Errorf("got %v, want 1.5s", got)
	}
	if got := (&Audio{Samples: a.Samples}).Duration(); got != 0 {
		t.Errorf("no rate: got %v, want 0", got)
	}
}

func TestApproxAudioErrors(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.wav")
	clips := toneClips(t, 8000, map[string]float64{"low": 440}, "low")
	empty, err := NewClipSet(8000)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		source string
		clips  *ClipSet
		opts   AudioOptions
		want   error
	}{
		{"no clips", "in.wav", nil, DefaultAudioOptions(), ErrNoClipsAvailable},
		{"empty clips", "in.wav", empty, DefaultAudioOptions(), ErrNoClipsAvailable},
		{"missing source", filepath.Join(dir, "missing.wav"), clips,
			DefaultAudioOptions(), fs.ErrNotExist},
		{"no workers", "in.wav", clips, AudioOptions{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ApproxAudio(context.Background(), tt.source, output, tt.clips, tt.opts)
			if err == nil || (tt.want != nil && !errors.Is(err, tt.want)) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := os.Stat(output); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("output exists after failure: %v", err)
	}

	if _, err := LoadClips(context.Background(), dir, 8000); !errors.Is(err, ErrNoClipsAvailable) {
		t.Errorf("LoadClips of an empty directory: got %v", err)
	}
}

// pcmSource returns the raw samples of a tone switching from 440 Hz to 880 Hz
// and a placeholder source file for them.
func pcmSource(t *testing.T) ([]byte, string, int) {
	t.Helper()

	samples := append(tone(DefaultSampleRate, 440, 0.5, 0.5),
		tone(DefaultSampleRate, 880, 0.5, 0.5)...)
	buf := new(bytes.Buffer)
	if err := writePCM(buf, samples); err != nil {
		t.Fatal(err)
	}

	source := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(source, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), source, len(samples)
}

func TestApproxAudioEncoded(t *testing.T) {
	pcm, source, n := pcmSource(t)
	encoded := filepath.Join(t.TempDir(), "encoded.pcm")
	fakeTools(t, pcm, "exec cat > '"+encoded+"'")

	clips := toneClips(t, DefaultSampleRate,
		map[string]float64{"low": 440, "high": 880}, "low", "high")
	output := filepath.Join(filepath.Dir(source), "out.wav")

	err := ApproxAudio(context.Background(), source, output, clips,
		DefaultAudioOptions())
	if err != nil {
		t.Fatalf("ApproxAudio: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("output: %v", err)
	}

	f, err := os.Open(encoded)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	samples, err := readPCM(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != n {
		t.Errorf("encoded %d samples, want %d", len(samples), n)
	}
	if rmsLevel(samples) == 0 {
		t.Error("encoded audio is silent")
	}
}

func TestApproxAudioEncoderExits(t *testing.T) {
	pcm, source, _ := pcmSource(t)
	fakeTools(t, pcm, `echo "Invalid audio output" >&2
exit 1`)

	clips := toneClips(t, DefaultSampleRate, map[string]float64{"low": 440}, "low")
	output := filepath.Join(filepath.Dir(source), "out.wav")

	err := ApproxAudio(context.Background(), source, output, clips,
		DefaultAudioOptions())
	if !errors.Is(err, ErrExternalToolFailure) {
		t.Fatalf("got %v, want ErrExternalToolFailure", err)
	}
	if !strings.Contains(err.Error(), "Invalid audio output") {
		t.Errorf("error %q does not carry the encoder's stderr", err)
	}

	if _, err := os.Stat(output); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("output exists after failure: %v", err)
	}
}

func TestApproxAudio(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	clipsDir := filepath.Join(dir, "sounds")
	if err := os.Mkdir(clipsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	sine := func(path, freq, duration string) {
		t.Helper()
		gen := exec.Command("ffmpeg", "-f", "lavfi", "-i",
			"sine=frequency="+freq+":duration="+duration, path)
		if out, err := gen.CombinedOutput(); err != nil {
			t.Skipf("ffmpeg cannot generate test audio: %v\n%s", err, out)
		}
	}

	sine(filepath.Join(clipsDir, "lock.wav"), "440", "0.3")
	sine(filepath.Join(clipsDir, "comboTones.wav"), "660", "1.5")
	if err := os.WriteFile(filepath.Join(clipsDir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	source := filepath.Join(dir, "source.wav")
	sine(source, "880", "1")

	clips, err := LoadClips(context.Background(), clipsDir, DefaultSampleRate)
	if err != nil {
		t.Fatalf("LoadClips: %v", err)
	}
	if clips.Len() != 1+comboTonesCount {
		t.Errorf("got %d clips, want %d", clips.Len(), 1+comboTonesCount)
	}
	if names := clips.Names(); names[0] != "comboTones-01" || names[len(names)-1] != "lock" {
		t.Errorf("got clips %v", names)
	}

	output := filepath.Join(dir, "out.wav")
	err = ApproxAudio(context.Background(), source, output, clips,
		DefaultAudioOptions())
	if err != nil {
		t.Fatalf("ApproxAudio: %v", err)
	}

	a, err := DecodeAudio(context.Background(), output, DefaultSampleRate)
	if err != nil {
		t.Fatalf("DecodeAudio: %v", err)
	}
	if d := a.Duration(); d < 990*time.Millisecond || d > 1010*time.Millisecond {
		t.Errorf("output is %v long, want 1s", d)
	}
}
