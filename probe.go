package tetrify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo describes the streams of a video file.
type VideoInfo struct {
	Title  string
	Width  int
	Height int
	// FrameRate is the average frame rate as ffprobe reports it, such as
	// "30000/1001".
	FrameRate string
	HasAudio  bool
}

// FPS returns the frame rate as a number, or 0 if it is unknown.
func (v *VideoInfo) FPS() float64 {
	return parseRate(v.FrameRate)
}

type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// FileTitle returns the file name of path without its extension.
func FileTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProbeVideo reads the stream information of the video at path with ffprobe.
func ProbeVideo(path string) (*VideoInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tetrify: ProbeVideo: %w", err)
	}

	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("tetrify: ProbeVideo: ffprobe: %v: %w", err,
			ErrExternalToolFailure)
	}

	info, err := parseProbe([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("tetrify: ProbeVideo: %s: %w", path, err)
	}
	info.Title = FileTitle(path)

	return info, nil
}

func parseProbe(data []byte) (*VideoInfo, error) {
	var result probeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("malformed ffprobe output: %v: %w", err,
			ErrExternalToolFailure)
	}

	var info VideoInfo
	found := false
	for _, stream := range result.Streams {
		switch stream.CodecType {
		case "video":
			if found {
				continue
			}
			found = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.FrameRate = stream.AvgFrameRate
			if parseRate(info.FrameRate) == 0 {
				info.FrameRate = stream.RFrameRate
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if !found {
		return nil, fmt.Errorf("no video stream: %w", ErrUnsupportedSourceFormat)
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("video stream is %dx%d: %w", info.Width,
			info.Height, ErrUnsupportedSourceFormat)
	}

	if parseRate(info.FrameRate) == 0 {
		return nil, fmt.Errorf("video stream has no frame rate: %w",
			ErrUnsupportedSourceFormat)
	}

	return &info, nil
}

// parseRate parses a rate of the form "num/den" or a plain number.
func parseRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		den = "1"
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}

	return n / d
}
