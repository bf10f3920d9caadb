package tetrify

import "errors"

// Error kinds returned by tetrify. Callers match them with errors.Is; the
// returned errors wrap these with the failing operation and details.
var (
	// ErrInvalidDimensions is returned when a board dimension is not positive
	// or the source image has no pixels.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrNoSkinsAvailable is returned when a catalog has no skins.
	ErrNoSkinsAvailable = errors.New("no skins available")

	// ErrIncompleteSkin is returned when a skin is missing a tile, or its tiles
	// do not share the catalog tile size.
	ErrIncompleteSkin = errors.New("incomplete skin")

	// ErrUnsupportedSourceFormat is returned when a source cannot be decoded as
	// an image, has no video stream, or holds no audio.
	ErrUnsupportedSourceFormat = errors.New("unsupported source format")

	// ErrNoClipsAvailable is returned when audio is approximated without any
	// sound clips.
	ErrNoClipsAvailable = errors.New("no sound clips available")

	// ErrExternalToolFailure is returned when ffmpeg or ffprobe fails.
	ErrExternalToolFailure = errors.New("external tool failure")
)
