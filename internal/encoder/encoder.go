package encoder

import (
	"image"
)

// Encoder encodes a finished raster to a specific lossless format.
type Encoder interface {
	// Format returns the output format name ("png", "webp").
	Format() string

	// Encode converts the image to bytes. Pixel art never tolerates lossy
	// compression, so there is no quality knob.
	Encode(img image.Image) ([]byte, error)

	// Extension returns the file extension without dot.
	Extension() string
}
