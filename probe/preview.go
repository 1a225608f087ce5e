package probe

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// jpeg quality for preview images.
const previewQuality = 80

// renderPreview downscales a decoded frame to at most maxWidth pixels
// wide, aspect preserved, and encodes it as jpeg. Frames already small
// enough are re-encoded as-is.
func renderPreview(frame []byte, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("preview decode: %w", err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return nil, fmt.Errorf("preview encode: %w", err)
	}
	return buf.Bytes(), nil
}
