package images

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	maxDerivedEdge = 1280
	blurSigma      = 14
	jpegQuality    = 80
)

// Blurrer turns an original photo into the variant safe for public listings.
type Blurrer interface {
	Blur(original []byte) ([]byte, error)
}

// GaussianBlurrer downsizes, blurs and re-encodes as JPEG. Re-encoding also drops
// EXIF metadata such as GPS position.
type GaussianBlurrer struct {
	Sigma float64
}

func (b GaussianBlurrer) Blur(original []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, maxDerivedEdge, maxDerivedEdge, imaging.Lanczos)
	sigma := b.Sigma
	if sigma <= 0 {
		sigma = blurSigma
	}
	blurred := imaging.Blur(img, sigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blurred, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
