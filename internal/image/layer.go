// Package image provides spectrogram tile decoding, layer management, and
// compositing into the visible frame.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"spectrogram-annotator/pkg/geometry"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Layer is a decoded spectrogram image anchored to the domain region it
// depicts. The top image row corresponds to Freq.Max.
type Layer struct {
	Image   image.Image       // Decoded image data
	Time    geometry.Interval // Time span covered by the image
	Freq    geometry.Interval // Frequency span covered by the image
	Visible bool              // Layer visibility
	Opacity float64           // Layer opacity (0.0 - 1.0)
}

// NewLayer creates a visible, opaque Layer.
func NewLayer(img image.Image, window geometry.Window) *Layer {
	return &Layer{
		Image:   img,
		Time:    window.Time,
		Freq:    window.Freq,
		Visible: true,
		Opacity: 1.0,
	}
}

// Decode reads a PNG, JPEG, TIFF, or WebP image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := Decode(file)
	return img, err
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Window returns the domain region covered by the layer.
func (l *Layer) Window() geometry.Window {
	return geometry.Window{Time: l.Time, Freq: l.Freq}
}
