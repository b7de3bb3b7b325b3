// Package imageutil shrinks uploaded avatars before they are sent to blob storage.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxEdge is the longest allowed edge of a compressed image, in pixels.
	MaxEdge = 1024
	// JPEGQuality is the re-encode quality (0.8 on the browser's 0..1 scale).
	JPEGQuality = 80
	// OutputName and OutputContentType describe every compressed image.
	OutputName        = "avatar.jpg"
	OutputContentType = "image/jpeg"
	// MaxPixels bounds width*height of an accepted image. Decoding allocates the full
	// pixel buffer, so the header is checked before any pixel data is read.
	MaxPixels = 40_000_000
)

var (
	ErrUnsupportedImage = errors.New("image cannot be decoded")
	ErrImageTooLarge    = errors.New("image dimensions exceed the allowed size")
)

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (f File) Size() int { return len(f.Data) }

// IsImage reports whether the content type is image/*.
func (f File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType), "image/")
}

// Compress returns non-images unchanged. Images are decoded, scaled so the longer
// edge is at most MaxEdge (never upscaled) and re-encoded as JPEG.
func Compress(f File) (File, error) {
	if !f.IsImage() {
		return f, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return File{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedImage, f.Name, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return File{}, fmt.Errorf("%w: %q is %dx%d", ErrImageTooLarge, f.Name, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return File{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedImage, f.Name, err)
	}

	b := src.Bounds()
	width, height := FitWithin(b.Dx(), b.Dy(), MaxEdge)

	var dst image.Image = src
	if width != b.Dx() || height != b.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return File{}, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return File{Name: OutputName, ContentType: OutputContentType, Data: buf.Bytes()}, nil
}

// FitWithin scales width x height proportionally so the longer edge is at most maxEdge.
// Dimensions already within bounds are returned unchanged.
func FitWithin(width, height, maxEdge int) (int, int) {
	switch {
	case width > height && width > maxEdge:
		height = roundDiv(height*maxEdge, width)
		width = maxEdge
	case height > maxEdge:
		width = roundDiv(width*maxEdge, height)
		height = maxEdge
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

func roundDiv(n, d int) int {
	return (2*n + d) / (2 * d)
}
