// Package imaging inspects uploaded images and shrinks the ones too large for the model.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

var (
	// ErrUnknownFormat is returned for data that is not a decodable image.
	ErrUnknownFormat = errors.New("unknown image format")
	ErrTooManyPixels = errors.New("image has too many pixels")
)

var mediaTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Info describes an image without holding its pixels.
type Info struct {
	Format    string
	MediaType string
	Width     int
	Height    int
}

// Pixels is the decoded size of the image in pixels.
func (i Info) Pixels() int64 {
	return int64(i.Width) * int64(i.Height)
}

// CheckPixels fails when decoding the image would exceed maxPixels.
func CheckPixels(info Info, maxPixels int64) error {
	if maxPixels > 0 && info.Pixels() > maxPixels {
		return fmt.Errorf("%w: %dx%d is over the %d pixel limit", ErrTooManyPixels, info.Width, info.Height, maxPixels)
	}
	return nil
}

// Inspect decodes the image header.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnknownFormat
		}
		return Info{}, fmt.Errorf("decoding image header: %w", err)
	}
	mediaType, ok := mediaTypes[format]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return Info{
		Format:    format,
		MediaType: mediaType,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

// Fit returns the image unchanged when both sides are within maxDim. Otherwise it scales the
// image down, keeping the aspect ratio, and re-encodes it as JPEG.
func Fit(data []byte, info Info, maxDim int) ([]byte, Info, error) {
	if maxDim <= 0 || (info.Width <= maxDim && info.Height <= maxDim) {
		return data, info, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decoding image: %w", err)
	}

	width, height := scaledSize(info.Width, info.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, Info{}, fmt.Errorf("encoding image: %w", err)
	}

	return buf.Bytes(), Info{
		Format:    "jpeg",
		MediaType: "image/jpeg",
		Width:     width,
		Height:    height,
	}, nil
}

func scaledSize(width, height, maxDim int) (int, int) {
	if width >= height {
		h := height * maxDim / width
		if h < 1 {
			h = 1
		}
		return maxDim, h
	}
	w := width * maxDim / height
	if w < 1 {
		w = 1
	}
	return w, maxDim
}
