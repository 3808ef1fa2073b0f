package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestInspect_PNG(t *testing.T) {
	info, err := Inspect(encodePNG(t, 40, 20))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.Format != "png" || info.MediaType != "image/png" {
		t.Errorf("unexpected format %+v", info)
	}
	if info.Width != 40 || info.Height != 20 {
		t.Errorf("unexpected size %dx%d", info.Width, info.Height)
	}
}

func TestInspect_NotAnImage(t *testing.T) {
	_, err := Inspect([]byte("%PDF-1.4 not an image"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFit_WithinBounds(t *testing.T) {
	data := encodePNG(t, 40, 20)
	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	out, outInfo, err := Fit(data, info, 100)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected image within bounds to be returned unchanged")
	}
	if outInfo != info {
		t.Errorf("expected info unchanged, got %+v", outInfo)
	}
}

func TestFit_Downscales(t *testing.T) {
	data := encodePNG(t, 200, 50)
	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	out, outInfo, err := Fit(data, info, 100)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if outInfo.MediaType != "image/jpeg" {
		t.Errorf("expected jpeg output, got %s", outInfo.MediaType)
	}
	if outInfo.Width != 100 || outInfo.Height != 25 {
		t.Errorf("expected 100x25, got %dx%d", outInfo.Width, outInfo.Height)
	}

	decoded, err := Inspect(out)
	if err != nil {
		t.Fatalf("Inspect of output failed: %v", err)
	}
	if decoded.Width != 100 || decoded.Height != 25 || decoded.Format != "jpeg" {
		t.Errorf("output does not match reported info: %+v", decoded)
	}
}

func TestScaledSize_Portrait(t *testing.T) {
	w, h := scaledSize(300, 1200, 600)
	if w != 150 || h != 600 {
		t.Errorf("expected 150x600, got %dx%d", w, h)
	}
}

func TestCheckPixels(t *testing.T) {
	if err := CheckPixels(Info{Width: 8000, Height: 8000}, 64_000_000); err != nil {
		t.Errorf("expected 8000x8000 to fit, got %v", err)
	}
	if err := CheckPixels(Info{Width: 50000, Height: 50000}, 64_000_000); !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("expected ErrTooManyPixels, got %v", err)
	}
	if err := CheckPixels(Info{Width: 50000, Height: 50000}, 0); err != nil {
		t.Errorf("expected no limit for a zero budget, got %v", err)
	}
}
