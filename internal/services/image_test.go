package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// makeTestImage builds a solid-color PNG of the given dimensions.
func makeTestImage(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// makeBandedImage builds a tall PNG with three equal-height colored bands.
func makeBandedImage(t *testing.T, width, height int) []byte {
	t.Helper()
	bands := []color.Color{
		color.RGBA{R: 255, A: 255}, // top: red
		color.RGBA{G: 255, A: 255}, // middle: green
		color.RGBA{B: 255, A: 255}, // bottom: blue
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bandHeight := height / 3
	for y := 0; y < height; y++ {
		band := y / bandHeight
		if band > 2 {
			band = 2
		}
		for x := 0; x < width; x++ {
			img.Set(x, y, bands[band])
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func dominantChannel(t *testing.T, data []byte) string {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode section: %v", err)
	}
	b := img.Bounds()
	r, g, bl, _ := img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2).RGBA()
	switch {
	case r > g && r > bl:
		return "red"
	case g > r && g > bl:
		return "green"
	default:
		return "blue"
	}
}

func TestPrepare_SmallImagePassesThroughSingle(t *testing.T) {
	p := NewImagePreprocessor()
	src := ImageFromBytes(makeTestImage(t, 800, 600, color.White))

	parts, err := p.Prepare(context.Background(), src)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].Label != "" {
		t.Errorf("single image should have empty label, got %q", parts[0].Label)
	}
	if len(parts[0].Data) == 0 {
		t.Error("part data should not be empty")
	}
	if len(parts[0].Data) > maxImageBytes {
		t.Errorf("part exceeds byte ceiling: %d", len(parts[0].Data))
	}
}

func TestPrepare_WideImageDownscaled(t *testing.T) {
	p := NewImagePreprocessor()
	src := ImageFromBytes(makeTestImage(t, 3200, 1000, color.White))

	parts, err := p.Prepare(context.Background(), src)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}

	img, _, err := image.Decode(bytes.NewReader(parts[0].Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != maxImageWidth {
		t.Errorf("width = %d, expected %d", img.Bounds().Dx(), maxImageWidth)
	}
	// Aspect preserved: 3200x1000 -> 1600x500
	if img.Bounds().Dy() != 500 {
		t.Errorf("height = %d, expected 500", img.Bounds().Dy())
	}
}

func TestPrepare_TallImageSplitsTopMiddleBottom(t *testing.T) {
	p := NewImagePreprocessor()
	src := ImageFromBytes(makeBandedImage(t, 1000, 6000))

	parts, err := p.Prepare(context.Background(), src)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("expected 3 sections for a 6000px image, got %d", len(parts))
	}

	expectedLabels := []string{"top", "middle", "bottom"}
	expectedColors := []string{"red", "green", "blue"}
	for i, part := range parts {
		if part.Label != expectedLabels[i] {
			t.Errorf("section %d label = %q, expected %q", i, part.Label, expectedLabels[i])
		}
		if got := dominantChannel(t, part.Data); got != expectedColors[i] {
			t.Errorf("section %q dominant color = %s, expected %s", part.Label, got, expectedColors[i])
		}
		if len(part.Data) > maxImageBytes {
			t.Errorf("section %q exceeds byte ceiling: %d", part.Label, len(part.Data))
		}
	}
}

func TestPrepare_ModeratelyTallImageSplitsInTwo(t *testing.T) {
	p := NewImagePreprocessor()
	src := ImageFromBytes(makeTestImage(t, 800, 3000, color.White))

	parts, err := p.Prepare(context.Background(), src)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(parts) != 2 {
		t.Fatalf("expected 2 sections for a 3000px image, got %d", len(parts))
	}
	if parts[0].Label != "top" || parts[1].Label != "bottom" {
		t.Errorf("labels = %q, %q; expected top, bottom", parts[0].Label, parts[1].Label)
	}
}

func TestPrepare_Base64Source(t *testing.T) {
	p := NewImagePreprocessor()
	raw := makeTestImage(t, 100, 100, color.Black)
	encoded := base64.StdEncoding.EncodeToString(raw)

	for _, payload := range []string{encoded, "data:image/png;base64," + encoded} {
		parts, err := p.Prepare(context.Background(), ImageFromBase64(payload))
		if err != nil {
			t.Fatalf("Prepare(base64) error = %v", err)
		}
		if len(parts) != 1 {
			t.Errorf("expected 1 part, got %d", len(parts))
		}
	}
}

func TestPrepare_InvalidSourceKindIsError(t *testing.T) {
	p := NewImagePreprocessor()

	_, err := p.Prepare(context.Background(), ImageSource{})
	if err == nil {
		t.Error("zero-value source should be rejected")
	}
}

func TestPrepare_UndecodableBytesFallBackToOriginal(t *testing.T) {
	p := NewImagePreprocessor()
	garbage := []byte("this is not an image at all")

	parts, err := p.Prepare(context.Background(), ImageFromBytes(garbage))
	if err != nil {
		t.Fatalf("Prepare() should fall back, not fail: %v", err)
	}
	if len(parts) != 1 || !bytes.Equal(parts[0].Data, garbage) {
		t.Error("fallback should return the original bytes unchanged")
	}
}

func TestDetectImageMediaType(t *testing.T) {
	var jpegBuf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"png", makeTestImage(t, 10, 10, color.White), "image/png"},
		{"jpeg", jpegBuf.Bytes(), "image/jpeg"},
		{"gif", []byte("GIF89a..."), "image/gif"},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00WEBP"), 0), "image/webp"},
		{"unknown falls back to jpeg", []byte("garbage"), "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageMediaType(tt.data); got != tt.expected {
				t.Errorf("DetectImageMediaType() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
