package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/outreachforge/backend/pkg/logger"
)

const (
	// maxImageWidth is the downscale threshold; wider screenshots are
	// resized preserving aspect ratio before anything else.
	maxImageWidth = 1600
	// maxSectionHeight is the per-image height ceiling. Taller screenshots
	// are split into full-resolution horizontal sections instead of being
	// squashed, since vendor vision quality degrades more from squashing
	// than from sectioning.
	maxSectionHeight = 2000
	maxImageSections = 3
	// maxImageBytes is the hard upload ceiling per image.
	maxImageBytes = 5 * 1024 * 1024
)

// jpegQualities is the re-encode ladder tried until an image fits under
// maxImageBytes.
var jpegQualities = []int{85, 75, 65, 50, 40, 30}

// ImageKind tags the source variant of an image reference.
type ImageKind int

const (
	ImageKindUnknown ImageKind = iota
	ImageKindURL
	ImageKindBase64
	ImageKindPath
	ImageKindBytes
)

// ImageSource is a tagged reference to an image: remote URL, base64 payload,
// local file path, or in-memory bytes. The zero value is invalid and
// rejected at the boundary rather than passed through silently.
type ImageSource struct {
	Kind   ImageKind
	URL    string
	Base64 string
	Path   string
	Data   []byte
}

func ImageFromURL(url string) ImageSource       { return ImageSource{Kind: ImageKindURL, URL: url} }
func ImageFromBase64(data string) ImageSource   { return ImageSource{Kind: ImageKindBase64, Base64: data} }
func ImageFromPath(path string) ImageSource     { return ImageSource{Kind: ImageKindPath, Path: path} }
func ImageFromBytes(data []byte) ImageSource    { return ImageSource{Kind: ImageKindBytes, Data: data} }

// ImagePart is one attachable image payload. Label is empty for a single
// unsplit image, or "top"/"middle"/"bottom" for sections, ordered
// top-to-bottom.
type ImagePart struct {
	Data  []byte
	Label string
}

// ImagePreprocessor turns an image reference into payloads that fit vendor
// size limits.
type ImagePreprocessor struct {
	httpClient *http.Client
}

func NewImagePreprocessor() *ImagePreprocessor {
	return &ImagePreprocessor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Prepare resolves the source and returns one or more size-capped parts in
// top-to-bottom order. Resolution failures (bad URL, unreadable file,
// unknown source kind) are errors; once bytes are in hand, any processing
// failure falls back to the unprocessed original rather than failing the
// call.
func (p *ImagePreprocessor) Prepare(ctx context.Context, src ImageSource) ([]ImagePart, error) {
	raw, err := p.resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	parts, err := p.process(raw)
	if err != nil {
		logger.Warnf("[Image] Processing failed, using original bytes: %v", err)
		return []ImagePart{{Data: raw}}, nil
	}
	return parts, nil
}

func (p *ImagePreprocessor) resolve(ctx context.Context, src ImageSource) ([]byte, error) {
	switch src.Kind {
	case ImageKindURL:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid image URL: %w", err)
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)

	case ImageKindBase64:
		payload := src.Base64
		// Strip a data-URI prefix if present
		if idx := strings.Index(payload, ";base64,"); idx != -1 {
			payload = payload[idx+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 image: %w", err)
		}
		return data, nil

	case ImageKindPath:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read image file: %w", err)
		}
		return data, nil

	case ImageKindBytes:
		if len(src.Data) == 0 {
			return nil, fmt.Errorf("empty image buffer")
		}
		return src.Data, nil

	default:
		return nil, fmt.Errorf("unsupported image source kind %d", src.Kind)
	}
}

func (p *ImagePreprocessor) process(raw []byte) ([]ImagePart, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxImageWidth {
		scaled := width
		img = scaleToWidth(img, maxImageWidth)
		bounds = img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
		logger.Debugf("[Image] Downscaled width %d -> %d (height now %d)", scaled, width, height)
	}

	if height <= maxSectionHeight {
		data, err := encodeUnderLimit(img)
		if err != nil {
			return nil, err
		}
		return []ImagePart{{Data: data}}, nil
	}

	return splitSections(img)
}

func scaleToWidth(img image.Image, targetWidth int) image.Image {
	bounds := img.Bounds()
	targetHeight := bounds.Dy() * targetWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// splitSections slices an over-tall image into 2 or 3 full-resolution
// horizontal sections, each independently size-capped.
func splitSections(img image.Image) ([]ImagePart, error) {
	bounds := img.Bounds()
	height := bounds.Dy()

	sections := 2
	if height > 2*maxSectionHeight {
		sections = maxImageSections
	}

	labels := []string{"top", "bottom"}
	if sections == 3 {
		labels = []string{"top", "middle", "bottom"}
	}

	parts := make([]ImagePart, 0, sections)
	sectionHeight := height / sections

	for i := 0; i < sections; i++ {
		y0 := bounds.Min.Y + i*sectionHeight
		y1 := y0 + sectionHeight
		if i == sections-1 {
			y1 = bounds.Max.Y // last section absorbs the remainder
		}

		rect := image.Rect(bounds.Min.X, y0, bounds.Max.X, y1)
		section := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(section, section.Bounds(), img, rect.Min, draw.Src)

		data, err := encodeUnderLimit(section)
		if err != nil {
			return nil, fmt.Errorf("encode section %s: %w", labels[i], err)
		}
		parts = append(parts, ImagePart{Data: data, Label: labels[i]})
	}

	return parts, nil
}

// encodeUnderLimit re-encodes at decreasing JPEG quality until the output
// fits under maxImageBytes or the lowest quality is reached.
func encodeUnderLimit(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	for _, quality := range jpegQualities {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		if buf.Len() <= maxImageBytes {
			return buf.Bytes(), nil
		}
	}
	logger.Warnf("[Image] Still %d bytes at lowest quality, sending anyway", buf.Len())
	return buf.Bytes(), nil
}

// DetectImageMediaType sniffs the media type from magic bytes instead of
// assuming JPEG. Falls back to JPEG for unrecognized payloads.
func DetectImageMediaType(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("GIF8")):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
