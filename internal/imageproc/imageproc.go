// Package imageproc normalizes uploaded photos before they are sent to the
// model: validation, orientation correction, downsampling, JPEG re-encoding
// and content hashing.
package imageproc

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// allowedMIMETypes is the content-sniffed upload allow-list. The filename
// extension is never consulted when bytes are available.
var allowedMIMETypes = []string{"image/jpeg", "image/png", "image/webp"}

// Config holds the normalizer limits.
type Config struct {
	MaxBytes         int64
	MinDimension     int
	MaxDimension     int
	OptimalDimension int
	ThumbnailSize    int
	JPEGQuality      int
	ThumbnailQuality int
}

// DefaultConfig returns the stock limits: 10 MiB uploads, 50px minimum,
// 4096px maximum, 1024px optimal side for the model.
func DefaultConfig() Config {
	return Config{
		MaxBytes:         10 << 20,
		MinDimension:     50,
		MaxDimension:     4096,
		OptimalDimension: 1024,
		ThumbnailSize:    300,
		JPEGQuality:      85,
		ThumbnailQuality: 80,
	}
}

// ValidationError reports client input that failed upload validation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Metadata describes a processed image.
type Metadata struct {
	Format        string `json:"format"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	OriginalSize  int    `json:"original_size"`
	ProcessedSize int    `json:"processed_size"`
}

// Processed carries the normalized image plus derived artifacts.
type Processed struct {
	Data      []byte
	Thumbnail []byte
	Hash      string
	Metadata  Metadata
}

// Processor validates and normalizes uploaded images.
type Processor struct {
	cfg    Config
	logger *zap.Logger
}

// NewProcessor constructs a Processor with the given limits.
func NewProcessor(cfg Config, logger *zap.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger.Named("imageproc")}
}

// Validate checks size, sniffed content type and pixel dimensions without
// fully decoding the image.
func (p *Processor) Validate(data []byte, filename string) error {
	if len(data) == 0 {
		return validationErrorf("file is empty")
	}
	if int64(len(data)) > p.cfg.MaxBytes {
		return validationErrorf("file too large, maximum size is %.1fMB", float64(p.cfg.MaxBytes)/(1024*1024))
	}

	detected := mimetype.Detect(data)
	if !isAllowedMIME(detected.String()) {
		return validationErrorf("invalid file type %q, allowed types: JPEG, PNG, WEBP", detected.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return validationErrorf("invalid or corrupted image file: %v", err)
	}
	if cfg.Width < p.cfg.MinDimension || cfg.Height < p.cfg.MinDimension {
		return validationErrorf("image too small, minimum %dx%d pixels", p.cfg.MinDimension, p.cfg.MinDimension)
	}
	if cfg.Width > p.cfg.MaxDimension || cfg.Height > p.cfg.MaxDimension {
		return validationErrorf("image too large, maximum %dx%d pixels", p.cfg.MaxDimension, p.cfg.MaxDimension)
	}
	return nil
}

// Process validates, reorients, flattens, downsamples and re-encodes the
// image as JPEG, producing a thumbnail and a SHA-256 hash of the final
// encoded bytes.
func (p *Processor) Process(data []byte, filename string) (*Processed, error) {
	if err := p.Validate(data, filename); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, validationErrorf("invalid or corrupted image file: %v", err)
	}

	img = applyOrientation(img, data)
	img = flattenOntoWhite(img)

	bounds := img.Bounds()
	if longSide(bounds) > p.cfg.OptimalDimension {
		img = imaging.Fit(img, p.cfg.OptimalDimension, p.cfg.OptimalDimension, imaging.Lanczos)
		p.logger.Debug("image downsampled",
			zap.Int("width", img.Bounds().Dx()),
			zap.Int("height", img.Bounds().Dy()))
	}

	encoded, err := encodeJPEG(img, p.cfg.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	thumb := imaging.Fit(img, p.cfg.ThumbnailSize, p.cfg.ThumbnailSize, imaging.Lanczos)
	thumbEncoded, err := encodeJPEG(thumb, p.cfg.ThumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	sum := sha256.Sum256(encoded)
	final := img.Bounds()

	return &Processed{
		Data:      encoded,
		Thumbnail: thumbEncoded,
		Hash:      hex.EncodeToString(sum[:]),
		Metadata: Metadata{
			Format:        format,
			Width:         final.Dx(),
			Height:        final.Dy(),
			OriginalSize:  len(data),
			ProcessedSize: len(encoded),
		},
	}, nil
}

// FromBase64 decodes a base64 payload, stripping a data-URL prefix when one
// is present.
func FromBase64(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ","); idx >= 0 {
		encoded = encoded[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, validationErrorf("invalid base64 image data: %v", err)
	}
	return data, nil
}

// ToBase64 encodes image bytes for JSON transport.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func isAllowedMIME(mime string) bool {
	for _, allowed := range allowedMIMETypes {
		if mime == allowed {
			return true
		}
	}
	return false
}

// applyOrientation rotates the image according to the EXIF orientation tag.
// Only the three rotation-without-mirroring codes are handled; a missing or
// unreadable tag leaves the image untouched.
func applyOrientation(img image.Image, original []byte) image.Image {
	meta, err := exif.Decode(bytes.NewReader(original))
	if err != nil {
		return img
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}
	switch orientation {
	case 3:
		return imaging.Rotate180(img)
	case 6:
		return imaging.Rotate270(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// flattenOntoWhite composites images that carry transparency or a palette
// onto an opaque white background so the lossy re-encode has no artifacts.
func flattenOntoWhite(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.Paletted:
	default:
		return img
	}
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func longSide(b image.Rectangle) int {
	if b.Dx() > b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}
