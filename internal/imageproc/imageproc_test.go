package imageproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func solidPNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func newTestProcessor() *Processor {
	return NewProcessor(DefaultConfig(), zap.NewNop())
}

func encodeJPEGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// withEXIFOrientation splices a minimal APP1 segment carrying only the
// orientation tag into a JPEG, right after the SOI marker.
func withEXIFOrientation(t *testing.T, jpegData []byte, orientation uint16) []byte {
	t.Helper()

	// Little-endian TIFF with a single-entry IFD0: tag 0x0112 (orientation),
	// type SHORT, count 1, value inline.
	tiff := []byte{
		'I', 'I', 0x2A, 0x00,
		0x08, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x12, 0x01,
		0x03, 0x00,
		0x01, 0x00, 0x00, 0x00,
		byte(orientation), byte(orientation >> 8), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)

	out := make([]byte, 0, len(jpegData)+len(payload)+4)
	out = append(out, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1, byte((len(payload)+2)>>8), byte(len(payload)+2))
	out = append(out, payload...)
	out = append(out, jpegData[2:]...)
	return out
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	err := newTestProcessor().Validate(nil, "photo.jpg")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty-file error, got %v", err)
	}
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBytes = 1024
	p := NewProcessor(cfg, zap.NewNop())

	err := p.Validate(bytes.Repeat([]byte{0xAB}, 2048), "photo.jpg")
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	if !strings.Contains(err.Error(), "0.0MB") {
		t.Errorf("error should state the configured limit, got: %v", err)
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestValidateRejectsNonImageContent(t *testing.T) {
	err := newTestProcessor().Validate([]byte("definitely not an image, just text"), "photo.jpg")
	if err == nil || !strings.Contains(err.Error(), "invalid file type") {
		t.Fatalf("expected file-type error, got %v", err)
	}
}

func TestValidateSniffsContentNotExtension(t *testing.T) {
	data := solidPNG(t, 100, 80, color.White)
	if err := newTestProcessor().Validate(data, "photo.txt"); err != nil {
		t.Fatalf("png bytes with .txt name should pass, got %v", err)
	}
}

func TestValidateRejectsTinyImage(t *testing.T) {
	data := solidPNG(t, 20, 20, color.White)
	err := newTestProcessor().Validate(data, "photo.png")
	if err == nil || !strings.Contains(err.Error(), "too small") {
		t.Fatalf("expected too-small error, got %v", err)
	}
}

func TestValidateRejectsHugeDimensions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDimension = 64
	p := NewProcessor(cfg, zap.NewNop())

	data := solidPNG(t, 100, 80, color.White)
	err := p.Validate(data, "photo.png")
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too-large error, got %v", err)
	}
}

func TestProcessProducesJPEGAndHash(t *testing.T) {
	data := solidPNG(t, 100, 80, color.RGBA{R: 200, G: 30, B: 30, A: 255})

	processed, err := newTestProcessor().Process(data, "photo.png")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(processed.Data)); err != nil {
		t.Fatalf("output is not a decodable jpeg: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(processed.Thumbnail)); err != nil {
		t.Fatalf("thumbnail is not a decodable jpeg: %v", err)
	}
	if len(processed.Hash) != 64 {
		t.Errorf("expected sha-256 hex hash, got %d chars", len(processed.Hash))
	}
	if processed.Metadata.Format != "png" {
		t.Errorf("expected source format png, got %s", processed.Metadata.Format)
	}
	if processed.Metadata.Width != 100 || processed.Metadata.Height != 80 {
		t.Errorf("unexpected dimensions: %dx%d", processed.Metadata.Width, processed.Metadata.Height)
	}
}

func TestProcessDownsamplesLongSide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptimalDimension = 64
	p := NewProcessor(cfg, zap.NewNop())

	data := solidPNG(t, 200, 100, color.White)
	processed, err := p.Process(data, "photo.png")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processed.Metadata.Width != 64 {
		t.Errorf("expected width 64, got %d", processed.Metadata.Width)
	}
	if processed.Metadata.Height != 32 {
		t.Errorf("aspect ratio not preserved, got height %d", processed.Metadata.Height)
	}
}

func TestProcessAppliesEXIFOrientation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.White)
		}
	}
	plain := encodeJPEGBytes(t, img)

	// Orientation 6 and 8 rotate by a quarter turn, swapping the sides.
	for _, orientation := range []uint16{6, 8} {
		data := withEXIFOrientation(t, plain, orientation)
		processed, err := newTestProcessor().Process(data, "photo.jpg")
		if err != nil {
			t.Fatalf("orientation %d: process failed: %v", orientation, err)
		}
		if processed.Metadata.Width != 60 || processed.Metadata.Height != 120 {
			t.Errorf("orientation %d: expected 60x120, got %dx%d",
				orientation, processed.Metadata.Width, processed.Metadata.Height)
		}
	}
}

func TestProcessRotates180ForOrientation3(t *testing.T) {
	// Left half red, right half blue; a half turn swaps the halves but
	// keeps the dimensions.
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			if x < 60 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	data := withEXIFOrientation(t, encodeJPEGBytes(t, img), 3)

	processed, err := newTestProcessor().Process(data, "photo.jpg")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processed.Metadata.Width != 120 || processed.Metadata.Height != 60 {
		t.Fatalf("expected 120x60, got %dx%d", processed.Metadata.Width, processed.Metadata.Height)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(processed.Data))
	if err != nil {
		t.Fatalf("output is not a decodable jpeg: %v", err)
	}
	r, _, b, _ := decoded.At(10, 30).RGBA()
	if b <= r {
		t.Errorf("expected the blue half on the left after rotation, got r=%d b=%d", r>>8, b>>8)
	}
}

func TestProcessWithoutEXIFLeavesImageAlone(t *testing.T) {
	data := encodeJPEGBytes(t, image.NewRGBA(image.Rect(0, 0, 120, 60)))

	processed, err := newTestProcessor().Process(data, "photo.jpg")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processed.Metadata.Width != 120 || processed.Metadata.Height != 60 {
		t.Errorf("expected 120x60 unchanged, got %dx%d", processed.Metadata.Width, processed.Metadata.Height)
	}
}

func TestProcessFlattensTransparencyOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	// fully transparent image
	data := encodePNG(t, img)

	processed, err := newTestProcessor().Process(data, "photo.png")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(processed.Data))
	if err != nil {
		t.Fatalf("output is not a decodable jpeg: %v", err)
	}
	r, g, b, _ := decoded.At(50, 40).RGBA()
	for name, v := range map[string]uint32{"r": r >> 8, "g": g >> 8, "b": b >> 8} {
		if v < 250 {
			t.Errorf("expected white background, channel %s = %d", name, v)
		}
	}
}

func TestBase64RoundTrip(t *testing.T) {
	payload := solidPNG(t, 100, 80, color.White)
	dataURL := "data:image/png;base64," + ToBase64(payload)

	decoded, err := FromBase64(dataURL)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatal("round trip did not preserve payload bytes")
	}
	if ToBase64(decoded) != ToBase64(payload) {
		t.Fatal("re-encoding does not match original payload")
	}
}

func TestFromBase64RejectsGarbage(t *testing.T) {
	_, err := FromBase64("!!!not base64!!!")
	if err == nil {
		t.Fatal("expected error for malformed base64")
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}
