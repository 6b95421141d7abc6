//go:build cgo

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/otiai10/gosseract/v2"
)

// tesseractCaptioner describes cropped UI elements by recognizing any short
// text they carry. Crops are grayscaled first; the 64x64 canvases the
// pipeline produces are small enough that color only adds noise.
type tesseractCaptioner struct {
	language    string
	tessdataDir string
}

// LoadTesseractCaptioner builds the Tesseract-backed captioner, implementing
// CaptionerLoader. If <modelsDir>/tessdata exists it is used as the training
// data location; otherwise the system default applies. The device parameter
// is ignored — Tesseract is CPU-only.
func LoadTesseractCaptioner(modelsDir, device string) (Captioner, error) {
	c := &tesseractCaptioner{language: "eng"}

	tessdata := filepath.Join(modelsDir, "tessdata")
	if info, err := os.Stat(tessdata); err == nil && info.IsDir() {
		c.tessdataDir = tessdata
	}

	return c, nil
}

// Caption recognizes text in a cropped element and returns it as a short,
// whitespace-collapsed description. An empty string means Tesseract found no
// text; the caller decides how to label such elements.
func (c *tesseractCaptioner) Caption(crop image.Image) (string, error) {
	gray := effect.Grayscale(crop)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if c.tessdataDir != "" {
		if err := client.SetTessdataPrefix(c.tessdataDir); err != nil {
			return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(c.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("caption failed: %w", err)
	}

	return strings.Join(strings.Fields(text), " "), nil
}
