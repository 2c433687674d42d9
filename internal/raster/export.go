package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// ExportResult contains an encoded image ready for download.
type ExportResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type"`
	Path        string `json:"path,omitempty"` // set when written to disk
	Bytes       int    `json:"bytes"`
}

// EncodePNG writes img as a lossless PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Scale resizes img by factor with nearest-neighbor sampling so flat blocks
// and hard edges survive. A factor of 1 (or <= 0) returns img unchanged.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}

// ExportPNG encodes img (optionally scaled) and returns it base64-encoded.
func ExportPNG(img image.Image, scale float64) (*ExportResult, error) {
	out := Scale(img, scale)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, out); err != nil {
		return nil, err
	}

	return &ExportResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Bytes:       buf.Len(),
	}, nil
}

// WritePNG encodes img (optionally scaled) to path, creating parent
// directories as needed.
func WritePNG(path string, img image.Image, scale float64) (*ExportResult, error) {
	out := Scale(img, scale)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, out); err != nil {
		return nil, err
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return nil, err
	}

	return &ExportResult{
		Width:    out.Bounds().Dx(),
		Height:   out.Bounds().Dy(),
		MimeType: "image/png",
		Path:     path,
		Bytes:    buf.Len(),
	}, nil
}

// printMarginMM is the blank border around the printed image.
const printMarginMM = 10.0

// PrintPDF renders img onto a single A4 portrait page, fitted inside the
// margins and centered, for the print view.
func PrintPDF(w io.Writer, img image.Image, title string) error {
	var png bytes.Buffer
	if err := EncodePNG(&png, img); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("canvas-tools-mcp", true)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("canvas", opt, &png)

	pageW, pageH := pdf.GetPageSize()
	boxW := pageW - 2*printMarginMM
	boxH := pageH - 2*printMarginMM

	b := img.Bounds()
	ratio := float64(b.Dx()) / float64(b.Dy())
	drawW, drawH := boxW, boxW/ratio
	if drawH > boxH {
		drawW, drawH = boxH*ratio, boxH
	}
	x := (pageW - drawW) / 2
	y := (pageH - drawH) / 2

	pdf.ImageOptions("canvas", x, y, drawW, drawH, false, opt, 0, "")
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// WritePDF renders the print view to path.
func WritePDF(path string, img image.Image, title string) (*ExportResult, error) {
	var buf bytes.Buffer
	if err := PrintPDF(&buf, img, title); err != nil {
		return nil, err
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &ExportResult{
		Width:    b.Dx(),
		Height:   b.Dy(),
		MimeType: "application/pdf",
		Path:     path,
		Bytes:    buf.Len(),
	}, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
