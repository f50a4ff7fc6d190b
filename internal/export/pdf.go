package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const pageMargin = 10.0 // mm

// PDFOptions configures the document. Cover adds a title page before the
// content page.
type PDFOptions struct {
	Title    string
	Subtitle string
	Cover    bool
}

// WritePDF writes a landscape A4 document holding img letterboxed on one page.
func WritePDF(w io.Writer, img image.Image, opts PDFOptions) error {
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.SetCreator("TacticalBoard", true)
	if opts.Title != "" {
		p.SetTitle(opts.Title, true)
	}
	tr := p.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := p.GetPageSize()

	if opts.Cover {
		p.AddPage()
		p.SetFont("Helvetica", "B", 32)
		p.SetY(pageH/2 - 20)
		p.CellFormat(0, 16, tr(opts.Title), "", 1, "C", false, 0, "")
		if opts.Subtitle != "" {
			p.SetFont("Helvetica", "", 16)
			p.CellFormat(0, 10, tr(opts.Subtitle), "", 1, "C", false, 0, "")
		}
	}

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("board", imgOpts, &encoded)
	p.AddPage()
	b := img.Bounds()
	x, y, wd, ht := Letterbox(float64(b.Dx()), float64(b.Dy()),
		pageMargin, pageMargin, pageW-2*pageMargin, pageH-2*pageMargin)
	p.ImageOptions("board", x, y, wd, ht, false, imgOpts, 0, "")

	if err := p.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return p.Output(w)
}

// Letterbox fits a srcW x srcH image inside the box at (boxX, boxY) of size
// boxW x boxH, keeping aspect ratio and centering the leftover space.
func Letterbox(srcW, srcH, boxX, boxY, boxW, boxH float64) (x, y, w, h float64) {
	if srcW <= 0 || srcH <= 0 {
		return boxX, boxY, 0, 0
	}
	scale := boxW / srcW
	if s := boxH / srcH; s < scale {
		scale = s
	}
	w, h = srcW*scale, srcH*scale
	return boxX + (boxW-w)/2, boxY + (boxH-h)/2, w, h
}
