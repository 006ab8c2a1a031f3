package operations

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/go-pdf/fpdf"
)

// pxToPt maps raster pixels onto PDF points at 96 DPI.
const pxToPt = 72.0 / 96.0

// PageWriter collects rasters and writes them as one page each, every page
// sized to its own raster.
type PageWriter struct {
	pdf   *fpdf.Fpdf
	pages int
}

func NewPageWriter() *PageWriter {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "P",
		Size:           fpdf.SizeType{Wd: 595, Ht: 842},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &PageWriter{pdf: pdf}
}

func (w *PageWriter) AddImage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}

	b := img.Bounds()
	wd := float64(b.Dx()) * pxToPt
	ht := float64(b.Dy()) * pxToPt

	w.pages++
	name := fmt.Sprintf("page-%d", w.pages)
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	w.pdf.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})
	w.pdf.RegisterImageOptionsReader(name, opts, &buf)
	w.pdf.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")

	if err := w.pdf.Error(); err != nil {
		return fmt.Errorf("failed to add page %d: %w", w.pages, err)
	}
	return nil
}

func (w *PageWriter) Pages() int {
	return w.pages
}

func (w *PageWriter) Save(path string) error {
	if w.pages == 0 {
		return fmt.Errorf("no pages to write")
	}
	if err := w.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
