package operations

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"doc-converter/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
)

const (
	jpegQuality = 92
	// maxImageSide bounds the raster handed to the PDF writer.
	maxImageSide = 10000
)

func init() {
	api.DisableConfigDir()
}

// ImagePage places a JPEG or PNG on a single PDF page, sized so one pixel
// maps to 1/dpi inch.
type ImagePage struct {
	dpi int
}

func NewImagePage(dpi int) *ImagePage {
	if dpi <= 0 {
		dpi = 100
	}
	return &ImagePage{dpi: dpi}
}

func (p *ImagePage) Name() string {
	return "image"
}

func (p *ImagePage) Convert(ctx context.Context, input, outDir string) (string, error) {
	f, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	rgb := ToRGB(img)
	if b := rgb.Bounds(); b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		rgb = shrink(rgb, maxImageSide)
	}

	stem, _ := domain.SplitExt(filepath.Base(input))
	raster := filepath.Join(outDir, stem+".page.jpg")
	if err := writeJPEG(raster, rgb); err != nil {
		return "", err
	}
	defer os.Remove(raster)

	out := OutputPath(input, outDir)
	// ImportImagesFile appends when the target exists.
	os.Remove(out)

	b := rgb.Bounds()
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{
		Width:  float64(b.Dx()) * 72 / float64(p.dpi),
		Height: float64(b.Dy()) * 72 / float64(p.dpi),
	}
	imp.UserDim = true
	imp.Pos = types.Full

	if err := api.ImportImagesFile([]string{raster}, out, imp, model.NewDefaultConfiguration()); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to write image pdf: %w", err)
	}

	return out, nil
}

// ToRGB flattens img onto an opaque white canvas. Palette, gray and
// alpha-carrying inputs all come out as plain RGB.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func shrink(img *image.RGBA, maxSide int) *image.RGBA {
	b := img.Bounds()
	scale := float64(maxSide) / float64(max(b.Dx(), b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raster: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode raster: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close raster: %w", err)
	}
	return nil
}
