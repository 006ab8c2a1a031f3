package operations

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	tableFontSize  = 11.0
	titleFontSize  = 16.0
	cellPadding    = 6
	rowHeight      = 20
	titleHeight    = 36
	pageMargin     = 24
	minColWidth    = 36
	maxColWidth    = 260
	rowHeaderWidth = 48

	// maxRasterSide keeps a page under the 200 inch PDF page limit at 96 DPI.
	maxRasterSide  = 16384
	maxStripPixels = 4 << 20
)

var (
	gridColor   = color.RGBA{0xb0, 0xb0, 0xb0, 0xff}
	headerFill  = color.RGBA{0xe8, 0xec, 0xf2, 0xff}
	textColor   = color.Black
	mutedColor  = color.RGBA{0x60, 0x60, 0x60, 0xff}
	canvasColor = color.White
)

// TableRenderer rasterizes a text grid with a column-letter header row.
type TableRenderer struct {
	regular *truetype.Font
	bold    *truetype.Font
	face    font.Face
}

func NewTableRenderer() (*TableRenderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	return &TableRenderer{
		regular: regular,
		bold:    bold,
		face:    truetype.NewFace(regular, &truetype.Options{Size: tableFontSize, DPI: 72}),
	}, nil
}

// Table is the full cell grid of one sheet.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Render draws the whole grid on one raster. When either side would exceed
// maxRasterSide the grid is drawn in horizontal strips and each strip is
// scaled into the result, so every row stays on the page.
func (r *TableRenderer) Render(t Table) (*image.RGBA, error) {
	l := r.layout(t)

	scale := min(1, float64(maxRasterSide)/float64(max(l.width, l.height)))
	if scale == 1 {
		img := newCanvas(image.Rect(0, 0, l.width, l.height))
		if err := r.draw(img, t, l); err != nil {
			return nil, err
		}
		return img, nil
	}

	dst := newCanvas(image.Rect(0, 0, max(1, int(float64(l.width)*scale)), max(1, int(float64(l.height)*scale))))
	stripHeight := max(rowHeight, maxStripPixels/l.width)
	for y0 := 0; y0 < l.height; y0 += stripHeight {
		y1 := min(y0+stripHeight, l.height)
		strip := newCanvas(image.Rect(0, y0, l.width, y1))
		if err := r.draw(strip, t, l); err != nil {
			return nil, err
		}
		target := image.Rect(0, int(float64(y0)*scale), dst.Bounds().Dx(), int(float64(y1)*scale))
		if target.Empty() {
			continue
		}
		xdraw.ApproxBiLinear.Scale(dst, target, strip, strip.Bounds(), xdraw.Src, nil)
	}
	return dst, nil
}

type tableLayout struct {
	widths []int
	width  int
	height int
}

func (r *TableRenderer) layout(t Table) tableLayout {
	widths := r.columnWidths(t)
	width := pageMargin*2 + rowHeaderWidth
	for _, w := range widths {
		width += w
	}
	return tableLayout{
		widths: widths,
		width:  width,
		height: pageMargin*2 + titleHeight + rowHeight*(len(t.Rows)+1),
	}
}

// draw paints the part of the grid that falls inside img's bounds. Coordinates
// are those of the full grid.
func (r *TableRenderer) draw(img *image.RGBA, t Table, l tableLayout) error {
	b := img.Bounds()
	top := pageMargin + titleHeight
	left := pageMargin
	lines := len(t.Rows) + 1

	if b.Min.Y < top {
		if err := r.drawText(img, r.bold, titleFontSize, textColor, t.Title, pageMargin, pageMargin+int(titleFontSize)); err != nil {
			return err
		}
	}

	fillRect(img, image.Rect(left, top, l.width-pageMargin, top+rowHeight), headerFill)
	fillRect(img, image.Rect(left, top, left+rowHeaderWidth, top+rowHeight*lines), headerFill)

	if b.Min.Y < top+rowHeight {
		x := left + rowHeaderWidth
		for i, h := range t.Header {
			if err := r.drawCell(img, r.bold, h, x, top, l.widths[i]); err != nil {
				return err
			}
			x += l.widths[i]
		}
	}

	first, last := visibleRows(b, top, len(t.Rows))
	for ri := first; ri < last; ri++ {
		row := t.Rows[ri]
		y := top + rowHeight*(ri+1)
		if err := r.drawCell(img, r.regular, strconv.Itoa(ri+1), left, y, rowHeaderWidth); err != nil {
			return err
		}
		x := left + rowHeaderWidth
		for ci, w := range l.widths {
			cell := ""
			if ci < len(row) {
				cell = row[ci]
			}
			if err := r.drawCell(img, r.regular, cell, x, y, w); err != nil {
				return err
			}
			x += w
		}
	}

	r.drawGrid(img, left, top, rowHeaderWidth, l.widths, lines)
	return nil
}

// visibleRows returns the half-open range of body rows that intersect b.
func visibleRows(b image.Rectangle, top, rows int) (int, int) {
	first := max(0, (b.Min.Y-top)/rowHeight-1)
	last := min(rows, (b.Max.Y-top)/rowHeight+1)
	if last < first {
		return first, first
	}
	return first, last
}

func newCanvas(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(r)
	draw.Draw(img, img.Bounds(), image.NewUniform(canvasColor), image.Point{}, draw.Src)
	return img
}

// Placeholder renders the page emitted for a sheet without rows.
func (r *TableRenderer) Placeholder(title string) (*image.RGBA, error) {
	const width, height = 595, 200
	img := newCanvas(image.Rect(0, 0, width, height))

	if err := r.drawText(img, r.bold, titleFontSize, textColor, title, pageMargin, pageMargin+int(titleFontSize)); err != nil {
		return nil, err
	}
	if err := r.drawText(img, r.regular, titleFontSize, mutedColor, "(Empty)", pageMargin, pageMargin+titleHeight+int(titleFontSize)); err != nil {
		return nil, err
	}
	return img, nil
}

func (r *TableRenderer) columnWidths(t Table) []int {
	cols := len(t.Header)
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = r.textWidth(t.Header[i])
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], r.textWidth(row[i]))
		}
	}
	for i, w := range widths {
		widths[i] = min(max(w+cellPadding*2, minColWidth), maxColWidth)
	}
	return widths
}

func (r *TableRenderer) textWidth(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

// fit cuts s so it renders within px, marking the cut with an ellipsis.
func (r *TableRenderer) fit(s string, px int) string {
	if r.textWidth(s) <= px {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if cand := string(runes) + "…"; r.textWidth(cand) <= px {
			return cand
		}
	}
	return ""
}

func (r *TableRenderer) drawCell(img *image.RGBA, f *truetype.Font, text string, x, y, w int) error {
	text = r.fit(text, w-cellPadding*2)
	if text == "" {
		return nil
	}
	baseline := y + rowHeight - (rowHeight-int(tableFontSize))/2 - 2
	return r.drawText(img, f, tableFontSize, textColor, text, x+cellPadding, baseline)
}

func (r *TableRenderer) drawText(img *image.RGBA, f *truetype.Font, size float64, col color.Color, text string, x, y int) error {
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(col))
	c.SetHinting(font.HintingFull)

	if _, err := c.DrawString(text, fixed.P(x, y)); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

func (r *TableRenderer) drawGrid(img *image.RGBA, left, top, headerW int, widths []int, rows int) {
	right := left + headerW
	for _, w := range widths {
		right += w
	}
	bottom := top + rows*rowHeight

	b := img.Bounds()
	from := max(0, (b.Min.Y-top)/rowHeight)
	to := min(rows, (b.Max.Y-top)/rowHeight+1)
	for i := from; i <= to; i++ {
		y := top + i*rowHeight
		fillRect(img, image.Rect(left, y, right+1, y+1), gridColor)
	}

	x := left
	fillRect(img, image.Rect(x, top, x+1, bottom+1), gridColor)
	x += headerW
	fillRect(img, image.Rect(x, top, x+1, bottom+1), gridColor)
	for _, w := range widths {
		x += w
		fillRect(img, image.Rect(x, top, x+1, bottom+1), gridColor)
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}
