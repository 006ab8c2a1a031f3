package operations

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// xlsMaxCols is the BIFF8 column limit, scanned when a row has no ROW record.
const xlsMaxCols = 256

var ErrNoSheets = errors.New("workbook has no sheets")

// Sheet is a worksheet read as untyped text.
type Sheet struct {
	Name string
	Rows [][]string
}

// SheetTables renders each sheet of a workbook as one table page. It is the
// fallback when the office tool cannot convert a spreadsheet.
type SheetTables struct {
	renderer *TableRenderer
}

func NewSheetTables(renderer *TableRenderer) *SheetTables {
	return &SheetTables{renderer: renderer}
}

func (s *SheetTables) Name() string {
	return "sheet-tables"
}

func (s *SheetTables) Convert(ctx context.Context, input, outDir string) (string, error) {
	sheets, err := ReadWorkbook(input)
	if err != nil {
		return "", err
	}

	writer := NewPageWriter()
	for _, page := range PlanPages(sheets) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var img image.Image
		if page.Rows == nil {
			img, err = s.renderer.Placeholder(page.Title)
		} else {
			img, err = s.renderer.Render(page)
		}
		if err != nil {
			return "", fmt.Errorf("failed to render %q: %w", page.Title, err)
		}
		if err := writer.AddImage(img); err != nil {
			return "", err
		}
	}

	out := OutputPath(input, outDir)
	if err := writer.Save(out); err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

// PlanPages lays sheets out one page each, in workbook order. An empty sheet
// gets a page with nil Rows.
func PlanPages(sheets []Sheet) []Table {
	pages := make([]Table, 0, len(sheets))
	for _, sh := range sheets {
		page := Table{Title: "Sheet: " + sh.Name}
		if rows := Rectangular(sh.Rows); len(rows) > 0 {
			page.Header = ColumnLetters(len(rows[0]))
			page.Rows = rows
		}
		pages = append(pages, page)
	}
	return pages
}

// Rectangular pads rows to equal width and drops trailing blank rows.
func Rectangular(rows [][]string) [][]string {
	last := -1
	width := 0
	for i, row := range rows {
		for j, cell := range row {
			if strings.TrimSpace(cell) != "" {
				last = i
				width = max(width, j+1)
			}
		}
	}
	if last < 0 {
		return nil
	}

	out := make([][]string, last+1)
	for i := range out {
		row := make([]string, width)
		copy(row, rows[i])
		out[i] = row
	}
	return out
}

// ColumnLetters returns A, B, ... for n columns.
func ColumnLetters(n int) []string {
	letters := make([]string, n)
	for i := range letters {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			name = fmt.Sprint(i + 1)
		}
		letters[i] = name
	}
	return letters
}

// ReadWorkbook reads .xlsx through excelize and legacy .xls through the BIFF reader.
func ReadWorkbook(path string) ([]Sheet, error) {
	var (
		sheets []Sheet
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		sheets, err = readXLS(path)
	default:
		sheets, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	return sheets, nil
}

func readXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

func readXLS(path string) (sheets []Sheet, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	defer f.Close()

	// The BIFF reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("failed to parse xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("failed to open xls workbook: no Workbook stream")
	}

	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sh := Sheet{Name: ws.Name}
		for r := 0; r <= int(ws.MaxRow); r++ {
			sh.Rows = append(sh.Rows, xlsRow(ws, r))
		}
		for len(sh.Rows) > 0 && sh.Rows[len(sh.Rows)-1] == nil {
			sh.Rows = sh.Rows[:len(sh.Rows)-1]
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}

// xlsRow reads row i, returning nil for a row the sheet never stored.
// WorkSheet.Row dereferences the missing entry, hence the recover.
func xlsRow(ws *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := ws.Row(i)
	last := row.LastCol()
	if last <= 0 {
		last = xlsMaxCols
	}
	cells = make([]string, 0, last)
	for c := 0; c < last; c++ {
		cells = append(cells, row.Col(c))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	if len(cells) == 0 {
		return nil
	}
	return cells
}
