package operations

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "A"))
	_, err := f.NewSheet("B")
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow("A", "A1", &[]interface{}{"Produto", "Qtd", "Preço"}))
	require.NoError(t, f.SetSheetRow("A", "A2", &[]interface{}{"Parafuso", 120, 0.35}))
	require.NoError(t, f.SetSheetRow("A", "A3", &[]interface{}{"Porca", 80}))

	require.NoError(t, f.SaveAs(path))
}

func TestPlanPages_EmptySheetPlaceholder(t *testing.T) {
	sheets := []Sheet{
		{Name: "A", Rows: [][]string{{"x", "y"}, {"1"}, {"2", "3"}}},
		{Name: "B"},
	}

	pages := PlanPages(sheets)
	require.Len(t, pages, 2)

	assert.Equal(t, "Sheet: A", pages[0].Title)
	assert.Equal(t, []string{"A", "B"}, pages[0].Header)
	assert.Equal(t, [][]string{{"x", "y"}, {"1", ""}, {"2", "3"}}, pages[0].Rows)

	assert.Equal(t, "Sheet: B", pages[1].Title)
	assert.Nil(t, pages[1].Rows)
}

func TestPlanPages_OnePagePerSheet(t *testing.T) {
	rows := make([][]string, 2500)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1), "v"}
	}

	pages := PlanPages([]Sheet{{Name: "big", Rows: rows}, {Name: "small", Rows: [][]string{{"x"}}}})
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Rows, 2500)
	assert.Equal(t, "2500", pages[0].Rows[2499][0])
	assert.Equal(t, []string{"A", "B"}, pages[0].Header)
	assert.Len(t, pages[1].Rows, 1)
}

func TestRectangular(t *testing.T) {
	rows := [][]string{{"a"}, {"", "b", ""}, {}, {" ", ""}}
	assert.Equal(t, [][]string{{"a", ""}, {"", "b"}}, Rectangular(rows))
	assert.Nil(t, Rectangular([][]string{{""}, {}}))
}

func TestColumnLetters(t *testing.T) {
	letters := ColumnLetters(28)
	assert.Equal(t, "A", letters[0])
	assert.Equal(t, "Z", letters[25])
	assert.Equal(t, "AB", letters[27])
}

func TestReadWorkbook_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estoque.xlsx")
	writeWorkbook(t, path)

	sheets, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "A", sheets[0].Name)
	assert.Len(t, sheets[0].Rows, 3)
	assert.Equal(t, "Parafuso", sheets[0].Rows[1][0])
	assert.Equal(t, "B", sheets[1].Name)
	assert.Empty(t, Rectangular(sheets[1].Rows))
}

func TestSheetTables_TwoSheetsTwoPages(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "estoque.xlsx")
	writeWorkbook(t, in)

	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	out, err := NewSheetTables(renderer).Convert(context.Background(), in, dir)
	require.NoError(t, err)

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestSheetTables_NotAWorkbook(t *testing.T) {
	dir := t.TempDir()
	in := inputFile(t, dir, "fake.xlsx")

	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	_, err = NewSheetTables(renderer).Convert(context.Background(), in, dir)
	assert.Error(t, err)
}

func TestTableRenderer_SizeFollowsGrid(t *testing.T) {
	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	small, err := renderer.Render(Table{Title: "Sheet: s", Header: ColumnLetters(2), Rows: [][]string{{"a", "b"}}})
	require.NoError(t, err)
	large, err := renderer.Render(Table{Title: "Sheet: l", Header: ColumnLetters(4), Rows: [][]string{{"a", "b", "c", "d"}, {"e", "f", "g", "h"}}})
	require.NoError(t, err)

	assert.Greater(t, large.Bounds().Dx(), small.Bounds().Dx())
	assert.Greater(t, large.Bounds().Dy(), small.Bounds().Dy())
}

func TestTableRenderer_TallGridScaledToFit(t *testing.T) {
	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	rows := make([][]string, 2500)
	for i := range rows {
		rows[i] = []string{"linha", fmt.Sprint(i)}
	}

	img, err := renderer.Render(Table{Title: "Sheet: big", Header: ColumnLetters(2), Rows: rows})
	require.NoError(t, err)

	b := img.Bounds()
	assert.LessOrEqual(t, b.Dy(), maxRasterSide)
	assert.LessOrEqual(t, b.Dx(), maxRasterSide)
	assert.Greater(t, b.Dy(), maxRasterSide/2)
	assert.Greater(t, b.Dy(), b.Dx())
}

func TestSheetTables_TallSheetSinglePage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "longa.xlsx")

	f := excelize.NewFile()
	for i := 1; i <= 2500; i++ {
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i), &[]interface{}{i, "item"}))
	}
	require.NoError(t, f.SaveAs(in))
	require.NoError(t, f.Close())

	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	out, err := NewSheetTables(renderer).Convert(context.Background(), in, dir)
	require.NoError(t, err)

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestReadWorkbook_XLS(t *testing.T) {
	sheets, err := ReadWorkbook(filepath.Join("testdata", "cadastro.xls"))
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	assert.Equal(t, "Dados", sheets[0].Name)
	assert.Equal(t, [][]string{{"Nome", "Cidade"}, nil, {"Ana", "Recife"}}, sheets[0].Rows)

	assert.Equal(t, "Vazia", sheets[1].Name)
	assert.Empty(t, sheets[1].Rows)
}

func TestReadWorkbook_XLSNotOLE(t *testing.T) {
	in := inputFile(t, t.TempDir(), "fake.xls")

	_, err := ReadWorkbook(in)
	assert.Error(t, err)
}

func TestSheetTables_XLS(t *testing.T) {
	renderer, err := NewTableRenderer()
	require.NoError(t, err)

	out, err := NewSheetTables(renderer).Convert(context.Background(), filepath.Join("testdata", "cadastro.xls"), t.TempDir())
	require.NoError(t, err)

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}
