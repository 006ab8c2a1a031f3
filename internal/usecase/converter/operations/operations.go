package operations

import (
	"path/filepath"

	"doc-converter/internal/domain"
)

// OutputPath is where a strategy must leave the PDF for input inside outDir.
func OutputPath(input, outDir string) string {
	stem, _ := domain.SplitExt(filepath.Base(input))
	return filepath.Join(outDir, stem+domain.PDFExt)
}
