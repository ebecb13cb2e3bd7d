// Package pdf splits a rendered PDF into ordered single-page files.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"deckconv/internal/pkg/errors"
)

// Split writes one PDF per page of inPath into outDir, named so that
// lexicographic order matches page order. Returns the page paths in
// ascending page order.
func Split(inPath, outDir string) ([]string, error) {
	const op = "pdf.Split"

	count, err := pdfapi.PageCountFile(inPath)
	if err != nil {
		return nil, errors.ConversionFailed("rendered output is not a readable PDF: " + err.Error())
	}
	if count == 0 {
		return nil, errors.ConversionFailed("rendered output contains no pages")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, op, "creating page dir")
	}

	paths := make([]string, 0, count)
	for page := 1; page <= count; page++ {
		outPath := filepath.Join(outDir, fmt.Sprintf("%04d.pdf", page))
		selection := []string{strconv.Itoa(page)}
		if err := pdfapi.CollectFile(inPath, outPath, selection, nil); err != nil {
			return nil, errors.Wrap(err, op, fmt.Sprintf("extracting page %d", page))
		}
		paths = append(paths, outPath)
	}
	return paths, nil
}
