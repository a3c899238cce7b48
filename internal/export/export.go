// Package export renders session artifacts into download formats.
package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/models"
)

// WriteCodeZip writes all generated code files of a session into one zip
// archive. File names collide only if code generation produced duplicates;
// later files win a numbered suffix.
func WriteCodeZip(w io.Writer, files []*models.CodeFile) error {
	zw := zip.NewWriter(w)

	seen := make(map[string]int)
	for _, file := range files {
		name := file.FileName
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[file.FileName]++

		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := entry.Write([]byte(file.FileContent)); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

// WriteCostsCSV writes a cost summary as a CSV breakdown: one row per priced
// component, then a total row, then any notes.
func WriteCostsCSV(w io.Writer, summary cost.Summary) error {
	cw := csv.NewWriter(w)

	header := []string{"cloud", "service", "sku", "region", "qty", "unit_monthly_usd", "monthly_usd"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range summary.Items {
		row := []string{
			item.Cloud,
			item.Service,
			item.SKU,
			item.Region,
			fmt.Sprintf("%d", item.Quantity),
			fmt.Sprintf("%.2f", item.UnitMonthly),
			fmt.Sprintf("%.2f", item.Monthly),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	total := []string{"", "", "", "", "", "total", fmt.Sprintf("%.2f", summary.TotalEstimate)}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("failed to write csv total: %w", err)
	}

	for _, note := range summary.Notes {
		if err := cw.Write([]string{"note", note, "", "", "", "", ""}); err != nil {
			return fmt.Errorf("failed to write csv note: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
