package reconcile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"clientbook/internal/clients"
)

// SheetName is the worksheet exports write and imports prefer.
const SheetName = "clients"

func writeXLSX(w io.Writer, records []clients.Record) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(header), 22); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := sw.SetRow("A1", stringsToCells(header)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, stringsToCells(recordRow(rec))); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, malformed("not a valid xlsx workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, malformed("workbook has no sheets", nil)
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if name == SheetName {
			sheet = name
			break
		}
	}
	// Raw values keep date cells as serial numbers instead of display text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, malformed("unreadable sheet "+sheet, err)
	}
	return rows, nil
}

func stringsToCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
