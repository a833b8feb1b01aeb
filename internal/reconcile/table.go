package reconcile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"clientbook/internal/clients"
)

// Column names written on export.
const (
	ColumnSubmitter = "username"
	ColumnPhone     = "phone_number"
	ColumnAddedTime = "added_time"
)

// MaxHeaderSearchRows bounds how far into a file the header row may appear.
const MaxHeaderSearchRows = 20

var header = []string{ColumnSubmitter, ColumnPhone, ColumnAddedTime}

var columnAliases = map[string]string{
	"username":         ColumnSubmitter,
	"submitter":        ColumnSubmitter,
	"submitter_handle": ColumnSubmitter,
	"phone_number":     ColumnPhone,
	"phone":            ColumnPhone,
	"phonenumber":      ColumnPhone,
	"added_time":       ColumnAddedTime,
	"added_at":         ColumnAddedTime,
	"addedat":          ColumnAddedTime,
}

// extra layouts seen in spreadsheets re-saved by hand
var cellTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/06 15:04",
	"01-02-06 15:04",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type headerIndex map[string]int

func cleanCell(value string) string {
	return strings.TrimSpace(strings.Trim(value, "\ufeff"))
}

func canonicalColumn(value string) (string, bool) {
	key := strings.ToLower(cleanCell(value))
	key = strings.ReplaceAll(key, " ", "_")
	name, ok := columnAliases[key]
	return name, ok
}

func makeHeaderIndex(row []string) headerIndex {
	idx := headerIndex{}
	for i, cell := range row {
		if name, ok := canonicalColumn(cell); ok {
			if _, dup := idx[name]; !dup {
				idx[name] = i
			}
		}
	}
	return idx
}

func (h headerIndex) missing() []string {
	var missing []string
	for _, col := range header {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func (h headerIndex) width() int {
	maxIdx := -1
	for _, pos := range h {
		if pos > maxIdx {
			maxIdx = pos
		}
	}
	return maxIdx + 1
}

// findHeader returns the index of the first row naming every required column
// within MaxHeaderSearchRows, or -1 with the best candidate's missing columns.
func findHeader(records [][]string) (int, headerIndex, []string) {
	limit := MaxHeaderSearchRows
	if len(records) < limit {
		limit = len(records)
	}
	bestMissing := header
	for i := 0; i < limit; i++ {
		idx := makeHeaderIndex(records[i])
		missing := idx.missing()
		if len(missing) == 0 {
			return i, idx, nil
		}
		if len(missing) < len(bestMissing) {
			bestMissing = missing
		}
	}
	return -1, nil, bestMissing
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

func parseCellTime(value string) (time.Time, error) {
	if t, err := clients.ParseTime(value); err == nil {
		return t, nil
	}
	value = cleanCell(value)
	for _, layout := range cellTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, ok := excelSerialTime(value); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// excelSerialTime converts a 1900-system date serial such as "45444.52135".
func excelSerialTime(value string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC().Round(time.Second), true
}

func recordRow(rec clients.Record) []string {
	return []string{rec.Submitter, rec.PhoneNumber, clients.FormatTime(rec.AddedAt)}
}
