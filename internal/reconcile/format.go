package reconcile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv" in any case, with or without a leading dot.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file format %q (want xlsx or csv)", value)
	}
}

// FormatFromName picks a format from a file name's extension.
func FormatFromName(name string) (Format, bool) {
	ext := filepath.Ext(strings.TrimSpace(name))
	if ext == "" {
		return "", false
	}
	format, err := ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return format, true
}

// Ext returns the file extension without a dot.
func (f Format) Ext() string { return string(f) }

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}
