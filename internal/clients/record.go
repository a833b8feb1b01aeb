package clients

import (
	"errors"
	"strings"
	"time"
)

// TimeLayout is the on-disk and file-format timestamp layout.
const TimeLayout = "2006-01-02 15:04:05"

// UnknownSubmitter is stored when a record arrives without a submitter handle.
const UnknownSubmitter = "unknown"

// Record is one stored phone number.
type Record struct {
	ID          int64
	Submitter   string
	PhoneNumber string
	AddedAt     time.Time
}

// FormatTime renders t in TimeLayout, UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and RFC 3339 timestamps.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	return time.ParseInLocation(TimeLayout, value, time.UTC)
}

const recordColumns = "id, username, phone_number, added_time"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec      Record
		addedRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.Submitter, &rec.PhoneNumber, &addedRaw); err != nil {
		return Record{}, err
	}
	if added, err := ParseTime(addedRaw); err == nil {
		rec.AddedAt = added
	}
	return rec, nil
}

func normalizeSubmitter(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return UnknownSubmitter
	}
	return value
}
