package sidecar

import (
	"fmt"
	"time"
)

// Accepted ISO-8601 layouts, with and without a zone designator
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISO(raw string) (int64, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp format %q", raw)
}

// ExifTime renders epoch seconds as the calendar value exiftool expects
// for date/time tags (UTC).
func ExifTime(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format("2006:01:02 15:04:05")
}
