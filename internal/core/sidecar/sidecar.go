// Package sidecar parses the JSON metadata files that accompany media in a
// photo-service export. The documents come in several historical shapes, so
// every accessor probes a fixed list of candidate encodings and reports
// "absent" instead of failing when a field is missing or has an unexpected
// type.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// flexString accepts both JSON strings and JSON numbers, since timestamp
// fields appear with either encoding across export versions.
type flexString string

func (fs *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*fs = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*fs = flexString(n.String())
		return nil
	}
	// Unexpected shape contributes nothing rather than failing the document
	*fs = ""
	return nil
}

type timeField struct {
	Timestamp flexString `json:"timestamp"`
	Formatted string     `json:"formatted"`
}

// GeoData holds a coordinate pair. Pointers distinguish an absent or null
// coordinate from a literal zero.
type GeoData struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type originField struct {
	AlbumTitle string `json:"albumTitle"`
}

// Sidecar is one parsed metadata document
type Sidecar struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	PhotoTakenTime *timeField      `json:"photoTakenTime"`
	CreationTime   *timeField      `json:"creationTime"`
	GeoData        *GeoData        `json:"geoData"`
	AlbumData      json.RawMessage `json:"albumData"`
	Origin         *originField    `json:"googlePhotosOrigin"`
	Albums         json.RawMessage `json:"albums"`
}

// Parse reads and decodes a sidecar file
func Parse(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar: %w", err)
	}
	return &sc, nil
}

// TakenTimestamp returns the raw capture-time value, if present
func (sc *Sidecar) TakenTimestamp() (string, bool) {
	return rawTimestamp(sc.PhotoTakenTime)
}

// CreationTimestamp returns the raw creation-time value, if present
func (sc *Sidecar) CreationTimestamp() (string, bool) {
	return rawTimestamp(sc.CreationTime)
}

func rawTimestamp(tf *timeField) (string, bool) {
	if tf == nil {
		return "", false
	}
	v := strings.TrimSpace(string(tf.Timestamp))
	if v == "" {
		return "", false
	}
	return v, true
}

// Coordinates returns latitude and longitude when both are present.
// A document carrying only one of the pair reports absent, so callers
// never write a partial GPS position.
func (sc *Sidecar) Coordinates() (lat, lon float64, ok bool) {
	if sc.GeoData == nil || sc.GeoData.Latitude == nil || sc.GeoData.Longitude == nil {
		return 0, 0, false
	}
	return *sc.GeoData.Latitude, *sc.GeoData.Longitude, true
}

// titledObject matches album objects that carry their name under either key
type titledObject struct {
	Title string `json:"title"`
	Name  string `json:"name"`
}

func (to titledObject) value() string {
	if to.Title != "" {
		return to.Title
	}
	return to.Name
}

// AlbumHint extracts an album name from the document, probing the known
// encodings in fixed precedence order:
//  1. albumData as an object with a title/name sub-key
//  2. albumData as a plain string
//  3. googlePhotosOrigin.albumTitle
//  4. albums[0].title or albums[0].name
//
// A probe that does not match simply falls through to the next; nothing
// here returns an error.
func (sc *Sidecar) AlbumHint() (string, bool) {
	if len(sc.AlbumData) > 0 {
		var obj titledObject
		if err := json.Unmarshal(sc.AlbumData, &obj); err == nil {
			if v := obj.value(); v != "" {
				return v, true
			}
		}
		var s string
		if err := json.Unmarshal(sc.AlbumData, &s); err == nil && s != "" {
			return s, true
		}
	}

	if sc.Origin != nil && sc.Origin.AlbumTitle != "" {
		return sc.Origin.AlbumTitle, true
	}

	if len(sc.Albums) > 0 {
		var list []titledObject
		if err := json.Unmarshal(sc.Albums, &list); err == nil && len(list) > 0 {
			if v := list[0].value(); v != "" {
				return v, true
			}
		}
	}

	return "", false
}

// ParseTimestamp interprets a raw sidecar timestamp. All-digit values are
// epoch seconds; anything else is tried as ISO-8601 text, with or without
// a trailing UTC designator.
func ParseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if isAllDigits(raw) {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid epoch timestamp %q: %w", raw, err)
		}
		return secs, nil
	}
	return parseISO(raw)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
