// Package pairing walks an extracted export tree and associates every media
// file with its metadata sidecar, when one exists by naming convention.
package pairing

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"takeout-migrator/internal/shared"
)

// mediaExtensions is the supported format allow-list, matched
// case-insensitively: common raster image and video container formats.
var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true, ".heic": true, ".heif": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".3gp": true, ".mpg": true,
	".mpeg": true, ".mts": true, ".m2ts": true,
}

// IsMediaFile checks if the file extension indicates a supported media file
func IsMediaFile(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Pair associates one media file with its sidecar path. Sidecar is empty
// when no sidecar exists; that is not an error.
type Pair struct {
	Media   string
	Sidecar string
}

// Index maps every discovered media file to its sidecar or the empty marker
type Index struct {
	root  string
	pairs map[string]string
}

// Root returns the directory the index was built from
func (ix *Index) Root() string { return ix.root }

// Len returns the number of media files discovered
func (ix *Index) Len() int { return len(ix.pairs) }

// WithSidecar returns how many media files have a sidecar
func (ix *Index) WithSidecar() int {
	n := 0
	for _, sc := range ix.pairs {
		if sc != "" {
			n++
		}
	}
	return n
}

// Sidecar returns the sidecar path for a media file. The second return is
// false when the media file is not in the index at all.
func (ix *Index) Sidecar(media string) (string, bool) {
	sc, ok := ix.pairs[media]
	return sc, ok
}

// Pairs returns every pair in deterministic (sorted by media path) order
func (ix *Index) Pairs() []Pair {
	keys := make([]string, 0, len(ix.pairs))
	for media := range ix.pairs {
		keys = append(keys, media)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, media := range keys {
		pairs = append(pairs, Pair{Media: media, Sidecar: ix.pairs[media]})
	}
	return pairs
}

// BuildIndex walks root and pairs every media file with its sidecar.
// For each media file two candidate names are probed in the same directory:
// "<filename>.json" (full name including extension) and then "<stem>.json";
// the first that exists wins.
func BuildIndex(root string) (*Index, error) {
	pairs := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsMediaFile(path) {
			return nil
		}
		pairs[path] = findSidecar(path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return &Index{root: root, pairs: pairs}, nil
}

func findSidecar(mediaPath string) string {
	dir := filepath.Dir(mediaPath)
	name := filepath.Base(mediaPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	for _, candidate := range []string{name + ".json", stem + ".json"} {
		probe := filepath.Join(dir, candidate)
		if shared.FileExists(probe) {
			return probe
		}
	}
	return ""
}
