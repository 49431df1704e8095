// Package albums reconciles album membership from the two independent
// signals an export carries: the directory layout of the extracted tree and
// the album hints embedded in metadata sidecars. The two signals layer on
// top of each other rather than competing, so one file can legitimately end
// up in several albums.
package albums

import (
	"path/filepath"
	"sort"
	"strings"

	"takeout-migrator/internal/core/pairing"
	"takeout-migrator/internal/core/sidecar"
	"takeout-migrator/internal/shared"
)

// brandPrefix is stripped from the front of album names: the export wraps
// user-chosen names under its product branding.
const brandPrefix = "Google Photos"

// Normalize canonicalizes a raw album name: surrounding whitespace is
// trimmed and a leading brand prefix is removed. Two raw names that
// normalize to the same string are the same album.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, brandPrefix) {
		name = strings.TrimSpace(strings.TrimPrefix(name, brandPrefix))
	}
	return name
}

// Resolver accumulates album membership across discovery passes. The
// registry lives on the instance and is handed to both passes, so nothing
// is ambient and two resolvers never interfere.
type Resolver struct {
	registry map[string]map[string]struct{} // normalized album name -> member set
	warnings *shared.WarningCollector
	debug    bool
}

// NewResolver creates an empty resolver
func NewResolver(warnings *shared.WarningCollector, debug bool) *Resolver {
	return &Resolver{
		registry: make(map[string]map[string]struct{}),
		warnings: warnings,
		debug:    debug,
	}
}

func (r *Resolver) add(rawName, mediaPath string) {
	name := Normalize(rawName)
	if name == "" {
		return
	}
	members, ok := r.registry[name]
	if !ok {
		members = make(map[string]struct{})
		r.registry[name] = members
	}
	members[mediaPath] = struct{}{}
}

// FromLayout derives album membership from the directory layout: the first
// path segment under the index's root names the album. Files directly at
// the root are not assigned to any album.
func (r *Resolver) FromLayout(ix *pairing.Index) {
	root := ix.Root()
	for _, pair := range ix.Pairs() {
		rel, err := filepath.Rel(root, pair.Media)
		if err != nil {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			// Directly at the root: unassigned
			continue
		}
		r.add(parts[0], pair.Media)
	}
}

// FromSidecars derives album membership from sidecar album hints. A sidecar
// that cannot be parsed or carries no recognizable hint contributes nothing;
// the pass never aborts.
func (r *Resolver) FromSidecars(ix *pairing.Index) {
	for _, pair := range ix.Pairs() {
		if pair.Sidecar == "" {
			continue
		}
		sc, err := sidecar.Parse(pair.Sidecar)
		if err != nil {
			shared.DebugPrint(r.debug, "no album hint from %s: %v", pair.Sidecar, err)
			if r.warnings != nil {
				r.warnings.AddAlbumHintWarning(pair.Sidecar, err.Error())
			}
			continue
		}
		if name, ok := sc.AlbumHint(); ok {
			r.add(name, pair.Media)
		}
	}
}

// Merge returns the final album registry (album name to sorted member list)
// and the reverse lookup from file to the sorted set of albums it belongs
// to. Both maps are order-independent: the same input produces the same
// contents regardless of discovery order.
func (r *Resolver) Merge() (map[string][]string, map[string][]string) {
	registry := make(map[string][]string, len(r.registry))
	fileAlbums := make(map[string][]string)

	for name, members := range r.registry {
		list := make([]string, 0, len(members))
		for media := range members {
			list = append(list, media)
			fileAlbums[media] = append(fileAlbums[media], name)
		}
		sort.Strings(list)
		registry[name] = list
	}

	for _, names := range fileAlbums {
		sort.Strings(names)
	}

	return registry, fileAlbums
}
