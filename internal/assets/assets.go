// Package assets inspects a built web bundle for the files a browser needs
// before it offers to install the app.
package assets

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Patterns searched for each part of the bundle, relative to the root.
var (
	IndexPatterns         = []string{"index.html"}
	ManifestPatterns      = []string{"manifest.json", "*.webmanifest"}
	ServiceWorkerPatterns = []string{"flutter_service_worker.js", "sw.js", "service-worker.js"}
	IconPatterns          = []string{"icons/**/*.{png,svg}", "favicon.{png,ico,svg}"}
)

// Report describes what was found under the asset root.
type Report struct {
	Root           string
	Index          []string
	Manifest       []string
	ServiceWorkers []string
	Icons          []string
	Files          int
	Bytes          int64
}

// Inspect walks root and reports the PWA files it contains.
func Inspect(root string) (Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Report{}, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return Report{}, fmt.Errorf("%s is not a directory", root)
	}

	fsys := os.DirFS(root)
	r := Report{Root: root}

	for _, part := range []struct {
		patterns []string
		into     *[]string
	}{
		{IndexPatterns, &r.Index},
		{ManifestPatterns, &r.Manifest},
		{ServiceWorkerPatterns, &r.ServiceWorkers},
		{IconPatterns, &r.Icons},
	} {
		matches, err := globAll(fsys, part.patterns)
		if err != nil {
			return Report{}, err
		}
		*part.into = matches
	}

	err = doublestar.GlobWalk(fsys, "**", func(path string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		r.Files++
		r.Bytes += fi.Size()
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return r, nil
}

func globAll(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Missing lists the essential parts that were not found. Icons are not
// essential: browsers fall back to a generated one.
func (r Report) Missing() []string {
	var missing []string
	if len(r.Index) == 0 {
		missing = append(missing, "index.html")
	}
	if len(r.Manifest) == 0 {
		missing = append(missing, "web manifest")
	}
	if len(r.ServiceWorkers) == 0 {
		missing = append(missing, "service worker")
	}
	return missing
}

// Installable reports whether every essential part is present.
func (r Report) Installable() bool {
	return len(r.Missing()) == 0
}
