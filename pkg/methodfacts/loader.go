package methodfacts

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/715d/methodfacts/pkg/classfile"
)

// LoaderOptions configures feed loading.
type LoaderOptions struct {
	// Paths are feed files or directories to search for feeds.
	// If empty, the current directory is searched.
	Paths []string

	// Dir resolves relative paths. If empty, uses the current working
	// directory.
	Dir string
}

// LoadClasses decodes every class feed named by opts. Feeds are YAML files
// (.yaml, .yml) or txtar archives whose YAML members are feeds. Files that
// cannot be read abort the load; feeds that cannot be decoded are skipped
// with a warning.
func LoadClasses(ctx context.Context, opts LoaderOptions) ([]*classfile.Class, error) {
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	files, err := findFeeds(opts.Dir, paths)
	if err != nil {
		return nil, fmt.Errorf("finding feeds: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no class feeds found in %v", paths)
	}

	// Each goroutine owns one slot of results.
	results := make([][]*classfile.Class, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for idx, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			classes, err := loadFile(file)
			if err != nil {
				return err
			}
			results[idx] = classes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return deduplicateClasses(slices.Concat(results...)), nil
}

func findFeeds(dir string, paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		if dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isFeed(path) || filepath.Ext(path) == ".txtar" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func isFeed(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func loadFile(path string) ([]*classfile.Class, error) {
	if filepath.Ext(path) == ".txtar" {
		ar, err := txtar.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return DecodeArchive(ar, path), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	classes, err := classfile.DecodeFeed(bytes.NewReader(data), path)
	if err != nil {
		slog.Warn("skipping feed", "file", path, "error", err)
		return nil, nil
	}
	return classes, nil
}

// DecodeArchive decodes the YAML members of a txtar archive as class feeds.
// Members named expected.yaml hold test expectations and are not feeds.
func DecodeArchive(ar *txtar.Archive, source string) []*classfile.Class {
	var classes []*classfile.Class
	for _, f := range ar.Files {
		if !isFeed(f.Name) || filepath.Base(f.Name) == ExpectationsFile {
			continue
		}
		name := source + "#" + f.Name
		decoded, err := classfile.DecodeFeed(bytes.NewReader(f.Data), name)
		if err != nil {
			slog.Warn("skipping feed", "file", name, "error", err)
			continue
		}
		classes = append(classes, decoded...)
	}
	return classes
}

// ExpectationsFile is the archive member holding fixture expectations.
const ExpectationsFile = "expected.yaml"

// deduplicateClasses keeps one definition per class name, preferring the
// one that declares more methods. Input order is otherwise preserved.
func deduplicateClasses(classes []*classfile.Class) []*classfile.Class {
	best := make(map[string]int, len(classes))
	out := make([]*classfile.Class, 0, len(classes))
	for _, c := range classes {
		i, exists := best[c.Name]
		if !exists {
			best[c.Name] = len(out)
			out = append(out, c)
			continue
		}
		if isSuperset(c, out[i]) {
			slog.Debug("replacing class definition", "class", c.Name, "source", c.Source, "previous", out[i].Source)
			out[i] = c
		}
	}
	return out
}

// isSuperset reports whether c declares every method existing declares,
// and at least one more.
func isSuperset(c, existing *classfile.Class) bool {
	if len(c.Methods) <= len(existing.Methods) {
		return false
	}
	for _, m := range existing.Methods {
		if c.Method(m.Name, m.Descriptor) == nil {
			return false
		}
	}
	return true
}
