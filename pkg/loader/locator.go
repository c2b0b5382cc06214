package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ModuleRef pairs a declared node entry with its resolved location on disk.
type ModuleRef struct {
	// Declared is the path as written in the package manifest.
	Declared string
	// Path is the absolute path of the module file that was found.
	Path string
}

// CandidatePaths returns the ordered probe set for a declared module
// path: the literal path, the path with a compiled .js extension in
// place of a .ts source extension, and the path with its first src
// segment replaced by each of the build output directories dist and
// lib. Transforms that do not apply repeat the literal path.
func CandidatePaths(declared string) []string {
	return []string{
		declared,
		swapSourceExt(declared),
		swapSourceDir(declared, "dist"),
		swapSourceDir(declared, "lib"),
	}
}

func swapSourceExt(p string) string {
	if strings.HasSuffix(p, ".ts") {
		return strings.TrimSuffix(p, ".ts") + ".js"
	}
	return p
}

func swapSourceDir(p, out string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "src" {
			parts[i] = out
			return strings.Join(parts, "/")
		}
	}
	return p
}

// Locator resolves declared node module paths within a staged package.
type Locator struct {
	logger *slog.Logger
}

// NewLocator creates a locator.
func NewLocator(logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{logger: logger}
}

// FindModules resolves each declared entry against the package root.
// Entries that resolve nowhere are logged and skipped; the result
// preserves declaration order. A canceled context stops the probing
// and returns what has been resolved so far.
func (l *Locator) FindModules(ctx context.Context, root string, declared []string) []ModuleRef {
	refs := make([]ModuleRef, 0, len(declared))
	for _, entry := range declared {
		if ctx.Err() != nil {
			return refs
		}
		path, ok := l.resolve(root, entry)
		if !ok {
			l.logger.Warn("declared node module not found", "entry", entry, "root", root)
			continue
		}
		refs = append(refs, ModuleRef{Declared: entry, Path: path})
	}
	return refs
}

// resolve probes all candidate variations concurrently and picks the
// first candidate, in declaration order, that exists as a regular file.
func (l *Locator) resolve(root, declared string) (string, bool) {
	candidates := CandidatePaths(declared)
	exists := make([]bool, len(candidates))

	var wg sync.WaitGroup
	for i, rel := range candidates {
		wg.Add(1)
		go func(i int, rel string) {
			defer wg.Done()
			info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
			exists[i] = err == nil && info.Mode().IsRegular()
		}(i, rel)
	}
	wg.Wait()

	for i, rel := range candidates {
		if exists[i] {
			return filepath.Join(root, filepath.FromSlash(rel)), true
		}
	}
	return "", false
}
