package locate

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cseek/internal/domain"
)

// NotFoundError means the configured index path could not be resolved to an
// existing file. It names the configured path so the UI can surface it.
type NotFoundError struct {
	Configured string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("index file not found: %s", e.Configured)
}

// Finder resolves the configured index path against the filesystem
type Finder interface {
	Resolve(configured, startDir string) (domain.DatabaseLocation, error)
}

// RootDiscoverer finds the logical project root for a directory, used as a
// fallback search location for the index file.
type RootDiscoverer interface {
	DiscoverRoot(startDir string) (string, bool)
}

// finder is the concrete implementation
type finder struct {
	roots RootDiscoverer // may be nil, in which case step 3 is skipped
}

// NewFinder creates a finder. roots may be nil to disable project-root fallback.
func NewFinder(roots RootDiscoverer) Finder {
	return &finder{roots: roots}
}

// Resolve locates the index file, in strict priority order: the configured
// path as-is when absolute, relative to startDir, then relative to a
// discovered project root. The returned path exists at resolution time; the
// check is inherently racy, so a later launch failure is still possible and
// must be treated as recoverable.
func (f *finder) Resolve(configured, startDir string) (domain.DatabaseLocation, error) {
	if filepath.IsAbs(configured) {
		if fileExists(configured) {
			return location(configured), nil
		}
		return domain.DatabaseLocation{}, &NotFoundError{Configured: configured}
	}

	joined := filepath.Join(startDir, configured)
	if fileExists(joined) {
		return location(joined), nil
	}

	if f.roots != nil {
		if root, ok := f.roots.DiscoverRoot(startDir); ok {
			joined = filepath.Join(root, configured)
			if fileExists(joined) {
				return location(joined), nil
			}
		}
	}

	return domain.DatabaseLocation{}, &NotFoundError{Configured: configured}
}

func location(path string) domain.DatabaseLocation {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return domain.DatabaseLocation{
		Path:      abs,
		Directory: filepath.Dir(abs),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// rootMarkers are filesystem entries whose presence marks a project root
var rootMarkers = []string{".git", "go.mod", "Makefile", "configure.ac"}

// MarkerDiscoverer walks upward from a directory looking for well-known
// project markers.
type MarkerDiscoverer struct {
	Markers []string // defaults to rootMarkers when empty
}

// NewMarkerDiscoverer creates a discoverer with the default marker set
func NewMarkerDiscoverer() *MarkerDiscoverer {
	return &MarkerDiscoverer{}
}

// DiscoverRoot walks from startDir toward the filesystem root and returns the
// first directory containing a marker.
func (d *MarkerDiscoverer) DiscoverRoot(startDir string) (string, bool) {
	markers := d.Markers
	if len(markers) == 0 {
		markers = rootMarkers
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// SupportsAssignment reports whether the index file can answer assignment
// queries (-L9). The database header starts with "cscope <format version>";
// assignment search needs format 15 or newer. Unreadable or odd headers
// disable the query kind rather than failing.
func SupportsAssignment(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("locate: could not sniff index header: %v", err)
		return false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return false
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 2 || fields[0] != "cscope" {
		return false
	}
	version, err := strconv.Atoi(fields[1])
	if err != nil {
		return false
	}
	return version >= 15
}
