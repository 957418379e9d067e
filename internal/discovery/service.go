package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DBFileName is the filename discovery searches for.
const DBFileName = "eyelet.db"

// Service discovers eyelet databases and remembers where it found them.
//
// The known-locations cache is session-local: it survives across Find calls
// within one process and is re-validated (dropping paths that no longer
// exist) whenever cache use is requested.
type Service struct {
	strategy Strategy
	seeds    []string

	mu    sync.Mutex
	known map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithStrategy replaces the platform fast path. Pass nil to disable it.
func WithStrategy(s Strategy) Option {
	return func(svc *Service) { svc.strategy = s }
}

// WithSeeds replaces the portable walker's seed directories.
func WithSeeds(seeds []string) Option {
	return func(svc *Service) { svc.seeds = seeds }
}

// WithExtraSeeds supplements the default seed directories.
func WithExtraSeeds(seeds []string) Option {
	return func(svc *Service) { svc.seeds = append(svc.seeds, seeds...) }
}

// NewService creates a discovery service with the platform strategy and the
// conventional seed directories for the current user.
func NewService(opts ...Option) *Service {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	svc := &Service{
		strategy: platformStrategy(home),
		seeds:    defaultSeeds(home),
		known:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Find returns all discovered database paths, most recently modified first.
// With useCache, previously-known locations that still exist are included
// before any new pass runs.
func (s *Service) Find(useCache bool) []string {
	found := map[string]struct{}{}

	s.mu.Lock()
	if useCache {
		for path := range s.known {
			if isFile(path) {
				found[path] = struct{}{}
			}
		}
	}
	s.mu.Unlock()

	if s.strategy != nil {
		for _, path := range s.strategy.Locate() {
			if isFile(path) {
				found[path] = struct{}{}
			}
		}
	}
	for _, seed := range s.seeds {
		for _, path := range walk(seed, maxWalkDepth) {
			found[path] = struct{}{}
		}
	}

	s.mu.Lock()
	s.known = map[string]struct{}{}
	for path := range found {
		s.known[path] = struct{}{}
	}
	s.mu.Unlock()

	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	sortByModTime(paths)
	return paths
}

// FindProject returns databases under one project root: the conventional
// locations first, supplemented by a shallow recursive pass. Ordering
// matches Find.
func (s *Service) FindProject(root string) []string {
	if !isDir(root) {
		return []string{}
	}

	found := map[string]struct{}{}
	conventional := []string{
		filepath.Join(".eyelet", DBFileName),
		filepath.Join(".eyelet-logs", DBFileName),
		filepath.Join(".eyelet-logging", DBFileName),
		DBFileName,
	}
	for _, rel := range conventional {
		path := filepath.Join(root, rel)
		if isFile(path) {
			found[path] = struct{}{}
		}
	}
	for _, path := range walk(root, projectWalkDepth) {
		found[path] = struct{}{}
	}

	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	sortByModTime(paths)
	return paths
}

// AddKnown seeds the known-locations cache, typically with the process's own
// write path.
func (s *Service) AddKnown(path string) {
	if !isFile(path) {
		return
	}
	s.mu.Lock()
	s.known[path] = struct{}{}
	s.mu.Unlock()
}

// KnownLocations returns a copy of the current cache contents.
func (s *Service) KnownLocations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.known))
	for path := range s.known {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// defaultSeeds lists where databases conventionally live: the tool's own
// directories plus common project roots.
func defaultSeeds(home string) []string {
	return []string{
		filepath.Join(home, ".eyelet"),
		filepath.Join(home, ".claude"),
		filepath.Join(home, "src"),
		filepath.Join(home, "dev"),
		filepath.Join(home, "projects"),
		filepath.Join(home, "code"),
		filepath.Join(home, "Documents"),
	}
}

// sortByModTime orders paths newest-modified first. Paths whose stat fails
// sort last; ties break on path for determinism.
func sortByModTime(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		ti, ei := modTime(paths[i])
		tj, ej := modTime(paths[j])
		if ei != nil || ej != nil {
			return ej != nil && ei == nil
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return paths[i] < paths[j]
	})
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
