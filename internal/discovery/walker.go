package discovery

import "os"

// Walk bounds. Depth 6 keeps the portable pass cheap on deep home
// directories; the project-scoped variant stays shallower.
const (
	maxWalkDepth     = 6
	projectWalkDepth = 3
)

// hiddenAllowList names the hidden directories worth descending into; every
// other dot-directory is skipped.
var hiddenAllowList = map[string]bool{
	".eyelet":         true,
	".eyelet-logs":    true,
	".eyelet-logging": true,
	".claude":         true,
}

// skipDirs are well-known dependency trees that never hold our databases
// and dominate walk time when entered.
var skipDirs = map[string]bool{
	"node_modules": true,
}

// walk recursively searches a directory for database files up to maxDepth
// levels. Unreadable directories are skipped, not reported.
func walk(dir string, maxDepth int) []string {
	if maxDepth <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var found []string
	for _, entry := range entries {
		path := dir + string(os.PathSeparator) + entry.Name()
		if !entry.IsDir() {
			if entry.Name() == DBFileName {
				found = append(found, path)
			}
			continue
		}
		if !shouldDescend(entry.Name()) {
			continue
		}
		found = append(found, walk(path, maxDepth-1)...)
	}
	return found
}

// shouldDescend filters directories during the portable walk.
func shouldDescend(name string) bool {
	if skipDirs[name] {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return hiddenAllowList[name]
	}
	return true
}
