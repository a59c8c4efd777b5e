package statehash

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
)

// ExcludeRules are the three exclusion classes evaluated before a path ever
// reaches the check engine: directory name, file name, and full path. A
// directory whose name matches is pruned whole; symlinks and other
// non-regular entries are never emitted.
type ExcludeRules struct {
	Directory []*regexp.Regexp // matched against directory names, prunes the subtree
	File      []*regexp.Regexp // matched against file names
	Path      []*regexp.Regexp // matched against the full path as walked
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// walkFiles streams the regular files under rootDir to fn in walk order:
// lexical by name within each directory, which makes the stream
// reproducible across runs. relPath is slash-separated and relative to
// rootDir. A directory listing failure aborts the walk; fn errors propagate.
func walkFiles(rootDir string, rules ExcludeRules, fn func(absPath, relPath string, d fs.DirEntry) error) error {
	return filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("listing files failed: %w", err)
		}

		if d.IsDir() {
			if path != rootDir && matchAny(rules.Directory, d.Name()) {
				if IsDebugEnabled("walk") {
					VerboseLog(3, "walkFiles: pruning directory %s", path)
				}
				return fs.SkipDir
			}
			return nil
		}

		if matchAny(rules.File, d.Name()) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matchAny(rules.Path, path) {
			return nil
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to determine relative path of %s: %w", path, err)
		}

		return fn(path, filepath.ToSlash(rel), d)
	})
}
