package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DiscoverRecordFiles expands args (files or directories) into the record
// files to process, sorted and without duplicates.
func DiscoverRecordFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	if len(includePatterns) == 0 {
		includePatterns = DefaultIncludePatterns
	}
	files, err := discoverRecordFiles(args, recursive, includePatterns, excludePatterns)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return dedupePaths(files), nil
}

// discoverRecordFiles finds all files matching the given patterns. Files
// named explicitly are still subject to the patterns.
func discoverRecordFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var recordFiles []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := discoverInDirectory(arg, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			recordFiles = append(recordFiles, files...)
		} else if shouldIncludeFile(arg, includePatterns, excludePatterns) {
			recordFiles = append(recordFiles, arg)
		}
	}

	return recordFiles, nil
}

// discoverInDirectory walks dir, descending only when recursive is set.
func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldIncludeFile applies exclude patterns first, then include patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern matches patterns against the base name.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func dedupePaths(sorted []string) []string {
	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p == sorted[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
