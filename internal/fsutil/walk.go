// Package fsutil holds filesystem helpers shared by rule loading and
// log discovery.
package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
)

// WalkFiles lists regular files below root accepted by keep. The tree is
// traversed with an explicit stack so depth does not grow the call stack.
// Entries are visited in lexical order; unreadable directories are skipped.
func WalkFiles(root string, keep func(string) bool) []string {
	var files []string
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("Skipping unreadable directory %s: %v", dir, err)
			continue
		}

		var subdirs []string
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			switch {
			case e.IsDir():
				subdirs = append(subdirs, p)
			case e.Type().IsRegular() && keep(p):
				files = append(files, p)
			}
		}
		// reversed so the lexically first subdirectory is popped next
		sort.Sort(sort.Reverse(sort.StringSlice(subdirs)))
		stack = append(stack, subdirs...)
	}
	return files
}

// HasExt returns a filter accepting files whose extension is in exts.
// exts are compared case-insensitively and include the leading dot.
func HasExt(exts ...string) func(string) bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return func(path string) bool {
		return set[strings.ToLower(filepath.Ext(path))]
	}
}
