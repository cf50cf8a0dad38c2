// Package uploads collects local files referenced on the command line into
// prompt file references. Patterns support recursive ** globs.
package uploads

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/delver-ai/delver/internal/protocol"
)

const (
	// MaxFileBytes bounds the content of a single file reference. Larger
	// files are truncated, not rejected; the prompt notes the truncation.
	MaxFileBytes = 64 * 1024

	// MaxFiles bounds how many files one run may include.
	MaxFiles = 16
)

// Collect resolves glob patterns to file references. Directories and binary
// files are skipped; oversized files are truncated to MaxFileBytes. Matches
// are deduplicated across patterns and returned in sorted path order.
func Collect(patterns []string) ([]protocol.UploadedFile, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	var files []protocol.UploadedFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		if isBinary(data) {
			slog.Warn("skipping binary file", "path", path)
			continue
		}

		if len(data) > MaxFileBytes {
			data = append(data[:MaxFileBytes], []byte("\n[truncated]")...)
			slog.Warn("truncating oversized file", "path", path, "size", info.Size())
		}

		files = append(files, protocol.UploadedFile{
			Name:    path,
			Content: string(data),
		})
		if len(files) > MaxFiles {
			return nil, fmt.Errorf("too many files matched (max %d)", MaxFiles)
		}
	}

	return files, nil
}

// isBinary reports whether the content looks binary. A NUL byte in the first
// 8000 bytes is the same heuristic git uses.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
