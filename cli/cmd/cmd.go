package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type outputKey struct{}

// WithOutput returns a new context.Context directing command output to w.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// outputFrom returns the writer stored by WithOutput, or os.Stdout.
func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}

	return os.Stdout
}

type varsKey struct{}

// WithVars returns a new context.Context carrying the sources of the user
// scope: YAML variable files and name=expr assignments.
//
// Files are deduplicated by resolving symlinks and comparing device/inode
// pairs. All occurrences of "-" are replaced with a single stdin entry placed
// last. Assignments are applied after every file, in order.
func WithVars(ctx context.Context, files, set []string) context.Context {
	return context.WithValue(ctx, varsKey{}, Vars{
		Files: uniqueFiles(files),
		Set:   set,
	})
}

// varsFrom retrieves the Vars stored in ctx by WithVars.
func varsFrom(ctx context.Context) Vars {
	v, _ := ctx.Value(varsKey{}).(Vars)

	return v
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// uniqueFiles returns the resolved paths of sources with duplicates and
// unreadable entries removed, and "-" last if stdin was named.
func uniqueFiles(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}

	paths := make([]string, 0, len(sources))
	seen := make(map[fileKey]struct{})

	var stdinKey fileKey

	stdinInfo, err := os.Stdin.Stat()
	if err == nil {
		stdinKey, _ = makeFileKey(stdinInfo)
	}

	for _, src := range sources {
		if src == stdinSource {
			seen[stdinKey] = struct{}{}

			continue
		}

		path, ok := resolveUnique(src, seen)
		if !ok {
			continue
		}

		paths = append(paths, path)
	}

	// Stdin may have been included via "-" or as a named file.
	// Both of which will be represented by stdinKey in seen.
	if _, ok := seen[stdinKey]; ok {
		paths = append(paths, stdinSource)
	}

	if len(paths) == 0 {
		return nil
	}

	return paths
}

// resolveUnique resolves path to an absolute path without symlinks and
// reports false if the file was seen before or cannot be stat'ed.
func resolveUnique(path string, seen map[fileKey]struct{}) (string, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", false
	}

	key, ok := makeFileKey(info)
	if !ok {
		return "", false
	}

	if _, exists := seen[key]; exists {
		return "", false
	}

	seen[key] = struct{}{}

	return resolved, true
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}
