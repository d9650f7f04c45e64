package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
)

// Prefix returns the base name of the running executable, which names the
// configuration and cache directories. The dlv default output
// "__debug_binNNN" maps to [Name] and leading dots are removed.
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(func() string {
	id := os.Args[0]
	if exe, err := os.Executable(); err == nil {
		id = exe
	}

	return normalizePrefix(id)
})

var (
	debugBin   = regexp.MustCompile(`^__debug_bin\d*$`)
	leadingDot = regexp.MustCompile(`^\.+`)
)

func normalizePrefix(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = debugBin.ReplaceAllString(base, Name)
	base = leadingDot.ReplaceAllString(base, "")

	if base == "" {
		return Name
	}

	return base
}

// EnvPrefix returns the prefix of environment variables read by the
// command line, in SCREAMING_SNAKE_CASE. Flag names are joined to it with an
// underscore, as in LIVEXPR_LOG_LEVEL.
func EnvPrefix() string { return strcase.ToScreamingSnake(Prefix()) }

// ConfigDir returns the per-user configuration directory.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// CacheDir returns the per-user directory for transient files.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// userDir joins [Prefix] to the directory returned by sys, falling back to
// fallback below the home directory, then to the working directory.
func userDir(sys func() (string, error), fallback string) string {
	dir, err := sys()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, fallback)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}
