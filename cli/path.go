package cli

import (
	"os"
	"path/filepath"

	"github.com/ardnew/livexpr/pkg"
)

// Base names of the configuration files read from the configuration
// directory. The JSON form is read first; the YAML form overrides it.
const (
	baseConfig     = "config.yaml"
	baseConfigJSON = "config.json"
)

// defaultDirMode is the permission mode of created directories.
var defaultDirMode os.FileMode = 0o700

// configPath returns the path formed by joining the configuration directory
// with elem. With no elements it is the configuration directory itself.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
