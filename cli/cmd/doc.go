// Package cmd implements the livexpr subcommands.
//
// Every command evaluates against a user scope whose base is the builtin
// scope. The user scope is seeded from YAML variable files (--vars) and
// single assignments (--set name=expr), see [WithVars].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
