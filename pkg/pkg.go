// Package pkg holds the identity of the livexpr module.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the semantic version embedded at build time.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the command name. It also names the per-user configuration
	// and cache directories.
	Name = "livexpr"
	// Description summarizes the command in help output.
	Description = "Reactive expression evaluator and template renderer"
)

// AuthorInfo is an author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary authors of the project.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
