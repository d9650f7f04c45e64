// Package builtin provides the immutable base scope of host helpers that
// expressions evaluated by the command line can read: target and platform
// descriptions, user and shell, the process environment, file predicates,
// path manipulation and PATH-like list editing.
//
// Names:
//
//	target.os, target.arch    GNU-style host target
//	platform.os, platform.arch
//	hostname, user, shell, cwd(), env
//	file.exists(p), file.isdir(p), file.isregular(p), file.islink(p)
//	path.abs(p), path.cat(a, b, ...), path.rel(from, to), path.sep
//	pathlist.prefix(list, dir, ...), pathlist.prefixif(list, pred, dir, ...)
//	pathlist.join(items), pathlist.split(list), pathlist.sep
package builtin
