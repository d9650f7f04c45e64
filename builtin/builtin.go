package builtin

import (
	"bufio"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

var (
	valuesOnce sync.Once
	values     map[string]any
)

// Join and Split convert between a path list and its elements. They are
// registered as inverses, so an expression like pathlist.join(dirs) can be
// solved for dirs.
var (
	Join  = lang.NewFunction("pathlist.join", pathlistJoin)
	Split = lang.NewFunction("pathlist.split", pathlistSplit)
)

func init() { lang.RegisterInverse(Join, Split) }

// load returns a copy of the process-wide builtin values, computed once.
func load() map[string]any {
	valuesOnce.Do(func() {
		values = map[string]any{
			"target":   hostTarget(),
			"platform": hostPlatform(),
			"hostname": hostname(),
			"user":     currentUser(),
			"shell":    shell(),
			"cwd":      cwd,
			"file": map[string]any{
				"exists":    fileExists,
				"isdir":     fileIsDir,
				"isregular": fileIsRegular,
				"islink":    fileIsSymlink,
			},
			"path": map[string]any{
				"abs": pathAbs,
				"cat": filepath.Join,
				"rel": pathRel,
				"sep": string(os.PathSeparator),
			},
			"pathlist": map[string]any{
				"prefix":   pathlistPrefix,
				"prefixif": pathlistPrefixIf,
				"join":     Join,
				"split":    Split,
				"sep":      string(os.PathListSeparator),
			},
		}
	})

	return maps.Clone(values)
}

// Scope returns a new context binding every builtin name immutably, plus
// env, a dictionary of the process environment. Use it as the base of a
// user context.
func Scope() *scope.Context {
	ctx := scope.New(nil, nil)

	for name, v := range load() {
		_ = ctx.SetImmutable(name, v)
	}

	_ = ctx.SetImmutable("env", Environ(nil))

	return ctx
}

// Names returns the sorted top-level builtin names.
func Names() []string {
	return slices.Sorted(maps.Keys(Scope().Map()))
}

// Lookup returns the sorted keys of the dictionary found by following the
// dot-separated path from the builtin scope, or nil if there is none.
// An empty path lists the top-level names.
func Lookup(path string) []string {
	if path == "" {
		return Names()
	}

	var cur any = Scope()

	for seg := range strings.SplitSeq(path, ".") {
		switch c := cur.(type) {
		case *scope.Context:
			cur, _ = c.Get(seg)
		case *scope.Dict:
			cur, _ = c.Get(seg)
		default:
			return nil
		}
	}

	if d, ok := cur.(*scope.Dict); ok {
		return d.Keys()
	}

	return nil
}

// Environ converts "KEY=VALUE" entries to a map. A nil list reads the
// process environment.
func Environ(list []string) map[string]any {
	if list == nil {
		list = os.Environ()
	}

	env := make(map[string]any, len(list))

	for _, entry := range list {
		if key, value, ok := strings.Cut(entry, "="); ok {
			env[key] = value
		}
	}

	return env
}

// Target names an operating system and instruction set architecture.
// Its attributes are os and arch.
type Target struct {
	OS   string
	Arch string
}

// Attr implements [lang.Attributer].
func (t Target) Attr(name string) (any, bool) {
	switch name {
	case "os":
		return t.OS, true
	case "arch":
		return t.Arch, true
	}

	return nil, false
}

func (t Target) String() string { return t.Arch + "-" + t.OS }

// hostTarget returns the host target using GNU GCC/LLVM naming conventions.
func hostTarget() Target {
	t := hostPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm":
		if arm, ok := os.LookupEnv("GOARM"); ok {
			arm, _, _ = strings.Cut(arm, ",")
			switch arm = strings.TrimSpace(arm); arm {
			case "5", "6", "7":
				t.Arch = "armv" + arm
			}
		}
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

// hostPlatform returns the host target using Go conventions.
func hostPlatform() Target {
	pick := func(fallback string, keys ...string) string {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok {
				return v
			}
		}

		return fallback
	}

	return Target{
		OS:   pick(runtime.GOOS, "GOHOSTOS", "GOOS"),
		Arch: pick(runtime.GOARCH, "GOHOSTARCH", "GOARCH"),
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}

	return h
}

func currentUser() *user.User {
	u, err := user.Current()
	if err != nil {
		return nil
	}

	return u
}

func shell() string {
	if sh, ok := os.LookupEnv("SHELL"); ok {
		return sh
	}

	u := currentUser()
	if u == nil || u.Username == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if e := strings.Split(s.Text(), ":"); len(e) > 6 && e[0] == u.Username {
			return e[6]
		}
	}

	return ""
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return dir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func fileIsSymlink(path string) bool {
	info, err := os.Lstat(path)

	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return filepath.Join(from, to)
	}

	return p
}

// pathlistPrefix moves prefix to the front of the path list, removing
// duplicates.
func pathlistPrefix(list string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// pathlistPrefixIf is pathlistPrefix keeping only elements accepted by
// predicate.
func pathlistPrefixIf(list string, predicate func(string) bool, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(predicate),
	).String()
}

func pathlistJoin(items []string) string {
	return strings.Join(items, string(os.PathListSeparator))
}

func pathlistSplit(list string) []any {
	if list == "" {
		return []any{}
	}

	parts := strings.Split(list, string(os.PathListSeparator))
	out := make([]any, len(parts))

	for i, p := range parts {
		out[i] = p
	}

	return out
}
