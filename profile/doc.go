// Package profile provides optional runtime profiling through
// [github.com/pkg/profile].
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	livexpr --pprof-mode cpu eval 'sum([x * 2 for x in xs])' --vars vars.yaml
//	go tool pprof -http=: ~/.cache/livexpr/pprof/cpu.pprof
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// [Stopper].
//
// The supported modes are allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread and trace. Profile files are named after their mode
// (cpu.pprof, mem.pprof) inside [Profiler] Path.
//
// With the tag, the package also imports [net/http/pprof], registering its
// handlers on [net/http.DefaultServeMux] for programs that serve it.
package profile

// Tag is the build tag required to enable profiling.
const Tag = "pprof"
