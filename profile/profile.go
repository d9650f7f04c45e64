package profile

// Stopper stops a running profiler and flushes its output.
type Stopper interface{ Stop() }

// Profiler configures a profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty or unsupported mode disables
	// profiling.
	Mode string
	// Path is the output directory. Empty selects the working directory.
	Path string
	// Quiet suppresses the profiler's own log output.
	Quiet bool
}

// Option modifies a [Profiler].
type Option func(*Profiler)

// WithMode sets the profiling mode.
func WithMode(mode string) Option { return func(p *Profiler) { p.Mode = mode } }

// WithPath sets the output directory.
func WithPath(path string) Option { return func(p *Profiler) { p.Path = path } }

// WithQuiet suppresses the profiler's own log output.
func WithQuiet(quiet bool) Option { return func(p *Profiler) { p.Quiet = quiet } }

// New returns a Profiler with opts applied.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// Start starts profiling. The returned Stopper is always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
