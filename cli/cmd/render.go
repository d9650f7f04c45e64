package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/scope"
)

// Render renders a template with embedded expressions.
type Render struct {
	Text     string        `arg:""       help:"Template text. Read from --file or stdin if omitted." optional:""`
	File     string        `             help:"Read the template from FILE."                          short:"f" type:"existingfile"`
	Start    string        `default:"{{" help:"Start marker of embedded expressions."`
	End      string        `default:"}}" help:"End marker of embedded expressions."`
	Strip    bool          `             help:"Trim trailing white space of the template."`
	Watch    bool          `             help:"Re-render when a vars file or the template changes."   short:"w"`
	Interval time.Duration `default:"100ms" help:"Minimum delay between renders while watching."`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sc, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	tmpl, err := r.template()
	if err != nil {
		return err
	}

	tmpl.Bind(sc)
	defer func() { tmpl.Unbind() }()

	if r.Watch {
		return r.watch(ctx, sc, &tmpl)
	}

	_, err = fmt.Fprintln(outputFrom(ctx), tmpl.Value())

	return err
}

// template reads and parses the template from the command line, the
// template file, or stdin, in that order of preference.
func (r *Render) template() (*lang.Interpolated, error) {
	text := r.Text

	switch {
	case r.File != "":
		data, err := os.ReadFile(r.File)
		if err != nil {
			return nil, ErrTemplate.With(slog.String("file", r.File)).Wrap(err)
		}

		text = string(data)

	case text == "":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, ErrTemplate.With(slog.String("file", stdinSource)).Wrap(err)
		}

		text = string(data)
	}

	tmpl, err := lang.NewInterpolated(text, lang.WithMarkers(r.Start, r.End))
	if err != nil {
		return nil, lang.WrapError(err).With(slog.String("command", "render"))
	}

	if r.Strip {
		tmpl = tmpl.RStrip()
	}

	return tmpl, nil
}

// watch prints the rendered template, then re-renders it whenever a change
// to a vars file or the template file leaves it dirty. File events and
// rendering run on the calling goroutine until ctx is done.
func (r *Render) watch(
	ctx context.Context,
	sc *scope.Context,
	tmpl **lang.Interpolated,
) error {
	vars := varsFrom(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer watcher.Close()

	templatePath := ""
	if r.File != "" {
		templatePath, _ = filepath.Abs(r.File)
	}

	watched := make(map[string]bool)

	for _, path := range append([]string{templatePath}, vars.Files...) {
		if path == "" || path == stdinSource {
			continue
		}

		path, _ = filepath.Abs(path)
		watched[path] = true

		// Editors often replace files by renaming, which drops a watch on the
		// file itself. Watch the directory and filter by name instead.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return ErrWatch.With(slog.String("file", path)).Wrap(err)
		}
	}

	if len(watched) == 0 {
		return ErrNothing
	}

	dirty := false
	mark := func(*event.Message) { dirty = true }
	sub := (*tmpl).Events().Sub(event.ChannelChange, mark)

	defer func() { sub.Cancel() }()

	out := outputFrom(ctx)
	limit := rate.NewLimiter(rate.Every(r.Interval), 1)

	if _, err := fmt.Fprintln(out, (*tmpl).Value()); err != nil {
		return err
	}

	log.DebugContext(ctx, "watching",
		slog.Int("files", len(watched)),
		slog.Duration("interval", r.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch failed", slog.Any("error", err))

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !watched[ev.Name] || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if err := limit.Wait(ctx); err != nil {
				return nil //nolint:nilerr
			}

			if ev.Name == templatePath {
				next, err := r.template()
				if err != nil {
					log.WarnContext(ctx, "template not reloaded", slog.Any("error", err))

					continue
				}

				sub.Cancel()
				(*tmpl).Unbind()
				*tmpl = next
				(*tmpl).Bind(sc)
				sub = (*tmpl).Events().Sub(event.ChannelChange, mark)
				dirty = true
			} else if err := vars.Reload(ctx, sc, ev.Name); err != nil {
				log.WarnContext(ctx, "vars not reloaded", slog.Any("error", err))
			}

			log.TraceContext(ctx, "file changed",
				slog.String("file", ev.Name),
				slog.Bool("dirty", dirty),
			)

			if !dirty {
				continue
			}

			dirty = false

			if _, err := fmt.Fprintln(out, (*tmpl).Value()); err != nil {
				return err
			}
		}
	}
}
