package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/livexpr/cli/cmd"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/pkg"
)

// CLI is the top-level command-line interface for livexpr.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit"`

	Vars []string `help:"YAML variable file(s) or '-' for stdin" placeholder:"FILE"      short:"v" type:"existingfile"`
	Set  []string `help:"Assign name=expr after loading vars"    placeholder:"NAME=EXPR" sep:"none"`

	Eval   cmd.Eval   `cmd:"" default:"withargs" help:"Evaluate expressions"`
	Render cmd.Render `cmd:""                    help:"Render a template"`
	Solve  cmd.Solve  `cmd:""                    help:"Solve an expression for a target value"`
	Fmt    cmd.Fmt    `cmd:""                    help:"Format expressions or templates"`
	AST    cmd.AST    `cmd:"" name:"ast"         help:"Print the syntax tree of an expression"`
	Check  cmd.Check  `cmd:""                    help:"Check expressions for syntax errors"`
	Repl   cmd.Repl   `cmd:""                    help:"Start an interactive session"`
	Init   cmd.Init   `cmd:""                    help:"Initialize configuration file"`
}

// Run executes the livexpr CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		"version":            pkg.Version(),
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logger flags are applied before parsing so that parse errors are
	// reported in the requested format regardless of flag position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.DefaultEnvars(pkg.EnvPrefix()),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configPath(baseConfigJSON)),
		kong.Configuration(resolve(ctx), configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithVars(ctx, cli.Vars, cli.Set)

	cli.Log.start(ctx)

	// Engine trace output (parse cache, solver) follows the CLI logger.
	lang.SetLogger(log.Default())

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
