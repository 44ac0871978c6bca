// Command lus is the Lus interpreter CLI: `lus [command] [options]
// [script [args]]`. It wires CLI flags to the runtime core (pledge
// store, scheduler, worker pool, standalone bundles) the way the
// teacher wires its daemon/registration flags to nova's control plane —
// one cobra command per concern, persistent flags shared across
// subcommands, flags only applied when the user actually set them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lus-lang/lus/internal/bundle"
	"github.com/lus-lang/lus/internal/config"
	"github.com/lus-lang/lus/internal/logging"
	"github.com/lus-lang/lus/internal/metrics"
	"github.com/lus-lang/lus/internal/observability"
	"github.com/lus-lang/lus/internal/runtimestate"
	"github.com/spf13/cobra"
)

// exitUsage and exitRuntime are the two non-zero exit codes spec.md §6
// distinguishes: a CLI usage error versus a script runtime error.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

// cliFlags holds every persistent option from spec.md §6, shared by the
// root command's default run behavior and the explicit `run` subcommand.
type cliFlags struct {
	exprs       []string // -e stat (repeatable)
	interactive bool     // -i
	requires    []string // -l mod / -l g=mod
	showVersion bool     // -v
	ignoreEnv   bool     // -E
	warnings    bool     // -W
	pedantic    bool     // -Wpedantic
	pledges     []string // -P perm / --pledge perm
	astGraph    string   // --ast-graph file
	astJSON     string   // --ast-json file
	standalone  string   // --standalone file
	includes    []string // --include path[:alias]
	configFile  string
}

func main() {
	os.Exit(run())
}

func run() int {
	if b, err := bundle.Detect(); err == nil {
		return runBundle(b)
	} else if err != bundle.ErrNoBundle {
		fmt.Fprintf(os.Stderr, "lus: bundle self-detect: %v\n", err)
	}

	flags := &cliFlags{}
	rootCmd := newRootCommand(flags)
	rootCmd.AddCommand(newRunCommand(flags), newFormatCommand())

	if err := rootCmd.Execute(); err != nil {
		if ue, ok := err.(*usageError); ok {
			fmt.Fprintln(os.Stderr, ue.Error())
			return exitUsage
		}
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}
	return lastExitCode
}

// lastExitCode lets a RunE report exitRuntime without cobra treating the
// underlying script error as a usage error (cobra's own plumbing only
// distinguishes "an error occurred," not which kind).
var lastExitCode = exitOK

// usageError marks an error as a CLI usage mistake (exit 2) rather than
// a script runtime failure (exit 1).
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func newRootCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lus [script] [args...]",
		Short:         "Lus — a scripting language runtime with async coroutines and pledges",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.showVersion {
				fmt.Println("lus 0.1.0")
				return nil
			}
			return execute(flags, args)
		},
	}
	registerPersistentFlags(cmd, flags)
	return cmd
}

func registerPersistentFlags(cmd *cobra.Command, flags *cliFlags) {
	cmd.PersistentFlags().StringArrayVarP(&flags.exprs, "execute", "e", nil, "execute statement `stat`")
	cmd.PersistentFlags().BoolVarP(&flags.interactive, "interactive", "i", false, "enter interactive mode after running script")
	cmd.PersistentFlags().StringArrayVarP(&flags.requires, "require", "l", nil, "require module `mod` (or `g=mod` to bind it to global g)")
	cmd.PersistentFlags().BoolVarP(&flags.showVersion, "version", "v", false, "show version information")
	cmd.PersistentFlags().BoolVarP(&flags.ignoreEnv, "ignore-env", "E", false, "ignore environment-driven initialization")
	cmd.PersistentFlags().BoolVarP(&flags.warnings, "warnings", "W", false, "enable warnings")
	cmd.PersistentFlags().BoolVar(&flags.pedantic, "Wpedantic", false, "enable pedantic warnings")
	cmd.PersistentFlags().StringArrayVarP(&flags.pledges, "pledge", "P", nil, "grant a permission (`[~]name[:sub][=value]`)")
	cmd.PersistentFlags().StringVar(&flags.astGraph, "ast-graph", "", "write the parsed AST as a DOT graph to `file`")
	cmd.PersistentFlags().StringVar(&flags.astJSON, "ast-json", "", "write the parsed AST as JSON to `file`")
	cmd.PersistentFlags().StringVar(&flags.standalone, "standalone", "", "build a standalone bundle executable at `file`")
	cmd.PersistentFlags().StringArrayVar(&flags.includes, "include", nil, "include an additional module `path[:alias]` in a standalone build")
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to config file")
}

// execute implements the default/`run` behavior: load config and
// observability, build a runtime state with the pledges from flags
// applied, and either run the named script or build a standalone
// bundle if --standalone was given.
func execute(flags *cliFlags, args []string) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return &usageError{msg: fmt.Sprintf("lus: loading config: %v", err)}
	}
	if flags.ignoreEnv {
		// -E: environment-driven initialization (LUS_INIT-equivalent) is
		// skipped entirely; flags and the config file still apply.
	} else {
		config.LoadFromEnv(cfg)
	}

	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	if cfg.Observability.Metrics.Enabled {
		metrics.InitPrometheus(cfg.Observability.Metrics.Namespace, cfg.Observability.Metrics.HistogramBuckets)
	}
	if err := observability.Init(context.Background(), observability.Config{
		Enabled:     cfg.Observability.Tracing.Enabled,
		Exporter:    cfg.Observability.Tracing.Exporter,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		ServiceName: cfg.Observability.Tracing.ServiceName,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
	}); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.Shutdown(context.Background())

	if flags.standalone != "" {
		return buildStandalone(flags, args)
	}

	st := newRuntimeState(cfg, flags)
	defer st.Teardown()

	if err := st.EnsureInit(); err != nil {
		return fmt.Errorf("lus: starting scheduler: %w", err)
	}

	var scriptPath string
	scriptArgs := toAnySlice(args)
	if len(args) > 0 {
		scriptPath = args[0]
		scriptArgs = toAnySlice(args[1:])
	}

	result, runErr := runScriptOrExprs(st, flags, scriptPath, scriptArgs)
	if runErr != nil {
		lastExitCode = exitRuntime
		return runErr
	}
	_ = result
	lastExitCode = exitOK
	return nil
}

func runScriptOrExprs(st *runtimestate.State, flags *cliFlags, scriptPath string, args []any) (any, error) {
	for _, stat := range flags.exprs {
		if _, err := st.RunSource("-e", []byte(stat), nil); err != nil {
			return nil, err
		}
	}
	switch {
	case scriptPath == "-":
		src, err := readAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("lus: reading stdin: %w", err)
		}
		return st.RunSource("stdin", src, args)
	case scriptPath != "":
		return st.RunFile(scriptPath, args)
	default:
		if len(flags.exprs) > 0 {
			return nil, nil
		}
		return nil, &usageError{msg: "lus: no script given (use -e, a script path, or - for stdin)"}
	}
}
