package main

import (
	"fmt"
	"os"

	"github.com/lus-lang/lus/internal/bundle"
	"github.com/lus-lang/lus/internal/config"
	"github.com/lus-lang/lus/internal/pledge"
	"github.com/lus-lang/lus/internal/runtimestate"
	"github.com/spf13/cobra"
)

// newRunCommand is the explicit `run` subcommand spec.md §6 lists
// alongside `format`; the root command's own RunE implements the same
// behavior as the default when no subcommand is named.
func newRunCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [script] [args...]",
		Short:         "Run a script (default command)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(flags, args)
		},
	}
	return cmd
}

// runBundle runs the entrypoint packaged in a standalone bundle detected
// at process start, with the bundle's own preserved args ahead of any
// args the OS passed through on the command line.
func runBundle(b *bundle.Bundle) int {
	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)

	st := runtimestate.New(bundleLoader{b: b})
	st.Pledges.RegisterGranter("fs", pledge.FSGranter)
	for _, spec := range cfg.Pledge.Defaults {
		st.Pledges.Apply(joinPledgeSpec(spec.Name, spec.Value))
	}
	defer st.Teardown()

	if err := st.EnsureInit(); err != nil {
		fmt.Fprintf(os.Stderr, "lus: starting scheduler: %v\n", err)
		return exitRuntime
	}

	args := append(append([]string(nil), b.Index.Args...), os.Args[1:]...)
	if _, err := st.RunFile(b.Index.Entrypoint, toAnySlice(args)); err != nil {
		fmt.Fprintf(os.Stderr, "lus: %v\n", err)
		return exitRuntime
	}
	return exitOK
}
