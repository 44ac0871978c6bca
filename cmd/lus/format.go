package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Formatter re-renders script source into its canonical layout. The
// actual formatting algorithm is explicitly out of scope for this
// runtime core (spec.md's stated non-goals); this interface is the seam
// a real formatter would plug into. Absent one, `format` passes source
// through unchanged, which keeps the subcommand's flags, exit codes, and
// stdin/file plumbing exercisable without it.
type Formatter interface {
	Format(src []byte) ([]byte, error)
}

// newFormatCommand implements the `format` subcommand: --check, --write,
// --stdin, --indent N.
func newFormatCommand() *cobra.Command {
	var (
		check     bool
		write     bool
		stdin     bool
		indent    int
		formatter Formatter
	)

	cmd := &cobra.Command{
		Use:           "format [file]",
		Short:         "Format a script (pass-through unless a formatter is wired in)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				src  []byte
				err  error
				path string
			)
			switch {
			case stdin || (len(args) == 1 && args[0] == "-"):
				src, err = io.ReadAll(os.Stdin)
			case len(args) == 1:
				path = args[0]
				src, err = os.ReadFile(path)
			default:
				return &usageError{msg: "lus format: no input (give a file, or pass --stdin)"}
			}
			if err != nil {
				return fmt.Errorf("lus format: %w", err)
			}

			formatted := src
			if formatter != nil {
				formatted, err = formatter.Format(src)
				if err != nil {
					return fmt.Errorf("lus format: %w", err)
				}
			}

			switch {
			case check:
				if string(formatted) != string(src) {
					lastExitCode = exitRuntime
					return fmt.Errorf("lus format: %s is not formatted", displayName(path))
				}
				return nil
			case write:
				if path == "" {
					return &usageError{msg: "lus format: --write requires a file argument"}
				}
				return os.WriteFile(path, formatted, 0o644)
			default:
				_, err := os.Stdout.Write(formatted)
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "exit non-zero if input is not already formatted")
	cmd.Flags().BoolVar(&write, "write", false, "write the formatted result back to the file")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read source from standard input")
	cmd.Flags().IntVar(&indent, "indent", 2, "indent width in spaces")
	_ = indent // consumed once a real Formatter implementation is wired in

	return cmd
}

func displayName(path string) string {
	if path == "" {
		return "<stdin>"
	}
	return path
}
