package main

import (
	"io"

	"github.com/lus-lang/lus/internal/config"
	"github.com/lus-lang/lus/internal/pledge"
	"github.com/lus-lang/lus/internal/runtimestate"
)

// newRuntimeState builds a fresh runtime state with the fs granter
// registered and every -P/--pledge flag applied in order, matching the
// script-side `pledge(spec...)` semantics (a leading "~" rejects).
func newRuntimeState(cfg *config.Config, flags *cliFlags) *runtimestate.State {
	st := runtimestate.New(fileLoader{})

	st.Pledges.RegisterGranter("fs", pledge.FSGranter)

	for _, spec := range cfg.Pledge.Defaults {
		st.Pledges.Apply(joinPledgeSpec(spec.Name, spec.Value))
	}
	for _, spec := range flags.pledges {
		st.Pledges.Apply(spec)
	}
	return st
}

func joinPledgeSpec(name, value string) string {
	if value == "" {
		return name
	}
	return name + "=" + value
}

func toAnySlice(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
