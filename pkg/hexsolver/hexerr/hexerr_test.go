package hexerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCodeMapping(t *testing.T) {
	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitUsage, ExitCode(&ParseError{Detail: "bad token"}))
	require.Equal(t, ExitUsage, ExitCode(&UsageError{Detail: "missing file"}))
	require.Equal(t, ExitUsage, ExitCode(&SafetyError{RuleID: 1, Var: "X"}))
	require.Equal(t, ExitUsage, ExitCode(&StratificationError{ModuleAtom: "q"}))
	require.Equal(t, ExitPlugin, ExitCode(&PluginError{ExternalAtom: "ext"}))
	require.Equal(t, ExitInvariant, ExitCode(&InvariantError{Detail: "watch invariant broken"}))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := &PluginError{ExternalAtom: "ext", Cause: nil}
	wrapped := Wrap(cause, "evaluating external atoms")
	require.Contains(t, wrapped.Error(), "evaluating external atoms")
	require.ErrorIs(t, wrapped, cause)
}
