// Package hexerr defines the error taxonomy a HEX/MLP solve can surface
// and the process exit codes that accompany each kind.
package hexerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes as specified by the CLI surface.
const (
	ExitOK = 0
	ExitUsage = 1
	ExitPlugin = 2
	ExitInvariant = 99
)

// ParseError reports a surface-syntax violation. Parsing itself is an
// external collaborator; the solver only needs to be able to carry and
// report one of these if a caller hands it a malformed ground program.
type ParseError struct {
	Detail string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Detail, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// UsageError reports bad CLI flags or missing input.
type UsageError struct {
	Detail string
}

func (e *UsageError) Error() string { return fmt.Sprintf("usage: %s", e.Detail) }

// SafetyError reports a rule variable that appears only in negative body
// positions. Safety analysis itself is out of scope; this
// type exists so the solver can reject a ground program it is handed that
// violates the invariant, with the offending rule named.
type SafetyError struct {
	RuleID int
	Var string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("rule %d: variable %q is unsafe (appears only in negative body positions)", e.RuleID, e.Var)
}

// StratificationError reports that smallest_ill found no candidate while
// non-ordinary rules remain.
type StratificationError struct {
	ModuleAtom string
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("program is not i-stratified: no smallest independent lower layer exists for module atom %s", e.ModuleAtom)
}

// PluginError reports a plugin that returned a malformed tuple or raised
// during retrieve.
type PluginError struct {
	ExternalAtom string
	Cause error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin error evaluating %s: %v", e.ExternalAtom, e.Cause)
}

func (e *PluginError) Unwrap() error { return e.Cause }

// InvariantError reports failure of a debug-level invariant (watch
// invariant, reason-chain invariant, and so on). It is always fatal.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated: %s", e.Detail)
}

// Wrap attaches a message to an underlying cause without losing it,
// matching the repo-wide github.com/pkg/errors convention.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// ExitCode maps an error produced anywhere in this module to its
// process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case asParse(err), asUsage(err), asSafety(err), asStratification(err):
		return ExitUsage
	case asPlugin(err):
		return ExitPlugin
	case asInvariant(err):
		return ExitInvariant
	default:
		return ExitUsage
	}
}

func asParse(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

func asUsage(err error) bool {
	var e *UsageError
	return errors.As(err, &e)
}

func asSafety(err error) bool {
	var e *SafetyError
	return errors.As(err, &e)
}

func asStratification(err error) bool {
	var e *StratificationError
	return errors.As(err, &e)
}

func asPlugin(err error) bool {
	var e *PluginError
	return errors.As(err, &e)
}

func asInvariant(err error) bool {
	var e *InvariantError
	return errors.As(err, &e)
}
