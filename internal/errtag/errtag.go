// Package errtag provides the small set of typed errors the assembly loader
// returns, wrapped with github.com/pkg/errors so a cause can be recovered
// without string-matching a diagnostic message.
package errtag

import "github.com/pkg/errors"

// Kind classifies a failure the way the checker's diagnostic taxonomy does.
type Kind int

const (
	// KindUnresolvedAssembly marks a reference that could not be located by
	// any resolver strategy.
	KindUnresolvedAssembly Kind = iota
	// KindUnresolvedType marks a type reference with no matching TypeDef.
	KindUnresolvedType
	// KindUnresolvedMember marks a member reference with no matching MemberDef.
	KindUnresolvedMember
	// KindLoadFailure marks a file that claims to carry managed metadata but
	// failed to parse.
	KindLoadFailure
	// KindArgument marks a malformed command line.
	KindArgument
)

// Tagged is an error annotated with a Kind, produced by New or Wrap.
type Tagged struct {
	kind Kind
	err  error
}

// New returns a Tagged error with the given kind and message.
func New(kind Kind, msg string) *Tagged {
	return &Tagged{kind: kind, err: errors.New(msg)}
}

// Wrap annotates err with kind, preserving it as the cause.
func Wrap(kind Kind, err error, msg string) *Tagged {
	if err == nil {
		return nil
	}
	return &Tagged{kind: kind, err: errors.Wrap(err, msg)}
}

func (t *Tagged) Error() string { return t.err.Error() }

// Unwrap lets errors.As/errors.Is and errors.Cause see through a Tagged.
func (t *Tagged) Unwrap() error { return t.err }

// Cause is the hook errors.Cause follows.
func (t *Tagged) Cause() error { return t.err }

// Kind returns the error's category.
func (t *Tagged) Kind() Kind { return t.kind }

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Tagged, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var t *Tagged
	if errors.As(err, &t) {
		return t.kind, true
	}
	return 0, false
}

// Cause unwraps err down to its root cause, mirroring errors.Cause.
func Cause(err error) error {
	return errors.Cause(err)
}
