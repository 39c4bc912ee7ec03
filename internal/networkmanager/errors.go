package networkmanager

import "fmt"

// Kind classifies a Facade-level error the way spec.md §7 names them, so
// the IPC layer can serialize it to JSON without string-matching
// errors.Is — adapted from maxdollinger-walk.io/pkg/network/errors.go's
// sentinel-error block into a Kind-tagged struct.
type Kind string

const (
	KindNone         Kind = ""
	KindNotReady     Kind = "not_ready"
	KindAlready      Kind = "already"
	KindParamInvalid Kind = "param_invalid"
	KindFailed       Kind = "failed"
)

// Error is the error type every Facade operation returns.
type Error struct {
	Kind Kind
	Msg  string
}

func NewError(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

// Sentinel instances for callers that just need the Kind, not a custom
// message.
var (
	ErrNotReady = NewError(KindNotReady, "facade is not set up")
	ErrAlready  = NewError(KindAlready, "already set up")
)
