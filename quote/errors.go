package quote

import (
	"errors"
	"fmt"
)

type FailureKind int

const (
	ResolutionMiss FailureKind = iota + 1
	PermissionDenied
	ChannelTypeMismatch
	GuildMismatch
	TransportFailure
	PersistenceFailure
)

func (k FailureKind) String() string {
	switch k {
	case ResolutionMiss:
		return "ResolutionMiss"
	case PermissionDenied:
		return "PermissionDenied"
	case ChannelTypeMismatch:
		return "ChannelTypeMismatch"
	case GuildMismatch:
		return "GuildMismatch"
	case TransportFailure:
		return "TransportFailure"
	case PersistenceFailure:
		return "PersistenceFailure"
	}
	return "Unknown"
}

// Silent reports whether the failure is an expected outcome that leaves the
// triggering message untouched.
func (k FailureKind) Silent() bool {
	return k != TransportFailure && k != PersistenceFailure
}

// Failure is the error returned by every core operation.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
	// ContentLost is set when the soliciting message was already deleted
	// and nothing replaced it.
	ContentLost bool
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(kind FailureKind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind of err. Errors that are not a Failure
// count as transport failures.
func KindOf(err error) FailureKind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return TransportFailure
}
