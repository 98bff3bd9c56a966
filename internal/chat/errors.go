package chat

import (
	"errors"
	"fmt"
)

// Kind classifies platform failures so callers can decide whether to self-heal.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "other"
	}
}

// Error is returned by every Client operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chat %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err; unknown errors are KindOther.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindOther
}

func IsNotFound(err error) bool  { return err != nil && KindOf(err) == KindNotFound }
func IsForbidden(err error) bool { return err != nil && KindOf(err) == KindForbidden }

// Gone reports failures meaning the target chat or message is unreachable for good.
func Gone(err error) bool { return IsNotFound(err) || IsForbidden(err) }
