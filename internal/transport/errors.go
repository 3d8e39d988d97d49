package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrAcceptTimeout reports that the peer did not dial back within the
	// bring-up deadline.
	ErrAcceptTimeout = errors.New("peer connect timeout")

	// ErrLinkClosed reports that the link was torn down while an
	// operation was waiting on it.
	ErrLinkClosed = errors.New("link closed")

	// ErrLinkBroken reports that an earlier fatal transport error has
	// permanently broken the link.
	ErrLinkBroken = errors.New("link broken by fatal transport error")
)

// FatalError marks a violation of the framing or protocol contract. The
// stream can no longer be trusted for any future message, so the owning
// Conn refuses all further traffic once one has occurred.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal transport error during %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
