package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// oobSpace sizes the ancillary buffer for exactly one passed descriptor.
var oobSpace = unix.CmsgSpace(4)

// parseRights extracts at most one descriptor from ancillary data. An empty
// buffer yields (nil, nil): absence of a descriptor is not an error.
// Ownership of the returned file transfers to the caller; any surplus
// descriptors are closed on the spot.
func parseRights(oob []byte) (*os.File, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse control messages: %w", err)
	}
	for _, msg := range msgs {
		fds, err := unix.ParseUnixRights(&msg)
		if err != nil || len(fds) == 0 {
			continue
		}
		for _, extra := range fds[1:] {
			_ = unix.Close(extra)
		}
		return os.NewFile(uintptr(fds[0]), "halyard-fd"), nil
	}
	return nil, nil
}
