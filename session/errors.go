package session

import "fmt"

// ErrInvalidArgument is returned by Connect when called with a nil IP or
// empty email (spec §7).
var ErrInvalidArgument = fmt.Errorf("session: invalid argument")

// ErrNotConnected is returned synchronously by ReadDatapoints, ReadSetpoints
// and WriteSetpoints when the session is not in the Connected state (spec
// §4.3, §7).
var ErrNotConnected = fmt.Errorf("session: not connected")

// ErrConnectTimeout is returned by Connect when the connect handshake does
// not complete within ConnectRetries*ConnectRetryInterval + 2s.
var ErrConnectTimeout = fmt.Errorf("session: connect timeout")

// ErrClosed is returned to callers awaiting a reply when Close drains the
// pending-request table (spec §5's permitted refinement: reject pending
// futures explicitly rather than relying solely on their timeout).
var ErrClosed = fmt.Errorf("session: closed")

// ReadTimeoutError reports that a read request's pending entry timed out
// waiting for a matching response.
type ReadTimeoutError struct{ Seq uint16 }

func (e *ReadTimeoutError) Error() string { return fmt.Sprintf("session: read timeout (seq %d)", e.Seq) }

// WriteTimeoutError reports that a write request's pending entry timed out
// waiting for a matching response.
type WriteTimeoutError struct{ Seq uint16 }

func (e *WriteTimeoutError) Error() string {
	return fmt.Sprintf("session: write timeout (seq %d)", e.Seq)
}

// SocketError wraps a transport-level failure that tears the session down.
type SocketError struct{ Cause error }

func (e *SocketError) Error() string { return fmt.Sprintf("session: socket error: %v", e.Cause) }
func (e *SocketError) Unwrap() error { return e.Cause }
