// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "fmt"

// ErrProtocol reports a malformed frame, a bad status code, or a payload of
// the wrong type at the codec boundary. Per protocol design, malformed
// inbound frames from the network are dropped silently rather than
// propagated; ErrProtocol is returned only from the codec functions that
// build a specific parse, so the caller that asked for that parse learns
// why it failed.
type ErrProtocol struct {
	Reason string
}

func (e *ErrProtocol) Error() string { return "tunnel: protocol error: " + e.Reason }

func errProtocolf(format string, v ...interface{}) error {
	return &ErrProtocol{Reason: fmt.Sprintf(format, v...)}
}
