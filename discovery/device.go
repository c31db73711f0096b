package discovery

import "github.com/genvex/tunnel/tunnel"

// Device is one discovery hit: a device id paired with the address it
// replied from.
type Device struct {
	DeviceID string
	Addr     tunnel.DeviceAddr
}
