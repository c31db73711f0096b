package tunnel

import "net"

// DeviceAddr identifies one tunnel-protocol peer: remote IPv4 address, UDP
// port (default 5570) and the device's opaque ASCII id (spec §3).
type DeviceAddr struct {
	IP       net.IP
	Port     uint16
	DeviceID string
}

// UDPAddr resolves the device address to a *net.UDPAddr, defaulting Port to
// DefaultPort when unset.
func (d DeviceAddr) UDPAddr() *net.UDPAddr {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return &net.UDPAddr{IP: d.IP, Port: int(port)}
}
