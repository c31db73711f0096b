// Package register implements the Genvex register catalog and value
// conversion layer: the ordered, named register tables for the Optima 270
// and Optima 251 controller families, and the raw<->display conversion
// shared by both (spec §3, §6.5).
//
// Both catalogs are data, not code, parameterized over one Catalog
// implementation rather than duplicated per controller family (spec §9).
package register

import (
	"math"

	"github.com/genvex/tunnel/tunnel"
)

// Datapoint describes one read-only register.
type Datapoint struct {
	Name    string
	Address uint32
	Divider float64
	Offset  float64
	Unit    string
}

// Setpoint describes one read/write register. ReadAddress and WriteAddress
// coincide on some controller families (e.g. Optima 251) and differ on
// others (Optima 270).
type Setpoint struct {
	Name         string
	ReadAddress  uint32
	WriteAddress uint32
	Divider      float64
	Offset       float64
	Unit         string
	Min, Max     int32
	WriteOnly    bool
}

// Catalog is the ordered register table for one controller family. Field
// order is significant: responses return values positionally (spec §3).
type Catalog struct {
	Model      string
	DatapointList []Datapoint
	SetpointList  []Setpoint
}

// DatapointByName looks up a datapoint descriptor by its symbolic key.
func (c *Catalog) DatapointByName(name string) (Datapoint, bool) {
	for _, d := range c.DatapointList {
		if d.Name == name {
			return d, true
		}
	}
	return Datapoint{}, false
}

// SetpointByName looks up a setpoint descriptor by its symbolic key.
func (c *Catalog) SetpointByName(name string) (Setpoint, bool) {
	for _, s := range c.SetpointList {
		if s.Name == name {
			return s, true
		}
	}
	return Setpoint{}, false
}

// DatapointRequestList returns the catalog's datapoints as a
// tunnel.RegisterAddr list in catalog order, ready to hand to
// tunnel.BuildDatapointReadCommand.
func (c *Catalog) DatapointRequestList() []tunnel.RegisterAddr {
	out := make([]tunnel.RegisterAddr, len(c.DatapointList))
	for i, d := range c.DatapointList {
		out[i] = tunnel.RegisterAddr{Obj: 0, Address: d.Address}
	}
	return out
}

// SetpointRequestList returns the catalog's readable setpoints (excluding
// write-only ones such as a filter-reset register) as a tunnel.RegisterAddr
// list in catalog order.
func (c *Catalog) SetpointRequestList() []tunnel.RegisterAddr {
	out := make([]tunnel.RegisterAddr, 0, len(c.SetpointList))
	for _, s := range c.SetpointList {
		if s.WriteOnly {
			continue
		}
		out = append(out, tunnel.RegisterAddr{Obj: 0, Address: s.ReadAddress})
	}
	return out
}

// readableSetpoints returns the subset of Setpoints that SetpointRequestList
// sends, in the same order, so poll responses can be re-associated by index.
func (c *Catalog) readableSetpoints() []Setpoint {
	out := make([]Setpoint, 0, len(c.SetpointList))
	for _, s := range c.SetpointList {
		if !s.WriteOnly {
			out = append(out, s)
		}
	}
	return out
}

// ReadableSetpoints exposes readableSetpoints for callers outside this
// package (the polling engine) that need to re-associate a setpoint read
// response with its originating descriptor by index.
func (c *Catalog) ReadableSetpoints() []Setpoint { return c.readableSetpoints() }

func effectiveDivider(divider float64) float64 {
	if divider == 0 {
		return 1
	}
	return divider
}

// ConvertDatapointValue converts a raw datapoint reading to its display
// value: display = (raw + offset) / divider.
func (c *Catalog) ConvertDatapointValue(raw int16, d Datapoint) float64 {
	return (float64(raw) + d.Offset) / effectiveDivider(d.Divider)
}

// ConvertSetpointValue converts a raw setpoint reading to its display
// value using the same formula as datapoints.
func (c *Catalog) ConvertSetpointValue(raw uint16, s Setpoint) float64 {
	return (float64(raw) + s.Offset) / effectiveDivider(s.Divider)
}

// ToRawSetpointValue converts a display value back to its raw encoding:
// raw = round(display * divider) - offset.
func (c *Catalog) ToRawSetpointValue(display float64, s Setpoint) int32 {
	raw := math.Round(display*effectiveDivider(s.Divider)) - s.Offset
	return int32(raw)
}
