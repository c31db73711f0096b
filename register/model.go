package register

import "github.com/genvex/tunnel/tunnel"

// Model is the capability set the polling engine needs from a register
// catalog (spec §9: "express this as a capability set ... prefer one
// implementation parameterized by two constant tables over two code
// paths"). *Catalog implements Model directly; both NewOptima270 and
// NewOptima251 plug into the same polling.Engine through this interface.
type Model interface {
	DatapointRequestList() []tunnel.RegisterAddr
	SetpointRequestList() []tunnel.RegisterAddr
	ReadableSetpoints() []Setpoint
	Datapoints() []Datapoint
	Setpoints() []Setpoint
	ConvertDatapointValue(raw int16, d Datapoint) float64
	ConvertSetpointValue(raw uint16, s Setpoint) float64
	ToRawSetpointValue(display float64, s Setpoint) int32
	SetpointByName(name string) (Setpoint, bool)
}

// Datapoints returns the catalog's datapoint descriptors in catalog order.
func (c *Catalog) Datapoints() []Datapoint { return c.DatapointList }

// Setpoints returns the catalog's setpoint descriptors in catalog order.
func (c *Catalog) Setpoints() []Setpoint { return c.SetpointList }

var _ Model = (*Catalog)(nil)
