package polling

import "github.com/genvex/tunnel/tunnel"

// Capability distinguishes the two register kinds a Data event can report
// (spec §6: "data{name,value,capability,unit}").
type Capability int

const (
	CapabilityDatapoint Capability = iota
	CapabilitySetpoint
)

func (c Capability) String() string {
	if c == CapabilitySetpoint {
		return "setpoint"
	}
	return "datapoint"
}

// EventKind discriminates the values pushed onto an Engine's event channel.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventModel
	EventData
	EventPolled
	EventError
)

// Event is one notification emitted by an Engine.
type Event struct {
	Kind       EventKind
	Name       string           // valid when Kind == EventData
	Value      float64          // valid when Kind == EventData
	Capability Capability       // valid when Kind == EventData
	Unit       string           // valid when Kind == EventData
	Model      tunnel.ModelInfo // valid when Kind == EventModel
	Err        error            // valid when Kind == EventError or EventDisconnected
}
