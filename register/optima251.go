package register

// NewOptima251 returns the register catalog for the Genvex Optima 251
// controller: read and write addresses coincide for every setpoint, fan
// stage range 0-4, and FILTER_RESET is write-only and therefore skipped by
// Catalog.SetpointRequestList (spec §6).
func NewOptima251() *Catalog {
	return &Catalog{
		Model: "optima251",
		DatapointList: []Datapoint{
			{Name: "TEMP_SUPPLY", Address: 0, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_OUTSIDE", Address: 1, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_EXHAUST", Address: 2, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_EXTRACT", Address: 3, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "HUMIDITY_EXTRACT", Address: 4, Divider: 1, Offset: 0, Unit: "%"},
			{Name: "FAN_SPEED_SUPPLY_RPM", Address: 6, Divider: 1, Offset: 0, Unit: "rpm"},
			{Name: "FAN_SPEED_EXTRACT_RPM", Address: 17, Divider: 1, Offset: 0, Unit: "rpm"},
			{Name: "FILTER_COUNTER", Address: 20, Divider: 1, Offset: 0, Unit: "days"},
		},
		SetpointList: []Setpoint{
			{
				Name: "FAN_SPEED", ReadAddress: 7, WriteAddress: 7,
				Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 4,
			},
			{
				Name: "TEMP_SETPOINT", ReadAddress: 1, WriteAddress: 1,
				Divider: 10, Offset: 100, Unit: "°C", Min: 0, Max: 200,
			},
			{
				Name: "REHEAT_ENABLE", ReadAddress: 14, WriteAddress: 14,
				Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 1,
			},
			{
				Name: "FILTER_RESET", ReadAddress: 21, WriteAddress: 21,
				Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 1, WriteOnly: true,
			},
		},
	}
}
