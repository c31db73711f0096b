package register

// NewOptima270 returns the register catalog for the Genvex Optima 270
// controller family: separate read and write addresses per setpoint, fan
// stage range 1-4 (spec §6).
//
// Address 18 is deliberately reused by both DUTYCYCLE_SUPPLY and
// SACRIFICIAL_ANODE; the source firmware overloads this slot depending on
// model variant. Both keys are exposed rather than merged so callers can
// choose which meaning applies to their unit; their raw values are
// identical when the firmware reuses the slot (spec §9 Open Questions).
func NewOptima270() *Catalog {
	return &Catalog{
		Model: "optima270",
		DatapointList: []Datapoint{
			{Name: "TEMP_SUPPLY", Address: 0, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_OUTSIDE", Address: 1, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_EXHAUST", Address: 2, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "TEMP_EXTRACT", Address: 3, Divider: 10, Offset: -300, Unit: "°C"},
			{Name: "HUMIDITY_EXTRACT", Address: 4, Divider: 1, Offset: 0, Unit: "%"},
			{Name: "HUMIDITY_SUPPLY", Address: 5, Divider: 1, Offset: 0, Unit: "%"},
			{Name: "FAN_SPEED_SUPPLY_RPM", Address: 6, Divider: 1, Offset: 0, Unit: "rpm"},
			{Name: "FAN_SPEED_EXTRACT_RPM", Address: 17, Divider: 1, Offset: 0, Unit: "rpm"},
			{Name: "BYPASS_ACTIVE", Address: 9, Divider: 1, Offset: 0, Unit: ""},
			{Name: "DUTYCYCLE_SUPPLY", Address: 18, Divider: 1, Offset: 0, Unit: "%"},
			{Name: "SACRIFICIAL_ANODE", Address: 18, Divider: 1, Offset: 0, Unit: ""},
			{Name: "FILTER_COUNTER", Address: 20, Divider: 1, Offset: 0, Unit: "days"},
		},
		SetpointList: []Setpoint{
			{
				Name: "FAN_SPEED", ReadAddress: 7, WriteAddress: 24,
				Divider: 1, Offset: 0, Unit: "", Min: 1, Max: 4,
			},
			{
				Name: "TEMP_SETPOINT", ReadAddress: 1, WriteAddress: 12,
				Divider: 10, Offset: 100, Unit: "°C", Min: 0, Max: 200,
			},
			{
				Name: "REHEAT_ENABLE", ReadAddress: 14, WriteAddress: 25,
				Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 1,
			},
		},
	}
}
