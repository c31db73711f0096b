package register

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertDatapointValue(t *testing.T) {
	c := &Catalog{}
	d := Datapoint{Divider: 10, Offset: -300}
	require.Equal(t, 22.1, c.ConvertDatapointValue(521, d))
}

func TestConvertDatapointValueDividerZeroDefaultsToOne(t *testing.T) {
	c := &Catalog{}
	d := Datapoint{Divider: 0, Offset: 0}
	require.Equal(t, float64(42), c.ConvertDatapointValue(42, d))
}

func TestSetpointRawDisplayRoundTrip(t *testing.T) {
	c := &Catalog{}
	s := Setpoint{Divider: 10, Offset: 100}

	raw := c.ToRawSetpointValue(22.0, s)
	require.Equal(t, int32(120), raw)

	display := c.ConvertSetpointValue(uint16(raw), s)
	require.Equal(t, 22.0, display)
}

func TestOptima270PositionalRequestLists(t *testing.T) {
	cat := NewOptima270()

	dpReq := cat.DatapointRequestList()
	require.Len(t, dpReq, len(cat.DatapointList))
	for i, d := range cat.DatapointList {
		require.Equal(t, d.Address, dpReq[i].Address)
	}

	spReq := cat.SetpointRequestList()
	readable := cat.ReadableSetpoints()
	require.Len(t, spReq, len(readable))
	for i, s := range readable {
		require.Equal(t, s.ReadAddress, spReq[i].Address)
		require.False(t, s.WriteOnly)
	}
}

func TestOptima270AnodeAddressCollisionPreserved(t *testing.T) {
	cat := NewOptima270()

	dc, ok := cat.DatapointByName("DUTYCYCLE_SUPPLY")
	require.True(t, ok)
	sa, ok := cat.DatapointByName("SACRIFICIAL_ANODE")
	require.True(t, ok)

	require.Equal(t, dc.Address, sa.Address, "both names share address 18 by design")
}

func TestOptima251FilterResetIsWriteOnlyAndSkipped(t *testing.T) {
	cat := NewOptima251()

	sp, ok := cat.SetpointByName("FILTER_RESET")
	require.True(t, ok)
	require.True(t, sp.WriteOnly)

	for _, addr := range cat.SetpointRequestList() {
		require.NotEqual(t, sp.ReadAddress, addr.Address, "write-only setpoints must not appear in the read list")
	}

	readable := cat.ReadableSetpoints()
	for _, s := range readable {
		require.NotEqual(t, "FILTER_RESET", s.Name)
	}
}

func TestOptima251FanSpeedRangeAllowsZero(t *testing.T) {
	cat := NewOptima251()
	fan, ok := cat.SetpointByName("FAN_SPEED")
	require.True(t, ok)
	require.Equal(t, int32(0), fan.Min)
	require.Equal(t, int32(4), fan.Max)
}

func TestOptima270FanSpeedRangeExcludesZero(t *testing.T) {
	cat := NewOptima270()
	fan, ok := cat.SetpointByName("FAN_SPEED")
	require.True(t, ok)
	require.Equal(t, int32(1), fan.Min)
}

func TestSetpointByNameUnknown(t *testing.T) {
	cat := NewOptima270()
	_, ok := cat.SetpointByName("NOT_A_REGISTER")
	require.False(t, ok)
}

func TestPositionalDemuxAcrossReadAndReadable(t *testing.T) {
	// The polling engine re-associates a setpoint read response with its
	// descriptor purely by index (spec §8); ReadableSetpoints and
	// SetpointRequestList must stay in lockstep for every catalog.
	for _, cat := range []*Catalog{NewOptima270(), NewOptima251()} {
		req := cat.SetpointRequestList()
		readable := cat.ReadableSetpoints()
		require.Equal(t, len(req), len(readable), cat.Model)
		for i := range req {
			require.Equal(t, readable[i].ReadAddress, req[i].Address, cat.Model)
		}
	}
}
