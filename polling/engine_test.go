package polling

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genvex/tunnel/register"
	"github.com/genvex/tunnel/session"
	"github.com/genvex/tunnel/tunnel"
)

func TestSetValueUnknownSetpoint(t *testing.T) {
	e := New(nil, register.NewOptima270(), DefaultConfig())
	err := e.SetValue(context.Background(), "NOT_A_REGISTER", 1)
	var unknown *UnknownSetpointError
	require.ErrorAs(t, err, &unknown)
}

func TestSetValueOutOfRange(t *testing.T) {
	e := New(nil, register.NewOptima270(), DefaultConfig())
	// FAN_SPEED on Optima270 is bounded to [1, 4].
	err := e.SetValue(context.Background(), "FAN_SPEED", 9)
	var outOfRange *OutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
	require.Equal(t, "FAN_SPEED", outOfRange.Name)
}

// fakeDevice is a minimal UDP peer standing in for a real controller,
// mirroring the one in session's own tests but tailored to drive a full
// poll cycle: it answers U_CONNECT, the initial ping, and optionally
// CMD_DATAPOINT_READLIST/CMD_SETPOINT_READLIST with canned values.
type fakeDevice struct {
	conn     *net.UDPConn
	serverID uint32
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	return &fakeDevice{conn: conn, serverID: 0x5a5a5a5a}
}

func (d *fakeDevice) addr() tunnel.DeviceAddr {
	a := d.conn.LocalAddr().(*net.UDPAddr)
	return tunnel.DeviceAddr{IP: a.IP, Port: uint16(a.Port)}
}

func (d *fakeDevice) close() { d.conn.Close() }

// respondReads controls whether CMD_DATAPOINT_READLIST/CMD_SETPOINT_READLIST
// get an answer at all; when false, requests simply go unanswered so the
// session's own request timeout fires.
func (d *fakeDevice) serve(t *testing.T, respondReads bool) {
	t.Helper()
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := d.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			b := append([]byte(nil), buf[:n]...)
			if len(b) < 9 {
				continue
			}
			switch b[8] {
			case tunnel.PacketConnect:
				resp := make([]byte, 28)
				copy(resp, b[0:8])
				resp[8] = tunnel.PacketConnect
				resp[11] = 0x01 // FlagResponse
				beputUint16(resp[14:16], 28)
				beputUint32(resp[20:24], 1) // connectOKStatus
				beputUint32(resp[24:28], d.serverID)
				_, _ = d.conn.WriteToUDP(resp, from)
			case tunnel.PacketData:
				frame, err := tunnel.ParseDataFrame(b)
				if err != nil {
					continue
				}
				clientID := beUint32(b[0:4])
				var cmd []byte
				switch {
				case frame.SeqID == 50:
					cmd = make([]byte, 8)
					beputUint32(cmd[0:4], 251)
				case !respondReads:
					continue
				case len(frame.Command) >= 4 && frame.Command[3] == 0x2D: // CMD_DATAPOINT_READLIST
					// count=2, then raw int16 values 521 (-> 22.1) and 265 (-> -3.5)
					cmd = append([]byte{0, 2}, 2, 9, 1, 9)
				case len(frame.Command) >= 4 && frame.Command[3] == 0x2A: // CMD_SETPOINT_READLIST
					cmd = append([]byte{0, 0, 1}, 0, 2)
				}
				if cmd == nil {
					continue
				}
				out := tunnel.BuildDataFrame(d.serverID, clientID, frame.SeqID, cmd, false)
				_, _ = d.conn.WriteToUDP(out, from)
			}
		}
	}()
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beputUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func beputUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func sessionTestConfig() session.Config {
	cfg := session.Config{
		ConnectRetries:       2,
		ConnectRetryInterval: session.ConnectRetryIntervalMin,
		KeepAliveInterval:    1 * time.Second,
		RequestTimeout:       500 * time.Millisecond,
	}
	_ = cfg.Valid()
	return cfg
}

func TestPollAppliesPositionalDemuxAndCaches(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()
	dev.serve(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sess, err := session.Connect(ctx, sessionTestConfig(), dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	cfg := Config{PollInterval: PollIntervalMin, MaxConsecutiveErrors: MaxConsecutiveErrorsMax}
	e := New(sess, register.NewOptima251(), cfg)
	require.NoError(t, e.Connect(ctx))
	defer e.Disconnect()

	var polled bool
	for !polled {
		select {
		case ev := <-e.Events():
			if ev.Kind == EventPolled {
				polled = true
			}
			if ev.Kind == EventError {
				t.Fatalf("unexpected poll error: %v", ev.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a completed poll cycle")
		}
	}

	// Optima251's first two datapoints are TEMP_SUPPLY and TEMP_OUTSIDE
	// (divider 10, offset -300); the device answered raw 521 and 265.
	v, ok := e.Value("TEMP_SUPPLY")
	require.True(t, ok)
	require.Equal(t, 22.1, v)

	v, ok = e.Value("TEMP_OUTSIDE")
	require.True(t, ok)
	require.InDelta(t, -3.5, v, 1e-9)

	// FAN_SPEED is the first readable setpoint; the device answered raw 2.
	v, ok = e.Value("FAN_SPEED")
	require.True(t, ok)
	require.Equal(t, 2.0, v)
}

func TestPollConsecutiveErrorsDisconnectsSession(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()
	dev.serve(t, false) // never answers reads; every poll times out

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := session.Connect(ctx, sessionTestConfig(), dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	cfg := Config{PollInterval: PollIntervalMin, MaxConsecutiveErrors: MaxConsecutiveErrorsMin}
	e := New(sess, register.NewOptima251(), cfg)
	require.NoError(t, e.Connect(ctx))

	var sawError, sawDisconnected bool
	for !sawDisconnected {
		select {
		case ev, ok := <-e.Events():
			if !ok {
				sawDisconnected = true
				break
			}
			switch ev.Kind {
			case EventError:
				sawError = true
			case EventDisconnected:
				sawDisconnected = true
			}
		case <-time.After(4 * time.Second):
			t.Fatal("timed out waiting for the engine to disconnect after repeated failures")
		}
	}
	require.True(t, sawError)
	require.Equal(t, session.StateClosed, sess.State())
}
