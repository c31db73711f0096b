package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genvex/tunnel/tunnel"
)

func TestSequencerUserSeqWrapsTo300(t *testing.T) {
	seq := newSequencer()
	seq.nextUser = 65535
	require.Equal(t, uint16(65535), seq.nextUserSeq())
	require.Equal(t, uint16(userSeqStart), seq.nextUserSeq())
}

func TestSequencerKeepAliveRing(t *testing.T) {
	seq := newSequencer()
	seq.nextKeepAlive = keepAliveSeqMax
	require.Equal(t, keepAliveSeqMax, seq.nextKeepAliveSeq())
	require.Equal(t, keepAliveSeqMin, seq.nextKeepAliveSeq())
}

// fakeDevice is a minimal UDP peer standing in for a real controller: it
// answers U_CONNECT, the initial ping, and optionally echoes DATA requests
// back with a canned command buffer for positional-demux tests.
type fakeDevice struct {
	conn     *net.UDPConn
	serverID uint32
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	return &fakeDevice{conn: conn, serverID: 0x99887766}
}

func (d *fakeDevice) addr() tunnel.DeviceAddr {
	a := d.conn.LocalAddr().(*net.UDPAddr)
	return tunnel.DeviceAddr{IP: a.IP, Port: uint16(a.Port)}
}

func (d *fakeDevice) close() { d.conn.Close() }

// serve answers every inbound packet until closed: U_CONNECT gets a
// connect-accepted reply, every DATA packet is echoed back with respond
// (or a ping/model reply for the reserved initial-ping sequence).
func (d *fakeDevice) serve(t *testing.T, respond func(clientID uint32, seq uint16, cmd []byte) []byte) {
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
				clientID := beUint32(b[0:4])
				resp := make([]byte, 28)
				copy(resp, b[0:8])
				resp[8] = tunnel.PacketConnect
				resp[11] = 0x01 // FlagResponse
				beputUint16(resp[14:16], 28)
				beputUint32(resp[20:24], 1) // connectOKStatus
				beputUint32(resp[24:28], d.serverID)
				_, _ = d.conn.WriteToUDP(resp, from)
				_ = clientID
			case tunnel.PacketData:
				frame, err := tunnel.ParseDataFrame(b)
				if err != nil {
					continue
				}
				clientID := beUint32(b[0:4])
				var cmd []byte
				if frame.SeqID == 50 {
					cmd = make([]byte, 20)
					beputUint32(cmd[0:4], 270)
					beputUint32(cmd[4:8], 27000)
				} else if respond != nil {
					cmd = respond(clientID, frame.SeqID, frame.Command)
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

func testConfig() Config {
	cfg := Config{
		ConnectRetries:       2,
		ConnectRetryInterval: ConnectRetryIntervalMin,
		KeepAliveInterval:    KeepAliveIntervalMin,
		RequestTimeout:       RequestTimeoutMin,
	}
	_ = cfg.Valid()
	return cfg
}

func TestConnectHandshakeAndInitialModel(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()
	dev.serve(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := Connect(ctx, testConfig(), dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	require.Equal(t, StateConnected, sess.State())

	var sawModel bool
	for !sawModel {
		select {
		case ev := <-sess.Events():
			if ev.Kind == EventModel {
				require.Equal(t, uint32(270), ev.Model.DeviceNumber)
				sawModel = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for model event")
		}
	}
}

func TestReadDatapointsCorrelatesBySeq(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()
	dev.serve(t, func(clientID uint32, seq uint16, cmd []byte) []byte {
		resp := make([]byte, 2)
		beputUint16(resp, 2)
		resp = append(resp, 0, 5, 0, 9) // two int16 values: 5, 9
		return resp
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sess, err := Connect(ctx, testConfig(), dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	regs := []tunnel.RegisterAddr{{Obj: 0, Address: 1}, {Obj: 0, Address: 2}}
	cmd, err := sess.ReadDatapoints(ctx, regs)
	require.NoError(t, err)

	values, err := tunnel.ParseDatapointValues(cmd)
	require.NoError(t, err)
	require.Equal(t, []int16{5, 9}, values)
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()
	dev.serve(t, func(clientID uint32, seq uint16, cmd []byte) []byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sess, err := Connect(ctx, testConfig(), dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.ReadDatapoints(ctx, []tunnel.RegisterAddr{{Obj: 0, Address: 1}})
	require.Error(t, err)
	var timeoutErr *ReadTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

// TestKeepAliveDoesNotInterfereWithPendingRequest exercises the independence
// of the 100-199 keep-alive ring from the 300+ user request space: an
// in-flight read must still resolve correctly across two keep-alive ticks
// (scenario 6).
func TestKeepAliveDoesNotInterfereWithPendingRequest(t *testing.T) {
	dev := newFakeDevice(t)
	defer dev.close()

	release := make(chan struct{})
	dev.serve(t, func(clientID uint32, seq uint16, cmd []byte) []byte {
		<-release
		resp := make([]byte, 2)
		beputUint16(resp, 1)
		resp = append(resp, 0, 7)
		return resp
	})

	cfg := testConfig()
	cfg.KeepAliveInterval = KeepAliveIntervalMin
	cfg.RequestTimeout = 5 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	sess, err := Connect(ctx, cfg, dev.addr(), "user@example.com")
	require.NoError(t, err)
	defer sess.Close()

	resultCh := make(chan error, 1)
	go func() {
		_, err := sess.ReadDatapoints(ctx, []tunnel.RegisterAddr{{Obj: 0, Address: 1}})
		resultCh <- err
	}()

	// Let two keep-alive ticks fire (their replies land on 100-199 and
	// must never be mistaken for the pending request on a 300+ seq) before
	// letting the device answer the read.
	time.Sleep(2*KeepAliveIntervalMin + 500*time.Millisecond)
	close(release)

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read request never resolved despite concurrent keep-alives")
	}
}

func TestReadDatapointsRejectedWhenNotConnected(t *testing.T) {
	s := &Session{}
	s.state.Store(int32(StateIdle))
	_, err := s.ReadDatapoints(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotConnected)
}
