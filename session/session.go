// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package session implements the stateful per-device tunnel session: socket
// ownership, the connect handshake, the pending-request table, the
// keep-alive timer, and the readDatapoints/readSetpoints/writeSetpoints
// request API (spec §4.3).
//
// The session is single-actor: exactly one goroutine (run) ever sends on the
// socket or touches the sequence counter and the pending-request table; a
// second goroutine (readLoop) only reads datagrams and forwards them to run,
// matching the
// teacher's own implicit discipline and spec §5's concurrency model. Public
// methods communicate with that goroutine over channels instead of taking a
// lock, the same shape meermanr/LightwaveRF-go's lwl.Client uses for its
// pending-transaction map but tightened to a single writer.
package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genvex/tunnel/clog"
	"github.com/genvex/tunnel/tunnel"
)

// State is the session's connection state (spec §4.3).
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind discriminates the values pushed onto a Session's event channel.
// Modeled as a closed sum type rather than string-keyed dispatch (spec §9).
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventModel
	EventData
	EventError
)

// Event is one notification emitted by a Session.
type Event struct {
	Kind    EventKind
	Model   tunnel.ModelInfo // valid when Kind == EventModel
	SeqID   uint16           // valid when Kind == EventData
	Command []byte           // valid when Kind == EventData
	Err     error            // valid when Kind == EventError or EventDisconnected
}

type requestKind int

const (
	requestReadDatapoints requestKind = iota
	requestReadSetpoints
	requestWriteSetpoints
)

type pendingResult struct {
	command []byte
	err     error
}

type pendingEntry struct {
	kind   requestKind
	result chan pendingResult
	timer  *time.Timer
}

type rawPacket struct {
	data []byte
}

// Session is a stateful connection to one tunnel-protocol device.
type Session struct {
	cfg      Config
	email    string
	addr     *net.UDPAddr
	conn     *net.UDPConn
	clientID uint32

	seq     *sequencer
	pending map[uint16]*pendingEntry

	// onConnectedOnce, set once via submit() from handshake, is closed by
	// the run loop the moment a U_CONNECT response is accepted. Touched
	// only on the run goroutine after its initial assignment.
	onConnectedOnce chan struct{}

	state    atomic.Int32
	serverID atomic.Uint32

	actions  chan func()
	incoming chan rawPacket
	events   chan Event

	log clog.Clog

	closeOnce sync.Once
	done      chan struct{}
}

// Connect opens a tunnel session to addr, identifying the caller with
// email. It blocks until the U_CONNECT handshake completes (or fails) per
// spec §4.3: up to cfg.ConnectRetries retransmissions at
// cfg.ConnectRetryInterval spacing, giving up after
// ConnectRetries*ConnectRetryInterval + 2s.
func Connect(ctx context.Context, cfg Config, addr tunnel.DeviceAddr, email string) (*Session, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if addr.IP == nil || email == "" {
		return nil, ErrInvalidArgument
	}

	port := addr.Port
	if port == 0 {
		port = cfg.Port
	}
	udpAddr := &net.UDPAddr{IP: addr.IP, Port: int(port)}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, &SocketError{Cause: err}
	}
	if err := conn.SetReadBuffer(64 * 1024); err != nil {
		conn.Close()
		return nil, &SocketError{Cause: err}
	}

	s := &Session{
		cfg:      cfg,
		email:    email,
		addr:     udpAddr,
		conn:     conn,
		clientID: randomClientID(),
		seq:      newSequencer(),
		pending:  make(map[uint16]*pendingEntry),
		actions:  make(chan func(), 8),
		incoming: make(chan rawPacket, 64),
		events:   make(chan Event, 32),
		log:      clog.NewLogger("session"),
		done:     make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	go s.readLoop()
	go s.run()

	if err := s.handshake(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func randomClientID() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is catastrophic for the host; fall back to a
		// time-derived value rather than handing out a zero clientId.
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(b[:])
}

// State returns the session's current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Events returns the channel Connected/Disconnected/Model/Data/Error events
// are pushed to. The channel is closed once Close has fully drained the
// session.
func (s *Session) Events() <-chan Event { return s.events }

// handshake drives the U_CONNECT retransmission loop and waits for the
// session to reach Connected or for the overall deadline to elapse.
func (s *Session) handshake(ctx context.Context) error {
	frame := tunnel.BuildConnectFrame(s.clientID, s.email)

	giveUp := time.NewTimer(s.cfg.connectGiveUp())
	defer giveUp.Stop()
	retry := time.NewTicker(s.cfg.ConnectRetryInterval)
	defer retry.Stop()

	connected := make(chan struct{})
	s.submit(func() { s.onConnectedOnce = connected })

	send := func() {
		s.submit(func() {
			if _, err := s.conn.WriteToUDP(frame, s.addr); err != nil {
				s.log.Warn("connect: write failed", "err", err)
			}
		})
	}
	send()

	retransmissions := 0
	for {
		select {
		case <-connected:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-giveUp.C:
			return ErrConnectTimeout
		case <-retry.C:
			if retransmissions >= s.cfg.ConnectRetries {
				continue // wait for giveUp; no more retransmissions
			}
			retransmissions++
			send()
		}
	}
}

// submit runs fn on the session's single run-loop goroutine and waits for
// it to complete.
func (s *Session) submit(fn func()) {
	done := make(chan struct{})
	select {
	case s.actions <- func() { fn(); close(done) }:
		<-done
	case <-s.done:
	}
}

// readLoop is the only other goroutine besides run; it owns nothing but the
// socket read call and forwards raw datagrams to the run loop.
func (s *Session) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.submit(func() { s.fail(&SocketError{Cause: err}) })
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		select {
		case s.incoming <- rawPacket{data: pkt}:
		case <-s.done:
			return
		}
	}
}

// run is the session's single-consumer event loop: it dispatches incoming
// datagrams, pending-request timeouts, keep-alive ticks, and externally
// submitted actions. Nothing outside this goroutine touches s.pending,
// s.seq, s.events, or sends on s.conn -- including teardown: Close and fail
// both reach teardown through this loop (via submit, or because fail itself
// only ever runs here), never directly on a caller's goroutine.
func (s *Session) run() {
	keepAlive := time.NewTicker(s.cfg.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case fn := <-s.actions:
			fn()
		case pkt := <-s.incoming:
			s.dispatch(pkt.data)
		case <-keepAlive.C:
			if s.State() == StateConnected {
				s.sendKeepAlive()
			}
		}
		if s.State() == StateClosed {
			return
		}
	}
}

// dispatch demultiplexes one inbound datagram by header type (spec §4.3).
// Malformed frames are dropped silently: a connectionless transport can
// receive stray packets from unrelated senders at any time (spec §7).
func (s *Session) dispatch(b []byte) {
	if len(b) < 9 {
		return
	}
	packetType := b[8]

	switch packetType {
	case tunnel.PacketConnect:
		s.handleConnectResponse(b)
	case tunnel.PacketData:
		s.handleData(b)
	case tunnel.PacketAlive:
		// acknowledged by ignoring
	default:
		// unrecognized packet type from an unrelated sender; drop
	}
}

func (s *Session) handleConnectResponse(b []byte) {
	if s.State() != StateConnecting {
		return // U_CONNECT response after connect: ignored
	}
	resp, err := tunnel.ParseConnectResponse(b)
	if err != nil {
		s.log.Debug("dropping malformed U_CONNECT response", "err", err)
		return
	}
	s.serverID.Store(resp.ServerID)
	s.state.Store(int32(StateConnected))
	if s.onConnectedOnce != nil {
		close(s.onConnectedOnce)
		s.onConnectedOnce = nil
	}
	s.emit(Event{Kind: EventConnected})
	s.sendInitialPing()
}

func (s *Session) handleData(b []byte) {
	if !tunnel.VerifyChecksum(b) {
		s.log.Debug("dropping DATA packet with bad checksum")
		return
	}
	resp, err := tunnel.ParseDataFrame(b)
	if err != nil {
		s.log.Debug("dropping malformed DATA packet", "err", err)
		return
	}

	switch {
	case resp.SeqID == initialPingSeq:
		info := tunnel.ParsePingResponse(resp.Command)
		s.emit(Event{Kind: EventModel, Model: info})
	case resp.SeqID >= keepAliveSeqMin && resp.SeqID <= keepAliveSeqMax:
		// keep-alive reply, discard
	default:
		entry, ok := s.pending[resp.SeqID]
		if !ok {
			s.emit(Event{Kind: EventData, SeqID: resp.SeqID, Command: resp.Command})
			return
		}
		s.resolvePending(resp.SeqID, entry, pendingResult{command: resp.Command})
	}
}

func (s *Session) resolvePending(seq uint16, entry *pendingEntry, result pendingResult) {
	entry.timer.Stop()
	delete(s.pending, seq)
	entry.result <- result
}

func (s *Session) sendInitialPing() {
	frame := tunnel.BuildDataFrame(s.clientID, s.serverID.Load(), initialPingSeq, tunnel.BuildPingCommand(), false)
	if _, err := s.conn.WriteToUDP(frame, s.addr); err != nil {
		s.log.Warn("initial ping: write failed", "err", err)
	}
}

func (s *Session) sendKeepAlive() {
	seq := s.seq.nextKeepAliveSeq()
	frame := tunnel.BuildDataFrame(s.clientID, s.serverID.Load(), seq, tunnel.BuildPingCommand(), true)
	if _, err := s.conn.WriteToUDP(frame, s.addr); err != nil {
		s.log.Warn("keep-alive: write failed", "err", err)
	}
}

// fail tears the session down after a socket error (spec §4.3, §7).
func (s *Session) fail(err error) {
	s.emit(Event{Kind: EventError, Err: err})
	s.closeOnce.Do(func() { s.teardown(err) })
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event channel full, dropping event", "kind", ev.Kind)
	}
}

// request is the common shape of readDatapoints/readSetpoints/writeSetpoints
// (spec §4.3): allocate a sequence number, build the frame, install a
// pending entry with a timeout, send, and wait for resolution.
func (s *Session) request(ctx context.Context, kind requestKind, buildCommand func() []byte, timeoutErr func(seq uint16) error) ([]byte, error) {
	if s.State() != StateConnected {
		return nil, ErrNotConnected
	}

	resultCh := make(chan pendingResult, 1)
	var seq uint16
	s.submit(func() {
		seq = s.seq.nextUserSeq()
		entry := &pendingEntry{kind: kind, result: resultCh}
		entry.timer = time.AfterFunc(s.cfg.RequestTimeout, func() {
			s.submit(func() {
				if _, ok := s.pending[seq]; !ok {
					return // already resolved
				}
				delete(s.pending, seq)
				resultCh <- pendingResult{err: timeoutErr(seq)}
			})
		})
		s.pending[seq] = entry

		frame := tunnel.BuildDataFrame(s.clientID, s.serverID.Load(), seq, buildCommand(), false)
		if _, err := s.conn.WriteToUDP(frame, s.addr); err != nil {
			entry.timer.Stop()
			delete(s.pending, seq)
			resultCh <- pendingResult{err: &SocketError{Cause: err}}
		}
	})

	select {
	case res := <-resultCh:
		return res.command, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// ReadDatapoints issues a CMD_DATAPOINT_READLIST for regs and returns the
// raw command bytes of the response for the caller to demux positionally.
func (s *Session) ReadDatapoints(ctx context.Context, regs []tunnel.RegisterAddr) ([]byte, error) {
	return s.request(ctx, requestReadDatapoints,
		func() []byte { return tunnel.BuildDatapointReadCommand(regs) },
		func(seq uint16) error { return &ReadTimeoutError{Seq: seq} },
	)
}

// ReadSetpoints issues a CMD_SETPOINT_READLIST for regs and returns the raw
// command bytes of the response.
func (s *Session) ReadSetpoints(ctx context.Context, regs []tunnel.RegisterAddr) ([]byte, error) {
	return s.request(ctx, requestReadSetpoints,
		func() []byte { return tunnel.BuildSetpointReadCommand(regs) },
		func(seq uint16) error { return &ReadTimeoutError{Seq: seq} },
	)
}

// WriteSetpoints issues a CMD_SETPOINT_WRITELIST. It resolves as soon as any
// matching-seq DATA reply arrives; the body is not inspected beyond
// confirming correlation (spec §4.3).
func (s *Session) WriteSetpoints(ctx context.Context, writes []tunnel.SetpointWrite) error {
	_, err := s.request(ctx, requestWriteSetpoints,
		func() []byte { return tunnel.BuildSetpointWriteCommand(writes) },
		func(seq uint16) error { return &WriteTimeoutError{Seq: seq} },
	)
	return err
}

// Close disconnects the session: stops the keep-alive timer, closes the
// socket, drains the pending-request table by rejecting every outstanding
// caller with ErrClosed, emits Disconnected, and transitions to Closed. Safe
// to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.submit(func() { err = s.teardown(nil) })
	})
	return err
}

func (s *Session) teardown(cause error) error {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	closeErr := s.conn.Close()
	close(s.done)

	for seq, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, seq)
		select {
		case entry.result <- pendingResult{err: ErrClosed}:
		default:
		}
	}

	s.emit(Event{Kind: EventDisconnected, Err: cause})
	close(s.events)
	return closeErr
}

// ClientID returns the session's client nonce.
func (s *Session) ClientID() uint32 { return s.clientID }

// ServerID returns the negotiated server nonce (0 until established).
func (s *Session) ServerID() uint32 { return s.serverID.Load() }
