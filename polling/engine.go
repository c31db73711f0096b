// Package polling implements the register-polling engine layered on top of
// a connected session.Session: periodic readDatapoints/readSetpoints,
// value-change detection and caching, consecutive-failure escalation, and
// validated setpoint writes (spec §4.4).
//
// The engine is single-actor like session.Session (spec §5): exactly one
// goroutine (run) ever touches the value cache and the consecutive-error
// counter. Value/AllValues/SetValue reach the cache by submitting a closure
// onto that goroutine rather than taking a lock, the same discipline
// session.Session uses for its pending-request table.
package polling

import (
	"context"
	"time"

	"github.com/genvex/tunnel/clog"
	"github.com/genvex/tunnel/register"
	"github.com/genvex/tunnel/session"
	"github.com/genvex/tunnel/tunnel"
)

// Engine polls one connected session on a fixed cadence and caches the
// converted register values.
type Engine struct {
	sess  *session.Session
	model register.Model
	cfg   Config

	cache             map[string]float64
	consecutiveErrors int

	events  chan Event
	actions chan func()
	done    chan struct{}

	log clog.Clog
}

// New creates an Engine over an already-connected sess. cfg is validated;
// an invalid cfg falls back to DefaultConfig().
func New(sess *session.Session, model register.Model, cfg Config) *Engine {
	if err := cfg.Valid(); err != nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		sess:    sess,
		model:   model,
		cfg:     cfg,
		cache:   make(map[string]float64),
		events:  make(chan Event, 32),
		actions: make(chan func(), 8),
		done:    make(chan struct{}),
		log:     clog.NewLogger("polling"),
	}
}

// Events returns the channel Connected/Disconnected/Model/Data/Polled/Error
// events are pushed to. The channel is closed once the engine's underlying
// session disconnects.
func (e *Engine) Events() <-chan Event { return e.events }

// Connect starts the engine's run loop over an already-connected session:
// event forwarding, an immediate poll, and the periodic poll timer (spec
// §4.4's connect()/startPolling()).
func (e *Engine) Connect(ctx context.Context) error {
	if e.sess.State() != session.StateConnected {
		return ErrNotConnected
	}
	sessionState.Set(float64(session.StateConnected))
	go e.run()
	return nil
}

// run is the engine's single-consumer event loop: it dispatches submitted
// actions, session events, and poll-timer ticks. Nothing outside this
// goroutine touches e.cache, e.consecutiveErrors, or e.events -- SetValue
// reaches the cache and emits its Data event through query so neither can
// race handleSessionEvent's close(e.events) on disconnect.
func (e *Engine) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.pollOnce(context.Background())

	for {
		select {
		case fn := <-e.actions:
			fn()
		case ev, ok := <-e.sess.Events():
			if !ok {
				return
			}
			if e.handleSessionEvent(ev) {
				return
			}
		case <-ticker.C:
			e.pollOnce(context.Background())
		}
	}
}

// handleSessionEvent translates a session.Event into the engine's own Event
// stream. It returns true once the underlying session has disconnected,
// telling run to stop.
func (e *Engine) handleSessionEvent(ev session.Event) bool {
	switch ev.Kind {
	case session.EventConnected:
		sessionState.Set(float64(session.StateConnected))
		e.emit(Event{Kind: EventConnected})
	case session.EventDisconnected:
		sessionState.Set(float64(session.StateClosed))
		e.emit(Event{Kind: EventDisconnected, Err: ev.Err})
		close(e.events)
		return true
	case session.EventModel:
		e.emit(Event{Kind: EventModel, Model: ev.Model})
	case session.EventError:
		e.emit(Event{Kind: EventError, Err: ev.Err})
	case session.EventData:
		// unsolicited DATA outside a catalog read: no poll-cache role, drop.
	}
	return false
}

// pollOnce runs one poll cycle and applies the failure policy (spec §4.4):
// any error increments consecutiveErrors and emits Error; reaching
// cfg.MaxConsecutiveErrors resets the counter and disconnects the session.
func (e *Engine) pollOnce(ctx context.Context) {
	if e.sess.State() != session.StateConnected {
		return
	}

	start := time.Now()
	err := e.poll(ctx)
	pollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		pollErrors.Inc()
		e.consecutiveErrors++
		e.emit(Event{Kind: EventError, Err: err})
		if e.consecutiveErrors >= e.cfg.MaxConsecutiveErrors {
			e.consecutiveErrors = 0
			e.log.Warn("too many consecutive poll failures, disconnecting", "max", e.cfg.MaxConsecutiveErrors)
			_ = e.sess.Close()
		}
		return
	}

	e.consecutiveErrors = 0
	e.emit(Event{Kind: EventPolled})
}

// poll issues readDatapoints then readSetpoints against the catalog's
// ordered request lists and re-associates each returned value with its
// descriptor positionally (spec §4.4, §8 positional demux).
func (e *Engine) poll(ctx context.Context) error {
	dpCmd, err := e.sess.ReadDatapoints(ctx, e.model.DatapointRequestList())
	if err != nil {
		return err
	}
	dpValues, err := tunnel.ParseDatapointValues(dpCmd)
	if err != nil {
		return err
	}
	for i, d := range e.model.Datapoints() {
		if i >= len(dpValues) {
			break
		}
		display := e.model.ConvertDatapointValue(dpValues[i], d)
		e.storeAndEmit(d.Name, display, CapabilityDatapoint, d.Unit)
	}

	spCmd, err := e.sess.ReadSetpoints(ctx, e.model.SetpointRequestList())
	if err != nil {
		return err
	}
	spValues, err := tunnel.ParseSetpointValues(spCmd)
	if err != nil {
		return err
	}
	for i, s := range e.model.ReadableSetpoints() {
		if i >= len(spValues) {
			break
		}
		display := e.model.ConvertSetpointValue(spValues[i], s)
		e.storeAndEmit(s.Name, display, CapabilitySetpoint, s.Unit)
	}
	return nil
}

// storeAndEmit updates the cache and emits a Data event, but only if the
// display value actually changed (spec §4.4). Only called from run.
func (e *Engine) storeAndEmit(name string, value float64, kind Capability, unit string) {
	if old, ok := e.cache[name]; ok && old == value {
		return
	}
	e.cache[name] = value
	e.emit(Event{Kind: EventData, Name: name, Value: value, Capability: kind, Unit: unit})
}

// query runs fn on the run goroutine and waits for it to finish, the same
// actor-submit discipline session.Session.submit uses.
func (e *Engine) query(fn func()) {
	done := make(chan struct{})
	select {
	case e.actions <- func() { fn(); close(done) }:
		<-done
	case <-e.done:
	}
}

// Value returns the last-polled display value for name, if known.
func (e *Engine) Value(name string) (float64, bool) {
	var v float64
	var ok bool
	e.query(func() { v, ok = e.cache[name] })
	return v, ok
}

// AllValues returns a snapshot of every cached display value.
func (e *Engine) AllValues() map[string]float64 {
	out := make(map[string]float64)
	e.query(func() {
		for k, v := range e.cache {
			out[k] = v
		}
	})
	return out
}

// SetValue looks up name in the engine's register model, validates the
// raw-encoded value against its [Min, Max] bounds, writes it, then
// optimistically updates the cache and emits Data (spec §4.4).
func (e *Engine) SetValue(ctx context.Context, name string, display float64) error {
	sp, ok := e.model.SetpointByName(name)
	if !ok {
		return &UnknownSetpointError{Name: name}
	}
	raw := e.model.ToRawSetpointValue(display, sp)
	if raw < sp.Min || raw > sp.Max {
		return &OutOfRangeError{Name: name, Raw: raw, Min: sp.Min, Max: sp.Max}
	}
	if e.sess.State() != session.StateConnected {
		return ErrNotConnected
	}

	write := tunnel.SetpointWrite{ID: 0, Value: raw, Param: uint16(sp.WriteAddress)}
	if err := e.sess.WriteSetpoints(ctx, []tunnel.SetpointWrite{write}); err != nil {
		return err
	}

	e.query(func() {
		e.cache[name] = display
		e.emit(Event{Kind: EventData, Name: name, Value: display, Capability: CapabilitySetpoint, Unit: sp.Unit})
	})
	return nil
}

// SetFanLevel is a convenience wrapper over SetValue for the FAN_SPEED
// setpoint shared by both catalogs.
func (e *Engine) SetFanLevel(ctx context.Context, n int) error {
	return e.SetValue(ctx, "FAN_SPEED", float64(n))
}

// SetTemperatureSetpoint is a convenience wrapper over SetValue for the
// TEMP_SETPOINT setpoint shared by both catalogs.
func (e *Engine) SetTemperatureSetpoint(ctx context.Context, t float64) error {
	return e.SetValue(ctx, "TEMP_SETPOINT", t)
}

// Disconnect stops polling and closes the underlying session. Safe to call
// more than once.
func (e *Engine) Disconnect() error {
	return e.sess.Close()
}

// Config returns the engine's effective configuration, including the
// reconnect backoff cap a higher layer should honor after a Disconnected
// event (spec §7: "higher layers re-arm reconnection ... typically with a
// 60-second backoff").
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Warn("event channel full, dropping event", "kind", ev.Kind)
	}
}
