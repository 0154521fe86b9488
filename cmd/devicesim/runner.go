package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/httpapi"
	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/radiofake"
	"github.com/r3dpanda-labs/lorawan-device/device"
	"github.com/r3dpanda-labs/lorawan-device/internal/deviceevents"
	"github.com/r3dpanda-labs/lorawan-device/internal/devicemetrics"
	"github.com/r3dpanda-labs/lorawan-device/internal/timewheel"
	"github.com/r3dpanda-labs/lorawan-device/response"
	"github.com/r3dpanda-labs/lorawan-device/session"
)

// runner serializes every call into device.Device.HandleEvent onto a
// single goroutine, the way the teacher's scheduler/forwarder pattern
// keeps one worker owning mutable device state while other goroutines
// (HTTP handlers, the simulated radio's timers) submit work over a
// channel rather than touching it directly.
type runner struct {
	instanceID string
	device     *device.Device[radiofake.PhyEvent]
	driver     *radiofake.Driver
	broker     *deviceevents.Broker
	wheel      *timewheel.Wheel
	commands   chan func()

	mu            sync.Mutex
	family        string
	joined        bool
	fcntUp        uint32
	fcntDown      uint32
	sendConfirmed bool
}

func newRunner(instanceID string, dev *device.Device[radiofake.PhyEvent], driver *radiofake.Driver, broker *deviceevents.Broker, wheel *timewheel.Wheel) *runner {
	return &runner{
		instanceID: instanceID,
		device:     dev,
		driver:     driver,
		broker:     broker,
		wheel:      wheel,
		commands:   make(chan func(), 16),
		family:     dev.Family().String(),
	}
}

// loop is devicesim's single run loop: every external trigger (an HTTP
// request, a simulated radio event, a fired timer) becomes a closure
// on commands so HandleEvent is only ever called from this goroutine.
func (r *runner) loop() {
	for {
		select {
		case cmd := <-r.commands:
			cmd()
		case phy := <-r.driver.Events:
			r.dispatch(device.Event[radiofake.PhyEvent]{Kind: device.RadioEvent, Phy: phy})
		}
	}
}

func (r *runner) dispatch(event device.Event[radiofake.PhyEvent]) (response.Response, error) {
	resp, err := r.device.HandleEvent(event)
	if err != nil {
		slog.Error("event rejected", "component", "runner", "instance_id", r.instanceID, "error", err)
		return response.Response{}, err
	}
	return resp, nil
}

// submit runs fn on the loop goroutine and blocks the caller for the
// result, the seam HTTP handlers use to reach into the engine.
func (r *runner) submit(fn func() (response.Response, error)) (response.Response, error) {
	type result struct {
		resp response.Response
		err  error
	}
	done := make(chan result, 1)
	r.commands <- func() {
		resp, err := fn()
		done <- result{resp, err}
	}
	out := <-done
	return out.resp, out.err
}

// observe is device.Device.OnResponse: it runs on the loop goroutine
// (HandleEvent calls it before returning), so it may freely touch
// driver/broker state, but must take r.mu before touching the fields
// Status() reads from the HTTP goroutine.
func (r *runner) observe(resp response.Response) {
	r.broker.Publish(resp)

	r.mu.Lock()
	r.family = r.device.Family().String()
	switch resp.Kind {
	case response.NewSession:
		r.joined = true
	case response.JoinFailed:
		r.joined = false
	case response.SendingDataUp:
		r.fcntUp = resp.FCntUp
	case response.DataDown:
		r.fcntDown = resp.FCntDown
	}
	r.mu.Unlock()

	switch resp.Kind {
	case response.JoinFailed:
		devicemetrics.JoinFailuresTotal.Inc()
	case response.SendingDataUp:
		devicemetrics.UplinksTotal.WithLabelValues(strconv.FormatBool(r.sendConfirmedGauge())).Inc()
		devicemetrics.FCntUp.Set(float64(resp.FCntUp))
	case response.DataDown:
		devicemetrics.DownlinksTotal.WithLabelValues("rx").Inc()
		devicemetrics.FCntDown.Set(float64(resp.FCntDown))
	case response.NoAck:
		devicemetrics.NoAckTotal.Inc()
	}
	if r.joinedGauge() {
		devicemetrics.SessionState.Set(1)
	} else {
		devicemetrics.SessionState.Set(0)
	}

	if resp.Kind == response.TimeoutRequest {
		r.scheduleTimeout(resp.AbsMs)
	}
}

func (r *runner) joinedGauge() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joined
}

func (r *runner) sendConfirmedGauge() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendConfirmed
}

// scheduleTimeout arms the wheel to feed a Timeout event back through
// commands once delayMs elapses, the harness's stand-in for the host
// timer SPEC_FULL §2 requires. Only one Timeout is ever outstanding at
// once (Class-A has one RX window open at a time), so no cancellation
// bookkeeping is needed beyond what the wheel already does internally.
func (r *runner) scheduleTimeout(delayMs uint32) {
	r.wheel.Schedule(time.Duration(delayMs)*time.Millisecond, func() {
		r.commands <- func() {
			r.dispatch(device.Event[radiofake.PhyEvent]{Kind: device.Timeout})
		}
	})
}

// Status implements httpapi.Runtime.
func (r *runner) Status() httpapi.StatusView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return httpapi.StatusView{
		Family:   r.family,
		FCntUp:   r.fcntUp,
		FCntDown: r.fcntDown,
		Joined:   r.joined,
	}
}

// RequestJoin implements httpapi.Runtime. The attempt is counted here,
// at the point the host actually asks for one, rather than off any
// particular engine response: the radio's TxRequest resolving
// synchronously or asynchronously changes which Response comes back
// but not that an attempt was made.
func (r *runner) RequestJoin() error {
	_, err := r.submit(func() (response.Response, error) {
		return r.dispatch(device.Event[radiofake.PhyEvent]{Kind: device.NewSession})
	})
	if err == nil {
		devicemetrics.JoinAttemptsTotal.Inc()
	}
	return err
}

// RequestSend implements httpapi.Runtime.
func (r *runner) RequestSend(req httpapi.SendRequest) (response.Response, error) {
	if !r.joinedGauge() {
		return response.Response{}, fmt.Errorf("device has no active session")
	}
	r.mu.Lock()
	r.sendConfirmed = req.Confirmed
	r.mu.Unlock()
	return r.submit(func() (response.Response, error) {
		return r.dispatch(device.Event[radiofake.PhyEvent]{
			Kind: device.Send,
			Send: session.SendParams{Payload: req.Payload, FPort: req.FPort, Confirmed: req.Confirmed},
		})
	})
}
