// Package radiofake is the harness's simulated radio transceiver: a
// real-time driver that delivers PhyEvents over a channel on wall-clock
// timers rather than synchronously, grounded on radio.FakeDriver's
// bookkeeping and on the teacher's gateway sender/receiver goroutines
// (simulator/components/gateway/{sender,receiver}.go) for the
// structured-logging, timer-driven delivery style.
package radiofake

import (
	"log/slog"
	"time"

	"github.com/r3dpanda-labs/lorawan-device/internal/harnessconfig"
	"github.com/r3dpanda-labs/lorawan-device/radio"
)

// PhyEvent is the phy-event type devicesim threads through
// radio.Driver[PhyEvent]; it carries whatever the driver decided to
// report when its timer fired.
type PhyEvent struct {
	Response *radio.PhyResponse
}

// Driver simulates a transceiver: Send/SetRX arm a timer instead of
// touching silicon, and the resulting PhyResponse is delivered
// asynchronously on Events so the harness's run loop can feed it back
// into the engine as a RadioEvent.
type Driver struct {
	cfg harnessconfig.SimRadioConfig

	TXConfig radio.TxConfig
	RXConfig radio.RfConfig
	rxBuf    []byte

	Events chan PhyEvent
}

// New constructs a Driver timed per cfg. A zero-value TxDurationMs or
// RxWindowDurationMs defaults to 1ms so a misconfigured harness still
// makes forward progress instead of hanging.
func New(cfg harnessconfig.SimRadioConfig) *Driver {
	if cfg.TxDurationMs == 0 {
		cfg.TxDurationMs = 1
	}
	if cfg.RxWindowDurationMs == 0 {
		cfg.RxWindowDurationMs = 1
	}
	return &Driver{cfg: cfg, Events: make(chan PhyEvent, 16)}
}

func (d *Driver) ConfigureTX(cfg radio.TxConfig) { d.TXConfig = cfg }
func (d *Driver) ConfigureRX(cfg radio.RfConfig) { d.RXConfig = cfg }

// Send simulates transmitting buf: the packet is gone instantly (the
// device's own radio can't hear itself), and a TxDone PhyResponse
// arrives after the configured transmit duration.
func (d *Driver) Send(buf []byte) {
	slog.Debug("simulated tx started", "component", "radiofake", "bytes", len(buf))
	time.AfterFunc(time.Duration(d.cfg.TxDurationMs)*time.Millisecond, func() {
		d.Events <- PhyEvent{Response: &radio.PhyResponse{Kind: radio.PhyTxDone, TxDoneMs: d.cfg.TxDurationMs}}
	})
}

// SetRX arms the window. It reports nothing on its own; InjectDownlink
// (called by the harness when a downlink is pushed in from outside)
// is what actually resolves the window with PhyRxDone. A window that
// times out unanswered is closed by the engine's own Timeout event,
// never by this driver.
func (d *Driver) SetRX() {
	slog.Debug("simulated rx window opened", "component", "radiofake")
}

func (d *Driver) CancelTX() error { return nil }
func (d *Driver) CancelRX() error { return nil }

func (d *Driver) GetReceivedPacket() []byte { return d.rxBuf }

// InjectDownlink simulates a downlink landing in the receive window:
// it stages buf and reports PhyRxDone. Calling it while no window is
// open is a harness bug, not a radio condition, and is silently
// accepted; the engine itself will reject the stray event.
func (d *Driver) InjectDownlink(buf []byte, quality radio.RxQuality) {
	d.rxBuf = append(d.rxBuf[:0], buf...)
	d.Events <- PhyEvent{Response: &radio.PhyResponse{Kind: radio.PhyRxDone, RxQuality: quality}}
}

func (d *Driver) HandlePhyEvent(e PhyEvent) *radio.PhyResponse {
	return e.Response
}

// GetRxWindowOffsetMs and GetRxWindowDurationMs satisfy radio.Timings;
// the simulated driver has no clock drift to compensate for.
func (d *Driver) GetRxWindowOffsetMs() int { return 0 }

func (d *Driver) GetRxWindowDurationMs() uint { return uint(d.cfg.RxWindowDurationMs) }

var _ radio.FullDriver[PhyEvent] = (*Driver)(nil)
