// Package session implements the joined-session state machine of
// spec.md §4.5: Idle -> SendingData -> WaitingForRxWindow ->
// WaitingForRx, looping back to Idle once both RX windows have been
// given their chance at a downlink.
package session

import (
	"errors"

	"github.com/r3dpanda-labs/lorawan-device/adrstate"
	"github.com/r3dpanda-labs/lorawan-device/engineerr"
	"github.com/r3dpanda-labs/lorawan-device/macexec"
	"github.com/r3dpanda-labs/lorawan-device/macframe"
	"github.com/r3dpanda-labs/lorawan-device/radio"
	"github.com/r3dpanda-labs/lorawan-device/response"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

// Phase names the four states of the joined-session machine.
type Phase int

const (
	Idle Phase = iota
	SendingData
	WaitingForRxWindow
	WaitingForRx
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case SendingData:
		return "SendingData"
	case WaitingForRxWindow:
		return "WaitingForRxWindow"
	case WaitingForRx:
		return "WaitingForRx"
	default:
		return "Unknown"
	}
}

// EventKind is the input alphabet accepted by the session machine.
type EventKind int

const (
	SendData EventKind = iota
	Timeout
	RadioEvent
)

// SendParams describes an application uplink request.
type SendParams struct {
	Payload   []byte
	FPort     uint8
	Confirmed bool
}

// Event wraps the session machine's input alphabet. Send is only
// meaningful for SendData, Phy only for RadioEvent.
type Event[E any] struct {
	Kind EventKind
	Send SendParams
	Phy  E
}

// dataTxPower is the fixed transmit power for data uplinks (spec.md
// §6), matching the join-request power; this engine has no power
// step-down policy, and LinkADRReq is acknowledged without changing it.
const dataTxPower = 20

// Machine is the joined-session state machine. The zero value is not
// usable; construct with New.
type Machine[E any] struct {
	phase      Phase
	shared     *shared.Context[E]
	data       shared.SessionData
	adr        adrstate.Tracker
	confirmed  bool
	rx2        bool
	needsRejoin bool
}

// New constructs a session machine starting in Idle, adopting ctx and
// the session material a successful join produced.
func New[E any](ctx *shared.Context[E], data shared.SessionData) *Machine[E] {
	return &Machine[E]{shared: ctx, data: data}
}

// Phase reports the machine's current state.
func (m *Machine[E]) Phase() Phase { return m.phase }

// Data reports the session's current identity/keys/counters.
func (m *Machine[E]) Data() shared.SessionData { return m.data }

// Shared returns the context this machine currently owns.
func (m *Machine[E]) Shared() *shared.Context[E] { return m.shared }

// NeedsRejoin reports whether ADR_ACK_LIMIT+ADR_ACK_DELAY uplinks have
// passed without an accepted downlink (SPEC_FULL §6.3). The device
// aggregator observes this after every HandleEvent call and, when
// true, tears this machine down in favor of a fresh NoSession machine;
// Session itself never constructs NoSession, keeping the dependency
// tree one-directional.
func (m *Machine[E]) NeedsRejoin() bool { return m.needsRejoin }

// HandleEvent is the total reducer over the session machine's four
// phases.
func (m *Machine[E]) HandleEvent(event Event[E]) (response.Response, error) {
	switch m.phase {
	case Idle:
		return m.handleIdle(event)
	case SendingData:
		return m.handleSendingData(event)
	case WaitingForRxWindow:
		return m.handleWaitingForRxWindow(event)
	case WaitingForRx:
		return m.handleWaitingForRx(event)
	default:
		return response.Response{}, engineerr.ProgrammingError("session", "unknown phase")
	}
}

func (m *Machine[E]) handleIdle(event Event[E]) (response.Response, error) {
	if event.Kind != SendData {
		return response.Response{}, engineerr.ProgrammingError("session", "non-senddata event while Idle")
	}

	m.shared.ResetScratch()
	m.confirmed = event.Send.Confirmed

	fopts := m.shared.MacQueue.Drain()
	adrAckReq := m.adr.ShouldSetADRAckReq()
	if code := m.adr.OnUplinkSent(); code == adrstate.CodeRejoin {
		m.needsRejoin = true
	}

	buf, err := macframe.BuildDataUplink(macframe.UplinkParams{
		DevAddr:   m.data.DevAddr,
		NwkSKey:   m.data.NwkSKey,
		AppSKey:   m.data.AppSKey,
		FCnt:      m.data.FCntUp,
		FPort:     event.Send.FPort,
		Confirmed: event.Send.Confirmed,
		ADRAckReq: adrAckReq,
		FOpts:     fopts,
	}, event.Send.Payload)
	if err != nil {
		return response.Response{}, engineerr.AssemblyError("session", "build data uplink", err)
	}
	if !m.shared.WriteScratch(buf) {
		return response.Response{}, engineerr.AssemblyError("session", "uplink exceeds scratch buffer", errors.New("buffer overflow"))
	}
	m.data.FCntUp++

	random := m.shared.Rand()
	freq := m.shared.Region.GetDataFrequency(uint8(random))

	radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{
		Kind: radio.TxRequest,
		Tx: radio.TxConfig{
			Power: dataTxPower,
			RF: radio.RfConfig{
				Frequency:       freq,
				Bandwidth:       radio.Bandwidth125KHz,
				SpreadingFactor: radio.SF10,
				CodingRate:      radio.CodingRate4_5,
			},
		},
		TxBuf: m.shared.ScratchBytes(),
	})
	if err != nil {
		return response.Response{}, engineerr.PhyError("session", err)
	}

	switch radResp.Kind {
	case radio.RespTransmitting:
		m.phase = SendingData
		return response.Response{Kind: response.SendingDataUp, FCntUp: m.data.FCntUp}, nil
	case radio.RespTxComplete:
		m.phase = WaitingForRxWindow
		m.rx2 = false
		abs := m.shared.Region.GetReceiveDelay1() + radResp.TxDoneMs
		return response.Response{Kind: response.TimeoutRequest, AbsMs: abs}, nil
	default:
		return response.Response{}, engineerr.ProgrammingError("session", "unexpected radio response to data TxRequest")
	}
}

func (m *Machine[E]) handleSendingData(event Event[E]) (response.Response, error) {
	if event.Kind != RadioEvent {
		return response.Response{}, engineerr.ProgrammingError("session", "non-radio event while SendingData")
	}

	radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.PhyEvent, Phy: event.Phy})
	if err != nil {
		return response.Response{}, engineerr.PhyError("session", err)
	}
	if radResp.Kind != radio.RespTxComplete {
		return response.Response{Kind: response.SendingDataUp, FCntUp: m.data.FCntUp}, nil
	}

	m.phase = WaitingForRxWindow
	m.rx2 = false
	abs := m.shared.Region.GetReceiveDelay1() + radResp.TxDoneMs
	return response.Response{Kind: response.TimeoutRequest, AbsMs: abs}, nil
}

func (m *Machine[E]) handleWaitingForRxWindow(event Event[E]) (response.Response, error) {
	if event.Kind != Timeout {
		return response.Response{}, engineerr.ProgrammingError("session", "non-timeout event while WaitingForRxWindow")
	}

	if err := m.openRxWindow(); err != nil {
		return response.Response{}, err
	}

	m.phase = WaitingForRx
	return response.Response{Kind: response.TimeoutRequest, AbsMs: m.rxWindowCloseMs()}, nil
}

func (m *Machine[E]) handleWaitingForRx(event Event[E]) (response.Response, error) {
	switch event.Kind {
	case RadioEvent:
		radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.PhyEvent, Phy: event.Phy})
		if err != nil {
			return response.Response{}, engineerr.PhyError("session", err)
		}
		if radResp.Kind != radio.RespRx {
			return response.Response{Kind: response.Rxing}, nil
		}

		buf := m.shared.Driver.GetReceivedPacket()
		decrypted, err := macframe.AcceptDataDownlink(buf, m.data.DevAddr, m.data.NwkSKey, m.data.AppSKey, m.data.FCntDown)
		if err != nil {
			// A foreign frame, a failed MIC, or a replayed counter is not
			// a protocol error; the same window is re-armed and keeps
			// listening until its timeout.
			if err := m.openRxWindow(); err != nil {
				return response.Response{}, err
			}
			return response.Response{Kind: response.WaitingForDataDown}, nil
		}

		m.data.FCntDown = decrypted.FCnt
		m.adr.OnDownlinkAccepted()

		if len(decrypted.FOpts) > 0 {
			if _, err := macexec.Execute(decrypted.FOpts, m.shared.Region.Handler, &m.shared.MacQueue); err != nil {
				return response.Response{}, engineerr.AssemblyError("session", "execute downlink mac commands", err)
			}
		}

		m.shared.Downlink = &shared.Downlink{Kind: shared.DownlinkData, Data: decrypted}
		m.phase = Idle
		return response.Response{Kind: response.DataDown, FCntDown: m.data.FCntDown}, nil

	case Timeout:
		if _, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.Timeout}); err != nil {
			return response.Response{}, engineerr.PhyError("session", err)
		}

		if !m.rx2 {
			m.rx2 = true
			m.phase = WaitingForRxWindow
			return response.Response{Kind: response.TimeoutRequest, AbsMs: m.rx2Gap()}, nil
		}

		// RX2 closed with nothing accepted: this uplink's cycle ends.
		m.phase = Idle
		m.rx2 = false
		if m.confirmed {
			return response.Response{Kind: response.NoAck}, nil
		}
		return response.Response{Kind: response.ReadyToSend}, nil

	default:
		return response.Response{}, engineerr.ProgrammingError("session", "unhandled event kind while WaitingForRx")
	}
}

// openRxWindow configures RX1 or RX2 depending on m.rx2, matching the
// fixed-bandwidth/fixed-coding-rate window geometry spec.md §6 uses
// for both join-accept and data downlinks.
func (m *Machine[E]) openRxWindow() error {
	var rf radio.RfConfig
	if !m.rx2 {
		rf = radio.RfConfig{
			Frequency:       m.shared.Region.GetRxWindow1Frequency(),
			Bandwidth:       radio.Bandwidth500KHz,
			SpreadingFactor: radio.SF10,
			CodingRate:      radio.CodingRate4_5,
		}
	} else {
		freq, dr := m.shared.Region.GetRxWindow2Frequency()
		rf = radio.RfConfig{
			Frequency:       freq,
			Bandwidth:       radio.Bandwidth500KHz,
			SpreadingFactor: dataRateToSF(dr),
			CodingRate:      radio.CodingRate4_5,
		}
	}

	_, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.RxRequest, Rx: rf})
	if err != nil {
		return engineerr.PhyError("session", err)
	}
	return nil
}

// rx2Gap is the delay between RX1 and RX2 opening, per spec.md §6.
func (m *Machine[E]) rx2Gap() uint32 {
	return m.shared.Region.GetReceiveDelay2() - m.shared.Region.GetReceiveDelay1()
}

// rxWindowCloseMs reports how long the window just opened by
// openRxWindow should stay open, per the driver's own Timings
// capability (spec.md §4.5). RX1 is clamped so it never runs past the
// moment RX2 must open; RX2 has nothing after it to clamp against.
func (m *Machine[E]) rxWindowCloseMs() uint32 {
	duration := uint32(m.shared.Driver.GetRxWindowDurationMs())
	if !m.rx2 {
		if gap := m.rx2Gap(); duration > gap {
			duration = gap
		}
	}
	return duration
}

// dataRateToSF maps a region-reported RX2 data-rate index to a
// spreading factor, mirroring nosession's join-accept RX2 handling
// since both windows share the same fixed RX2 channel.
func dataRateToSF(dr uint8) radio.SpreadingFactor {
	if dr >= 8 {
		return radio.SF10
	}
	return radio.SF12
}
