// Package nosession implements the join (OTAA) state machine of
// spec.md §4.4: Idle -> SendingJoin -> WaitingForRxWindow ->
// WaitingForJoinResponse, with a cross-family transition into the
// Session machine on a successfully validated join-accept.
package nosession

import (
	"errors"

	"github.com/brocaar/lorawan"

	"github.com/r3dpanda-labs/lorawan-device/engineerr"
	"github.com/r3dpanda-labs/lorawan-device/macframe"
	"github.com/r3dpanda-labs/lorawan-device/radio"
	"github.com/r3dpanda-labs/lorawan-device/region"
	"github.com/r3dpanda-labs/lorawan-device/response"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

// Phase names the four states of the join machine.
type Phase int

const (
	Idle Phase = iota
	SendingJoin
	WaitingForRxWindow
	WaitingForJoinResponse
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case SendingJoin:
		return "SendingJoin"
	case WaitingForRxWindow:
		return "WaitingForRxWindow"
	case WaitingForJoinResponse:
		return "WaitingForJoinResponse"
	default:
		return "Unknown"
	}
}

// EventKind is the input alphabet accepted by the join machine:
// NewSession, Timeout (also the join-retry trigger per spec.md §8),
// and RadioEvent.
type EventKind int

const (
	NewSession EventKind = iota
	Timeout
	RadioEvent
)

// Event wraps the join machine's input alphabet. Phy is only
// meaningful for RadioEvent.
type Event[E any] struct {
	Kind EventKind
	Phy  E
}

// JoinedSession is returned by HandleEvent exactly once, the instant a
// join-accept is accepted; the device aggregator uses it to construct
// a fresh Session machine, completing spec.md §9's cross-family
// transition.
type JoinedSession struct {
	Data shared.SessionData
}

// radio configuration constants fixed by spec.md §6.
const (
	joinTxPower = 20
)

// Machine is the no-session join state machine. The zero value is not
// usable; construct with New.
type Machine[E any] struct {
	phase           Phase
	shared          *shared.Context[E]
	devNonce        lorawan.DevNonce
	joinAttempts    uint32
	maxJoinAttempts uint32
	awaitingRx2     bool
}

// New constructs a join machine starting in Idle, owning ctx for its
// residency. Once maxJoinAttempts attempts have failed, each further
// failed attempt reports JoinFailed instead of Idle; a later NewSession
// or Timeout still starts a new attempt. 0 means unbounded, matching
// the original implementation's uncapped counter (spec.md §9 Open
// Question).
func New[E any](ctx *shared.Context[E], maxJoinAttempts uint32) *Machine[E] {
	return &Machine[E]{shared: ctx, maxJoinAttempts: maxJoinAttempts}
}

// Phase reports the machine's current state.
func (m *Machine[E]) Phase() Phase { return m.phase }

// JoinAttempts reports the number of join attempts made so far
// (SPEC_FULL §6.1).
func (m *Machine[E]) JoinAttempts() uint32 { return m.joinAttempts }

// Shared returns the context this machine currently owns. The device
// aggregator reclaims it across a cross-family transition.
func (m *Machine[E]) Shared() *shared.Context[E] { return m.shared }

// HandleEvent is the total reducer over the join machine's four
// phases. A non-nil *JoinedSession return signals the cross-family
// transition into Session::Idle.
func (m *Machine[E]) HandleEvent(event Event[E]) (response.Response, *JoinedSession, error) {
	switch m.phase {
	case Idle:
		return m.handleIdle(event)
	case SendingJoin:
		return m.handleSendingJoin(event)
	case WaitingForRxWindow:
		return m.handleWaitingForRxWindow(event)
	case WaitingForJoinResponse:
		return m.handleWaitingForJoinResponse(event)
	default:
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "unknown phase")
	}
}

func (m *Machine[E]) handleIdle(event Event[E]) (response.Response, *JoinedSession, error) {
	switch event.Kind {
	case NewSession, Timeout:
		m.shared.ResetScratch()
		devNonce, txCfg, err := m.buildJoinRequest()
		if err != nil {
			return response.Response{}, nil, engineerr.AssemblyError("nosession", "build join request", err)
		}
		m.devNonce = devNonce

		radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{
			Kind:  radio.TxRequest,
			Tx:    txCfg,
			TxBuf: m.shared.ScratchBytes(),
		})
		if err != nil {
			return response.Response{}, nil, engineerr.PhyError("nosession", err)
		}
		m.joinAttempts++

		switch radResp.Kind {
		case radio.RespTransmitting:
			m.phase = SendingJoin
			return response.Response{Kind: response.Idle}, nil, nil
		case radio.RespTxComplete:
			m.phase = WaitingForRxWindow
			abs := m.shared.Region.GetJoinAcceptDelay1() + radResp.TxDoneMs
			return response.Response{Kind: response.TimeoutRequest, AbsMs: abs}, nil, nil
		default:
			return response.Response{}, nil, engineerr.ProgrammingError("nosession", "unexpected radio response to join TxRequest")
		}
	case RadioEvent:
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "radio event while Idle")
	default:
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "unhandled event kind while Idle")
	}
}

func (m *Machine[E]) handleSendingJoin(event Event[E]) (response.Response, *JoinedSession, error) {
	if event.Kind != RadioEvent {
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "non-radio event while SendingJoin")
	}

	radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.PhyEvent, Phy: event.Phy})
	if err != nil {
		return response.Response{}, nil, engineerr.PhyError("nosession", err)
	}
	if radResp.Kind != radio.RespTxComplete {
		return response.Response{Kind: response.SendingJoinRequest}, nil, nil
	}

	m.phase = WaitingForRxWindow
	abs := m.shared.Region.GetJoinAcceptDelay1() + radResp.TxDoneMs
	return response.Response{Kind: response.TimeoutRequest, AbsMs: abs}, nil, nil
}

func (m *Machine[E]) handleWaitingForRxWindow(event Event[E]) (response.Response, *JoinedSession, error) {
	if event.Kind != Timeout {
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "non-timeout event while WaitingForRxWindow")
	}

	freq := m.shared.Region.GetJoinAcceptFrequency1()
	_, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{
		Kind: radio.RxRequest,
		Rx: radio.RfConfig{
			Frequency:       freq,
			Bandwidth:       radio.Bandwidth500KHz,
			SpreadingFactor: radio.SF10,
			CodingRate:      radio.CodingRate4_5,
		},
	})
	if err != nil {
		return response.Response{}, nil, engineerr.PhyError("nosession", err)
	}

	m.awaitingRx2 = false
	m.phase = WaitingForJoinResponse
	return response.Response{Kind: response.WaitingForJoinAccept}, nil, nil
}

func (m *Machine[E]) handleWaitingForJoinResponse(event Event[E]) (response.Response, *JoinedSession, error) {
	switch event.Kind {
	case RadioEvent:
		radResp, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.PhyEvent, Phy: event.Phy})
		if err != nil {
			return response.Response{}, nil, engineerr.PhyError("nosession", err)
		}
		if radResp.Kind != radio.RespRx {
			return response.Response{Kind: response.WaitingForJoinAccept}, nil, nil
		}

		buf := m.shared.Driver.GetReceivedPacket()
		result, err := macframe.ParseJoinAccept(buf, m.shared.Credentials.AppKey)
		if err != nil {
			// A foreign or corrupted frame during the join-accept
			// window is not a protocol error; the same window is
			// re-armed and keeps listening until its timeout.
			rx := radio.RfConfig{Frequency: m.shared.Region.GetJoinAcceptFrequency1(), Bandwidth: radio.Bandwidth500KHz, SpreadingFactor: radio.SF10, CodingRate: radio.CodingRate4_5}
			if m.awaitingRx2 {
				freq, dr := m.shared.Region.GetRxWindow2Frequency()
				rx.Frequency, rx.SpreadingFactor = freq, dataRateToSF(dr)
			}
			if _, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.RxRequest, Rx: rx}); err != nil {
				return response.Response{}, nil, engineerr.PhyError("nosession", err)
			}
			return response.Response{Kind: response.WaitingForJoinAccept}, nil, nil
		}

		nwkSKey, appSKey, err := macframe.DeriveSessionKeys(result.Payload.JoinNonce, result.Payload.HomeNetID, m.devNonce, m.shared.Credentials.AppKey)
		if err != nil {
			return response.Response{}, nil, engineerr.AssemblyError("nosession", "derive session keys", err)
		}

		m.shared.Region.ProcessJoinAccept(region.JoinAccept{CFList: result.Payload.CFList})
		decrypted := result.ToDecrypted()
		m.shared.Downlink = &shared.Downlink{Kind: shared.DownlinkJoin, Join: &decrypted}

		data := shared.SessionData{
			DevAddr:  result.Payload.DevAddr,
			NwkSKey:  nwkSKey,
			AppSKey:  appSKey,
			FCntUp:   0,
			FCntDown: 0,
		}
		return response.Response{Kind: response.NewSession}, &JoinedSession{Data: data}, nil

	case Timeout:
		if _, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{Kind: radio.Timeout}); err != nil {
			return response.Response{}, nil, engineerr.PhyError("nosession", err)
		}

		if !m.awaitingRx2 {
			freq, dr := m.shared.Region.GetRxWindow2Frequency()
			_, err := m.shared.RadioMac.HandleEvent(m.shared.Driver, radio.Event[E]{
				Kind: radio.RxRequest,
				Rx: radio.RfConfig{
					Frequency:       freq,
					Bandwidth:       radio.Bandwidth500KHz,
					SpreadingFactor: dataRateToSF(dr),
					CodingRate:      radio.CodingRate4_5,
				},
			})
			if err != nil {
				return response.Response{}, nil, engineerr.PhyError("nosession", err)
			}
			m.awaitingRx2 = true
			return response.Response{Kind: response.WaitingForJoinAccept}, nil, nil
		}

		// RX2 closed with no join-accept: this attempt failed.
		m.awaitingRx2 = false
		m.phase = Idle
		if m.maxJoinAttempts > 0 && m.joinAttempts >= m.maxJoinAttempts {
			return response.Response{Kind: response.JoinFailed, Attempts: m.joinAttempts}, nil, nil
		}
		return response.Response{Kind: response.Idle}, nil, nil

	default:
		return response.Response{}, nil, engineerr.ProgrammingError("nosession", "unhandled event kind while WaitingForJoinResponse")
	}
}

func (m *Machine[E]) buildJoinRequest() (lorawan.DevNonce, radio.TxConfig, error) {
	random := m.shared.Rand()

	buf, devNonce, err := macframe.BuildJoinRequest(m.shared.Credentials.AppEUI, m.shared.Credentials.DevEUI, m.shared.Credentials.AppKey, random)
	if err != nil {
		return 0, radio.TxConfig{}, err
	}
	if !m.shared.WriteScratch(buf) {
		return 0, radio.TxConfig{}, errors.New("nosession: join request exceeds scratch buffer")
	}

	// The DevNonce consumed the low 16 bits; the remaining bits pick
	// the join channel/sub-band, per spec.md §5.
	freqSeed := uint8(random >> 16)
	freq := m.shared.Region.GetJoinFrequency(freqSeed)

	return devNonce, radio.TxConfig{
		Power: joinTxPower,
		RF: radio.RfConfig{
			Frequency:       freq,
			Bandwidth:       radio.Bandwidth125KHz,
			SpreadingFactor: radio.SF10,
			CodingRate:      radio.CodingRate4_5,
		},
	}, nil
}

// dataRateToSF maps a region-reported RX2 data-rate index to a
// spreading factor. Regions in this engine only ever report DR0/DR8
// (SF12/SF10-equivalent class), which is all RX2 windows use here.
func dataRateToSF(dr uint8) radio.SpreadingFactor {
	if dr >= 8 {
		return radio.SF10
	}
	return radio.SF12
}
