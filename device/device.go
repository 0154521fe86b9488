// Package device is the top-level engine entry point (spec.md §4.6):
// a tagged union over the NoSession and Session machine families that
// performs the one-directional cross-family transitions spec.md §9
// describes, join on the way in, re-join on ADR's say-so on the way
// out, and forwards every other event to whichever family currently
// owns the shared context.
package device

import (
	"github.com/r3dpanda-labs/lorawan-device/engineerr"
	"github.com/r3dpanda-labs/lorawan-device/macframe"
	"github.com/r3dpanda-labs/lorawan-device/nosession"
	"github.com/r3dpanda-labs/lorawan-device/response"
	"github.com/r3dpanda-labs/lorawan-device/session"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

// Family names which machine currently owns the shared context.
type Family int

const (
	FamilyNoSession Family = iota
	FamilySession
)

func (f Family) String() string {
	if f == FamilySession {
		return "Session"
	}
	return "NoSession"
}

// EventKind is the device-level input alphabet: the union of both
// families' events plus the application-facing Send request, which
// only SendData's case class, the session machine accepts; while no
// session exists the device rejects it with a ProgrammingError.
type EventKind int

const (
	// NewSession requests (or re-requests) a join attempt. Valid in
	// either family; arriving in Session tears the session down first.
	NewSession EventKind = iota
	// Send requests an application uplink. Valid only in Session;
	// arriving in NoSession is a programming error.
	Send
	// Timeout delivers a previously requested TimeoutRequest.
	Timeout
	// RadioEvent delivers a host phy interrupt.
	RadioEvent
)

// Event wraps the device-level input alphabet.
type Event[E any] struct {
	Kind EventKind
	Send session.SendParams
	Phy  E
}

// OnResponse, when set, is invoked with every Response the engine
// produces, in addition to HandleEvent returning it, so a host can
// wire a single observation point for logging/metrics without
// threading the return value through every call site (SPEC_FULL §7.6).
type Device[E any] struct {
	family          Family
	noSession       *nosession.Machine[E]
	activeSession   *session.Machine[E]
	maxJoinAttempts uint32
	OnResponse      func(response.Response)
}

// New constructs a Device starting in NoSession::Idle. maxJoinAttempts
// is forwarded to the NoSession machine unchanged; 0 means unbounded.
func New[E any](ctx *shared.Context[E], maxJoinAttempts uint32) *Device[E] {
	return &Device[E]{
		family:          FamilyNoSession,
		noSession:       nosession.New(ctx, maxJoinAttempts),
		maxJoinAttempts: maxJoinAttempts,
	}
}

// Family reports which machine currently owns the shared context.
func (d *Device[E]) Family() Family { return d.family }

// Shared returns the context whichever active machine currently owns.
func (d *Device[E]) Shared() *shared.Context[E] {
	if d.family == FamilySession {
		return d.activeSession.Shared()
	}
	return d.noSession.Shared()
}

// Send is sugar for HandleEvent(Event{Kind: Send, ...}).
func (d *Device[E]) Send(payload []byte, fport uint8, confirmed bool) (response.Response, error) {
	return d.HandleEvent(Event[E]{Kind: Send, Send: session.SendParams{Payload: payload, FPort: fport, Confirmed: confirmed}})
}

// GetDownlinkPayload drains and returns the pending data downlink's
// decrypted application payload and port, if any is currently staged.
func (d *Device[E]) GetDownlinkPayload() (payload []byte, fport uint8, ok bool) {
	ctx := d.Shared()
	if ctx.Downlink == nil || ctx.Downlink.Kind != shared.DownlinkData {
		return nil, 0, false
	}
	data := ctx.Downlink.Data
	ctx.Downlink = nil
	return data.Payload, data.FPort, true
}

// GetDownlinkMAC drains and returns the pending join-accept downlink,
// staged the instant a join succeeds, alongside GetDownlinkPayload's
// data-frame slot (spec.md §4.6).
func (d *Device[E]) GetDownlinkMAC() (join macframe.DecryptedJoinAccept, ok bool) {
	ctx := d.Shared()
	if ctx.Downlink == nil || ctx.Downlink.Kind != shared.DownlinkJoin {
		return macframe.DecryptedJoinAccept{}, false
	}
	join = *ctx.Downlink.Join
	ctx.Downlink = nil
	return join, true
}

// HandleEvent is the total reducer dispatching to whichever family is
// currently active, performing the cross-family transitions at the
// seams.
func (d *Device[E]) HandleEvent(event Event[E]) (response.Response, error) {
	var resp response.Response
	var err error

	switch d.family {
	case FamilyNoSession:
		resp, err = d.handleNoSession(event)
	case FamilySession:
		resp, err = d.handleSession(event)
	default:
		return response.Response{}, engineerr.ProgrammingError("device", "unknown family")
	}

	if err == nil && d.OnResponse != nil {
		d.OnResponse(resp)
	}
	return resp, err
}

func (d *Device[E]) handleNoSession(event Event[E]) (response.Response, error) {
	var nsEvent nosession.Event[E]
	switch event.Kind {
	case NewSession:
		nsEvent = nosession.Event[E]{Kind: nosession.NewSession}
	case Timeout:
		nsEvent = nosession.Event[E]{Kind: nosession.Timeout}
	case RadioEvent:
		nsEvent = nosession.Event[E]{Kind: nosession.RadioEvent, Phy: event.Phy}
	case Send:
		return response.Response{}, engineerr.ProgrammingError("device", "send requested while no session exists")
	default:
		return response.Response{}, engineerr.ProgrammingError("device", "unhandled event kind in NoSession")
	}

	resp, joined, err := d.noSession.HandleEvent(nsEvent)
	if err != nil {
		return response.Response{}, err
	}
	if joined != nil {
		d.activeSession = session.New(d.noSession.Shared(), joined.Data)
		d.noSession = nil
		d.family = FamilySession
	}
	return resp, nil
}

func (d *Device[E]) handleSession(event Event[E]) (response.Response, error) {
	if event.Kind == NewSession {
		ctx := d.activeSession.Shared()
		ctx.Downlink = nil
		d.noSession = nosession.New(ctx, d.maxJoinAttempts)
		d.activeSession = nil
		d.family = FamilyNoSession
		return d.handleNoSession(event)
	}

	var sEvent session.Event[E]
	switch event.Kind {
	case Send:
		sEvent = session.Event[E]{Kind: session.SendData, Send: event.Send}
	case Timeout:
		sEvent = session.Event[E]{Kind: session.Timeout}
	case RadioEvent:
		sEvent = session.Event[E]{Kind: session.RadioEvent, Phy: event.Phy}
	default:
		return response.Response{}, engineerr.ProgrammingError("device", "unhandled event kind in Session")
	}

	resp, err := d.activeSession.HandleEvent(sEvent)
	if err != nil {
		return response.Response{}, err
	}

	if d.activeSession.NeedsRejoin() {
		ctx := d.activeSession.Shared()
		ctx.Downlink = nil
		d.noSession = nosession.New(ctx, d.maxJoinAttempts)
		d.activeSession = nil
		d.family = FamilyNoSession
	}

	return resp, nil
}
