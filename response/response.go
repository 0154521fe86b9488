// Package response defines the engine-wide Response alphabet
// (spec.md §6) returned alongside the updated state from every
// HandleEvent call, whether the call lands in the radio machine, the
// no-session join machine, or the joined-session machine.
package response

// Kind enumerates every member of the Response alphabet.
type Kind int

const (
	// Idle is the quiescent response: nothing scheduled, no action
	// required of the host.
	Idle Kind = iota
	// TimeoutRequest asks the host to deliver Event.Timeout at or
	// after AbsMs.
	TimeoutRequest
	// SendingJoinRequest reports that a join-request is in flight on
	// an asynchronous radio driver.
	SendingJoinRequest
	// WaitingForJoinAccept reports that RX1 or RX2 for a join-accept
	// has been configured and is now open.
	WaitingForJoinAccept
	// Rxing reports that a data-frame RX window has been configured
	// and is now open.
	Rxing
	// NewSession reports a successful join: the caller should adopt
	// the JoinedSession the no-session machine returned alongside
	// this response.
	NewSession
	// SendingDataUp reports that an uplink is in flight on an
	// asynchronous radio driver, carrying the post-increment fcnt_up.
	SendingDataUp
	// WaitingForDataDown reports that a received frame failed
	// acceptance; the RX window stays open.
	WaitingForDataDown
	// DataDown reports an accepted downlink, carrying the new
	// fcnt_down.
	DataDown
	// NoAck reports that a confirmed uplink went unacknowledged after
	// both RX windows closed.
	NoAck
	// ReadyToSend reports that an unconfirmed uplink's RX windows
	// both closed; the device is free to send again.
	ReadyToSend
	// JoinFailed reports that MaxJoinAttempts was reached (SPEC_FULL
	// §6.1's resolution of spec.md's open join_attempts question).
	JoinFailed
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case TimeoutRequest:
		return "TimeoutRequest"
	case SendingJoinRequest:
		return "SendingJoinRequest"
	case WaitingForJoinAccept:
		return "WaitingForJoinAccept"
	case Rxing:
		return "Rxing"
	case NewSession:
		return "NewSession"
	case SendingDataUp:
		return "SendingDataUp"
	case WaitingForDataDown:
		return "WaitingForDataDown"
	case DataDown:
		return "DataDown"
	case NoAck:
		return "NoAck"
	case ReadyToSend:
		return "ReadyToSend"
	case JoinFailed:
		return "JoinFailed"
	default:
		return "Unknown"
	}
}

// Response is the value every HandleEvent call returns alongside the
// updated state. Only the field relevant to Kind is meaningful.
type Response struct {
	Kind     Kind
	AbsMs    uint32
	FCntUp   uint32
	FCntDown uint32
	Attempts uint32
}
