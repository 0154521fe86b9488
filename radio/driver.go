package radio

// Driver is the interface the host implements for its transceiver.
// E is the host's own phy-event type (an interrupt flag, a DMA
// completion record, whatever the silicon driver represents it as);
// the engine never inspects it, only threads it through to
// HandlePhyEvent.
type Driver[E any] interface {
	ConfigureTX(cfg TxConfig)
	ConfigureRX(cfg RfConfig)
	// Send transmits buf. The driver may copy out of buf immediately
	// (synchronous) or keep transmitting after Send returns
	// (asynchronous, completion reported later via HandlePhyEvent).
	Send(buf []byte)
	SetRX()
	CancelTX() error
	CancelRX() error
	// GetReceivedPacket returns the buffer holding the most recently
	// received packet. Mutable so the engine can decrypt in place.
	GetReceivedPacket() []byte
	// HandlePhyEvent folds a host phy event into a semantic outcome.
	// A nil response means the event did not conclude the in-flight
	// operation (e.g. a spurious interrupt).
	HandlePhyEvent(e E) *PhyResponse
}

// Timings is implemented alongside Driver to expose the actual RX
// window geometry the silicon achieves, since real oscillators drift
// from the nominal protocol delays.
type Timings interface {
	// GetRxWindowOffsetMs returns the number of milliseconds to add to
	// (may be negative: subtract from) the nominal RX delay to open the
	// window early enough to catch clock drift.
	GetRxWindowOffsetMs() int
	// GetRxWindowDurationMs returns how long the window should stay
	// open once opened.
	GetRxWindowDurationMs() uint
}

// FullDriver is the complete capability set the engine requires of a
// host driver: Driver plus Timings. Every concrete driver the engine
// holds (FakeDriver included) satisfies both.
type FullDriver[E any] interface {
	Driver[E]
	Timings
}
