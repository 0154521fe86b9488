package radio

// FakePhyEvent is the phy-event type used by FakeDriver. Tests construct
// one directly to drive the state machine through either the
// synchronous path (an event carrying a non-nil Response delivered
// immediately after Send/SetRX) or the asynchronous path (several
// no-op events before the one that resolves).
type FakePhyEvent struct {
	Response *PhyResponse
}

// FakeDriver is a deterministic in-memory radio driver for tests; the
// harness's simulated device uses radiofake.Driver instead. It never
// touches real hardware;
// CancelTX/CancelRX succeed unless explicitly configured to fail.
type FakeDriver struct {
	TXConfig TxConfig
	RXConfig RfConfig
	Sent     []byte
	RxBuf    []byte

	CancelTXErr error
	CancelRXErr error

	ConfiguredTX bool
	ConfiguredRX bool
	SentCount    int
	RxSetCount   int

	// RxWindowOffsetMs and RxWindowDurationMs back the Timings
	// capability; tests set these to exercise RX-window close-time
	// computation deterministically.
	RxWindowOffsetMs   int
	RxWindowDurationMs uint
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) ConfigureTX(cfg TxConfig) {
	f.TXConfig = cfg
	f.ConfiguredTX = true
}

func (f *FakeDriver) ConfigureRX(cfg RfConfig) {
	f.RXConfig = cfg
	f.ConfiguredRX = true
}

func (f *FakeDriver) Send(buf []byte) {
	f.Sent = append([]byte(nil), buf...)
	f.SentCount++
}

func (f *FakeDriver) SetRX() {
	f.RxSetCount++
}

func (f *FakeDriver) CancelTX() error {
	return f.CancelTXErr
}

func (f *FakeDriver) CancelRX() error {
	return f.CancelRXErr
}

func (f *FakeDriver) GetReceivedPacket() []byte {
	return f.RxBuf
}

func (f *FakeDriver) HandlePhyEvent(e FakePhyEvent) *PhyResponse {
	return e.Response
}

// SetReceivedPacket stages the bytes GetReceivedPacket will return on
// the next call, simulating a packet having landed in the driver's
// receive buffer ahead of an RxDone phy event.
func (f *FakeDriver) SetReceivedPacket(buf []byte) {
	f.RxBuf = buf
}

func (f *FakeDriver) GetRxWindowOffsetMs() int { return f.RxWindowOffsetMs }

func (f *FakeDriver) GetRxWindowDurationMs() uint { return f.RxWindowDurationMs }

var _ FullDriver[FakePhyEvent] = (*FakeDriver)(nil)
