// Package shared holds the Context every session state machine owns
// by value during its residency: device credentials, the region
// handler, the MAC-command queue, the 256-byte scratch buffer, the
// host's PRNG, and the at-most-one outstanding downlink slot. Context
// moves between states on every transition; it is never aliased, so
// no locking is needed to guard it.
package shared

import (
	"github.com/brocaar/lorawan"

	"github.com/r3dpanda-labs/lorawan-device/macframe"
	"github.com/r3dpanda-labs/lorawan-device/radio"
	"github.com/r3dpanda-labs/lorawan-device/region"
)

// ScratchBufferSize is the fixed capacity of the uplink/downlink
// scratch buffer. Assembly that would exceed it is an AssemblyError;
// it is never grown.
const ScratchBufferSize = 256

// MacQueueCapacity bounds the number of pending MAC-command answers
// the engine queues for the next uplink's FOpts.
const MacQueueCapacity = 8

// Credentials are the device's OTAA join material: immutable from
// construction onward.
type Credentials struct {
	DevEUI lorawan.EUI64
	AppEUI lorawan.EUI64
	AppKey lorawan.AES128Key
}

// SessionData is created fresh on a successful join-accept (or
// supplied directly for ABP-style construction, which this spec
// permits but does not itself drive). FCntUp is strictly monotonic
// per successful uplink assembly; FCntDown is monotonic non-decreasing
// with 0 accepted as an explicit server-side counter reset.
type SessionData struct {
	DevAddr  lorawan.DevAddr
	NwkSKey  lorawan.AES128Key
	AppSKey  lorawan.AES128Key
	FCntUp   uint32
	FCntDown uint32
}

// DownlinkKind tags which payload a Downlink slot carries.
type DownlinkKind int

const (
	DownlinkData DownlinkKind = iota
	DownlinkJoin
)

// Downlink is the at-most-one outstanding decrypted downlink the
// engine hands to the host. A new successful RX parse replaces
// whatever was here; nothing queues.
type Downlink struct {
	Kind DownlinkKind
	Data *macframe.DecryptedDataPayload
	Join *macframe.DecryptedJoinAccept
}

// MacCommandQueue holds FOpts mac-command answers awaiting the next
// uplink assembly. Capacity is fixed at MacQueueCapacity; a Push past
// capacity is a programming error (spec.md §5), never silently
// dropped or resized.
type MacCommandQueue struct {
	items [][]byte
}

// Push appends a MAC-command answer. It reports false if the queue is
// already at capacity, so the caller can raise an AssemblyError
// instead of overflowing.
func (q *MacCommandQueue) Push(cmd []byte) bool {
	if len(q.items) >= MacQueueCapacity {
		return false
	}
	q.items = append(q.items, cmd)
	return true
}

// Drain removes and returns every queued command, in FIFO order,
// leaving the queue empty. Called at uplink-assembly time.
func (q *MacCommandQueue) Drain() [][]byte {
	drained := q.items
	q.items = nil
	return drained
}

// Len reports the number of currently queued commands.
func (q *MacCommandQueue) Len() int {
	return len(q.items)
}

// Context is the shared state every NoSession/Session state owns by
// move while it is the active state. RadioMac is the three-state radio
// machine and Driver the host's concrete driver; Region is the regional
// parameters façade; Rand supplies 32 random bits per call, consumed
// 16 bits at a time for DevNonce/frequency selection and 32 bits for
// per-uplink frequency selection, matching spec.md §5.
type Context[E any] struct {
	Driver      radio.FullDriver[E]
	RadioMac    radio.Machine[E]
	Credentials Credentials
	Region      region.Configuration
	MacQueue    MacCommandQueue
	Scratch     [ScratchBufferSize]byte
	ScratchLen  int
	Rand        func() uint32
	Downlink    *Downlink
}

// New constructs a fresh Context. rand must never be nil; the engine
// never falls back to a default source.
func New[E any](driver radio.FullDriver[E], creds Credentials, reg region.Configuration, rand func() uint32) *Context[E] {
	return &Context[E]{
		Driver:      driver,
		Credentials: creds,
		Region:      reg,
		Rand:        rand,
	}
}

// ResetScratch zeroes the logical length of the scratch buffer without
// touching its backing array; a failed assembly always leaves
// ScratchLen at 0 per spec.md §8.
func (c *Context[E]) ResetScratch() {
	c.ScratchLen = 0
}

// WriteScratch copies buf into the scratch buffer, returning false
// (and leaving ScratchLen at 0) if buf would overflow
// ScratchBufferSize.
func (c *Context[E]) WriteScratch(buf []byte) bool {
	if len(buf) > ScratchBufferSize {
		c.ResetScratch()
		return false
	}
	n := copy(c.Scratch[:], buf)
	c.ScratchLen = n
	return true
}

// ScratchBytes returns the logically-valid prefix of the scratch
// buffer.
func (c *Context[E]) ScratchBytes() []byte {
	return c.Scratch[:c.ScratchLen]
}
