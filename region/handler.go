// Package region encapsulates the per-region regulatory parameters a
// Class-A device needs: uplink/downlink frequency selection, RX1/RX2
// and join-accept delays, and post-join channel-list ingestion. It is a
// variant-dispatched façade over one implementation per supported
// region.
package region

import "github.com/brocaar/lorawan"

// Region names a supported regional parameters revision.
type Region int

const (
	US915 Region = iota
	EU868
	CN470
)

// JoinAccept carries the fields of a decrypted join-accept payload that
// the region handler cares about: the CFList, if any, used to extend
// the data-channel plan.
type JoinAccept struct {
	CFList *lorawan.CFList
}

// Handler is the behavioral contract every region implementation
// satisfies. r is an 8-bit random byte the caller supplies for each
// frequency decision; implementations derive a channel index from its
// low bits and, when no sub-band is pinned, a sub-band from higher
// bits, caching the last transmitted channel so RX1 can mirror it.
type Handler interface {
	SetSubBand(subband uint8)
	SetChannelMask(mask []bool)
	GetJoinFrequency(r uint8) uint32
	GetDataFrequency(r uint8) uint32
	GetJoinAcceptFrequency1() uint32
	GetRxWindow1Frequency() uint32
	GetRxWindow2Frequency() (freq uint32, dr uint8)
	GetJoinAcceptDelay1() uint32
	GetJoinAcceptDelay2() uint32
	GetReceiveDelay1() uint32
	GetReceiveDelay2() uint32
	GetNbReservedChannels() int
	ProcessJoinAccept(ja JoinAccept)
}

// Configuration is the region façade the engine holds: one concrete
// implementation selected at construction, reached through the Handler
// interface for every subsequent call.
type Configuration struct {
	Handler
}

// NewConfiguration constructs the façade for the given region.
func NewConfiguration(r Region) Configuration {
	switch r {
	case US915:
		return Configuration{Handler: newUS915()}
	case EU868:
		return Configuration{Handler: newEU868()}
	case CN470:
		return Configuration{Handler: newCN470()}
	default:
		return Configuration{Handler: newUS915()}
	}
}
