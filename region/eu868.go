package region

import "github.com/brocaar/lorawan"

const (
	eu868ReceiveDelay1    = 1000
	eu868ReceiveDelay2    = 2000
	eu868JoinAcceptDelay1 = 5000
	eu868JoinAcceptDelay2 = 6000
	eu868RxWindow2Freq    = 869525000
	eu868RxWindow2DR      = 0
)

var eu868JoinChannels = [3]uint32{868100000, 868300000, 868500000}

type eu868 struct {
	lastCh uint8
	cfList [5]uint32
	hasCF  bool
}

func newEU868() *eu868 {
	return &eu868{}
}

func (e *eu868) SetSubBand(subband uint8) {
	// EU868 has no sub-band concept; accepted for interface symmetry.
}

func (e *eu868) SetChannelMask(mask []bool) {
	// channel masking is left to the host.
}

func (e *eu868) GetJoinFrequency(r uint8) uint32 {
	channel := r % uint8(len(eu868JoinChannels))
	e.lastCh = channel
	return eu868JoinChannels[channel]
}

func (e *eu868) GetDataFrequency(r uint8) uint32 {
	if e.hasCF {
		channel := r & 0b111
		e.lastCh = channel
		if channel < 3 {
			return eu868JoinChannels[channel]
		}
		return e.cfList[channel-3]
	}
	channel := r % uint8(len(eu868JoinChannels))
	e.lastCh = channel
	return eu868JoinChannels[channel]
}

func (e *eu868) GetJoinAcceptFrequency1() uint32 {
	return eu868JoinChannels[e.lastCh]
}

func (e *eu868) GetRxWindow1Frequency() uint32 {
	return eu868JoinChannels[e.lastCh]
}

func (e *eu868) GetRxWindow2Frequency() (uint32, uint8) {
	return eu868RxWindow2Freq, eu868RxWindow2DR
}

func (e *eu868) GetJoinAcceptDelay1() uint32 { return eu868JoinAcceptDelay1 }
func (e *eu868) GetJoinAcceptDelay2() uint32 { return eu868JoinAcceptDelay2 }
func (e *eu868) GetReceiveDelay1() uint32    { return eu868ReceiveDelay1 }
func (e *eu868) GetReceiveDelay2() uint32    { return eu868ReceiveDelay2 }

func (e *eu868) GetNbReservedChannels() int {
	return len(eu868JoinChannels)
}

// ProcessJoinAccept ingests up to five CFList frequencies carried in the
// join-accept, extending the data-channel plan beyond the three fixed
// join channels.
func (e *eu868) ProcessJoinAccept(ja JoinAccept) {
	if ja.CFList == nil || ja.CFList.CFListType != lorawan.CFListChannel {
		return
	}
	channels, ok := ja.CFList.Payload.(*lorawan.CFListChannelPayload)
	if !ok {
		return
	}
	var list [5]uint32
	for i, ch := range channels.Channels {
		if i >= len(list) {
			break
		}
		list[i] = ch
	}
	e.cfList = list
	e.hasCF = true
}
