package region

const (
	cn470ReceiveDelay1    = 1000
	cn470ReceiveDelay2    = 2000
	cn470JoinAcceptDelay1 = 5000
	cn470JoinAcceptDelay2 = 6000
	cn470RxWindow2Freq    = 505300000
	cn470RxWindow2DR      = 0
)

var cn470UplinkChannels = buildCN470Uplink()
var cn470DownlinkChannels = buildCN470Downlink()

func buildCN470Uplink() [96]uint32 {
	var table [96]uint32
	for i := range table {
		table[i] = 470300000 + uint32(i)*200000
	}
	return table
}

func buildCN470Downlink() [48]uint32 {
	var table [48]uint32
	for i := range table {
		table[i] = 500300000 + uint32(i)*200000
	}
	return table
}

type cn470 struct {
	lastCh uint8
}

func newCN470() *cn470 {
	return &cn470{}
}

func (c *cn470) SetSubBand(subband uint8) {
	// CN470 has no sub-band setting.
}

func (c *cn470) SetChannelMask(mask []bool) {
	// channel masking is left to the host.
}

func (c *cn470) GetJoinFrequency(r uint8) uint32 {
	channel := r & 0b111
	c.lastCh = channel
	return cn470UplinkChannels[channel]
}

func (c *cn470) GetDataFrequency(r uint8) uint32 {
	channel := r & 0b111
	c.lastCh = channel
	return cn470UplinkChannels[channel]
}

// GetJoinAcceptFrequency1 derives RX1 by integer-halving the uplink
// channel index, the CN470 rule mapping two uplink channels onto one
// downlink channel.
func (c *cn470) GetJoinAcceptFrequency1() uint32 {
	return cn470DownlinkChannels[c.lastCh/2]
}

func (c *cn470) GetRxWindow1Frequency() uint32 {
	return cn470DownlinkChannels[c.lastCh/2]
}

func (c *cn470) GetRxWindow2Frequency() (uint32, uint8) {
	return cn470RxWindow2Freq, cn470RxWindow2DR
}

func (c *cn470) GetJoinAcceptDelay1() uint32 { return cn470JoinAcceptDelay1 }
func (c *cn470) GetJoinAcceptDelay2() uint32 { return cn470JoinAcceptDelay2 }
func (c *cn470) GetReceiveDelay1() uint32    { return cn470ReceiveDelay1 }
func (c *cn470) GetReceiveDelay2() uint32    { return cn470ReceiveDelay2 }

func (c *cn470) GetNbReservedChannels() int {
	return len(cn470UplinkChannels)
}

func (c *cn470) ProcessJoinAccept(ja JoinAccept) {
	// CN470's 96/48 fixed plan leaves no room for CFList-appended
	// channels; nothing to ingest.
}
