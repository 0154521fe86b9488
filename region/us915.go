package region

const (
	us915ReceiveDelay1    = 1000
	us915ReceiveDelay2    = 2000
	us915JoinAcceptDelay1 = 5000
	us915JoinAcceptDelay2 = 6000
	us915RxWindow2Freq    = 923300000
	us915RxWindow2DR      = 8
)

var us915UplinkChannels = [8][8]uint32{
	{902300000, 902500000, 902700000, 902900000, 903100000, 903300000, 903500000, 903700000},
	{903900000, 904100000, 904300000, 904500000, 904700000, 904900000, 905100000, 905300000},
	{905500000, 905700000, 905900000, 906100000, 906300000, 906500000, 906700000, 906900000},
	{907100000, 907300000, 907500000, 907700000, 907900000, 908100000, 908300000, 908500000},
	{908700000, 908900000, 909100000, 909300000, 909500000, 909700000, 909900000, 910100000},
	{910300000, 910500000, 910700000, 910900000, 911100000, 911300000, 911500000, 911700000},
	{911900000, 912100000, 912300000, 912500000, 912700000, 912900000, 913100000, 913300000},
	{913500000, 913700000, 913900000, 914100000, 914300000, 914500000, 914700000, 914900000},
}

var us915DownlinkChannels = [8]uint32{
	922300000, 923900000, 924500000, 925100000, 925700000, 926300000, 926900000, 927500000,
}

// us915NbFixedChannels is the count of the region's fixed 8x8 uplink
// table, i.e. the first index a CFList-appended channel may occupy.
const us915NbFixedChannels = 64

type us915 struct {
	subband *uint8
	lastSub uint8
	lastCh  uint8
}

func newUS915() *us915 {
	return &us915{}
}

func (u *us915) SetSubBand(subband uint8) {
	u.subband = &subband
}

func (u *us915) SetChannelMask(mask []bool) {
	// channel masking is left to the host; the fixed 64-channel plan is
	// always available.
}

func (u *us915) selectChannel(r uint8) (subband, channel uint8) {
	channel = r & 0b111
	if u.subband != nil {
		subband = *u.subband - 1
	} else {
		subband = (r >> 3) & 0b111
	}
	return subband, channel
}

func (u *us915) GetJoinFrequency(r uint8) uint32 {
	subband, channel := u.selectChannel(r)
	u.lastSub, u.lastCh = subband, channel
	return us915UplinkChannels[subband][channel]
}

func (u *us915) GetDataFrequency(r uint8) uint32 {
	subband, channel := u.selectChannel(r)
	u.lastSub, u.lastCh = subband, channel
	return us915UplinkChannels[subband][channel]
}

func (u *us915) GetJoinAcceptFrequency1() uint32 {
	return us915DownlinkChannels[u.lastCh]
}

func (u *us915) GetRxWindow1Frequency() uint32 {
	return us915DownlinkChannels[u.lastCh]
}

func (u *us915) GetRxWindow2Frequency() (uint32, uint8) {
	return us915RxWindow2Freq, us915RxWindow2DR
}

func (u *us915) GetJoinAcceptDelay1() uint32 { return us915JoinAcceptDelay1 }
func (u *us915) GetJoinAcceptDelay2() uint32 { return us915JoinAcceptDelay2 }
func (u *us915) GetReceiveDelay1() uint32    { return us915ReceiveDelay1 }
func (u *us915) GetReceiveDelay2() uint32    { return us915ReceiveDelay2 }

func (u *us915) GetNbReservedChannels() int {
	return us915NbFixedChannels
}

func (u *us915) ProcessJoinAccept(ja JoinAccept) {
	// US915 has no CFList-appended channels in the 1.0.x join-accept;
	// nothing to ingest.
}
