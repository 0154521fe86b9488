package region

import "testing"

func uplinkTableContains(r Region, freq uint32) bool {
	switch r {
	case US915:
		for _, sub := range us915UplinkChannels {
			for _, f := range sub {
				if f == freq {
					return true
				}
			}
		}
	case EU868:
		for _, f := range eu868JoinChannels {
			if f == freq {
				return true
			}
		}
	case CN470:
		for _, f := range cn470UplinkChannels {
			if f == freq {
				return true
			}
		}
	}
	return false
}

func TestGetJoinFrequencyStaysInUplinkTable(t *testing.T) {
	for _, r := range []Region{US915, EU868, CN470} {
		cfg := NewConfiguration(r)
		for random := 0; random < 256; random++ {
			freq := cfg.GetJoinFrequency(uint8(random))
			if !uplinkTableContains(r, freq) {
				t.Fatalf("region %v: frequency %d for random %d not in uplink table", r, freq, random)
			}
		}
	}
}

func TestUS915SubbandPinning(t *testing.T) {
	cfg := NewConfiguration(US915)
	cfg.SetSubBand(3)
	freq := cfg.GetJoinFrequency(0xFF)
	want := us915UplinkChannels[3-1][0xFF&0b111]
	if freq != want {
		t.Fatalf("expected pinned sub-band 2 channel frequency %d, got %d", want, freq)
	}
}

func TestUS915RxWindow1MirrorsLastTx(t *testing.T) {
	cfg := NewConfiguration(US915)
	cfg.SetSubBand(1)
	cfg.GetJoinFrequency(0b101)
	got := cfg.GetRxWindow1Frequency()
	want := us915DownlinkChannels[0b101]
	if got != want {
		t.Fatalf("expected RX1 frequency %d mirroring last tx channel, got %d", want, got)
	}
}

func TestRxWindow2UsesDedicatedFrequencyNotRx1(t *testing.T) {
	for _, r := range []Region{US915, EU868, CN470} {
		cfg := NewConfiguration(r)
		cfg.GetJoinFrequency(0x3A)
		rx1 := cfg.GetRxWindow1Frequency()
		rx2, _ := cfg.GetRxWindow2Frequency()
		if rx1 == rx2 {
			t.Fatalf("region %v: RX2 must not reuse RX1's frequency, both were %d", r, rx1)
		}
	}
}

func TestCN470RxWindowHalvesUplinkIndex(t *testing.T) {
	cfg := NewConfiguration(CN470)
	cfg.GetJoinFrequency(5) // channel 5
	got := cfg.GetRxWindow1Frequency()
	want := cn470DownlinkChannels[5/2]
	if got != want {
		t.Fatalf("expected downlink channel %d, got %d", want, got)
	}
}

func TestFixedDelaysAcrossRegions(t *testing.T) {
	for _, r := range []Region{US915, EU868, CN470} {
		cfg := NewConfiguration(r)
		if cfg.GetReceiveDelay1() != 1000 || cfg.GetReceiveDelay2() != 2000 {
			t.Fatalf("region %v: wrong receive delays", r)
		}
		if cfg.GetJoinAcceptDelay1() != 5000 || cfg.GetJoinAcceptDelay2() != 6000 {
			t.Fatalf("region %v: wrong join accept delays", r)
		}
	}
}
