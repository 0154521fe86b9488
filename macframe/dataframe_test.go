package macframe

import (
	"testing"

	"github.com/brocaar/lorawan"
)

func testKeys() (nwkSKey, appSKey lorawan.AES128Key) {
	nwkSKey[0] = 0x01
	appSKey[0] = 0x02
	return
}

func TestBuildDataUplinkProducesParseableFrame(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	devAddr := lorawan.DevAddr{1, 2, 3, 4}

	buf, err := BuildDataUplink(UplinkParams{
		DevAddr: devAddr,
		NwkSKey: nwkSKey,
		AppSKey: appSKey,
		FCnt:    5,
		FPort:   1,
	}, []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An uplink is not itself acceptable as a downlink; reuse the wire
	// bytes only to confirm the frame at least parses the way the
	// builder intended (mtype/devaddr), via a raw unmarshal.
	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal uplink: %v", err)
	}
	if phy.MHDR.MType != lorawan.UnconfirmedDataUp {
		t.Fatalf("expected UnconfirmedDataUp, got %v", phy.MHDR.MType)
	}
	macPL := phy.MACPayload.(*lorawan.MACPayload)
	if macPL.FHDR.DevAddr != devAddr || macPL.FHDR.FCnt != 5 {
		t.Fatalf("unexpected FHDR: %+v", macPL.FHDR)
	}
}

func buildDownlink(t *testing.T, devAddr lorawan.DevAddr, nwkSKey, appSKey lorawan.AES128Key, fcnt uint32, confirmed bool, payload []byte) []byte {
	t.Helper()

	mtype := lorawan.UnconfirmedDataDown
	if confirmed {
		mtype = lorawan.ConfirmedDataDown
	}

	port := uint8(1)
	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: mtype, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.MACPayload{
			FHDR: lorawan.FHDR{
				DevAddr: devAddr,
				FCnt:    fcnt,
			},
			FPort:      &port,
			FRMPayload: []lorawan.Payload{&lorawan.DataPayload{Bytes: payload}},
		},
	}

	if err := phy.EncryptFRMPayload(appSKey); err != nil {
		t.Fatalf("encrypt frmpayload: %v", err)
	}
	if err := phy.SetDownlinkDataMIC(lorawan.LoRaWAN1_0, 0, nwkSKey); err != nil {
		t.Fatalf("set downlink mic: %v", err)
	}
	buf, err := phy.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal downlink: %v", err)
	}
	return buf
}

func TestAcceptDataDownlinkAcceptsFreshFrame(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	devAddr := lorawan.DevAddr{1, 2, 3, 4}

	buf := buildDownlink(t, devAddr, nwkSKey, appSKey, 1, false, []byte("world"))

	decrypted, err := AcceptDataDownlink(buf, devAddr, nwkSKey, appSKey, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decrypted.FCnt != 1 || string(decrypted.Payload) != "world" {
		t.Fatalf("unexpected decrypted payload: %+v", decrypted)
	}
}

func TestAcceptDataDownlinkRejectsDevAddrMismatch(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	devAddr := lorawan.DevAddr{1, 2, 3, 4}
	other := lorawan.DevAddr{5, 6, 7, 8}

	buf := buildDownlink(t, other, nwkSKey, appSKey, 1, false, []byte("world"))

	if _, err := AcceptDataDownlink(buf, devAddr, nwkSKey, appSKey, 0); err != ErrDevAddrMismatch {
		t.Fatalf("expected ErrDevAddrMismatch, got %v", err)
	}
}

func TestAcceptDataDownlinkRejectsBadMIC(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	var wrongNwkSKey lorawan.AES128Key
	wrongNwkSKey[0] = 0xFF
	devAddr := lorawan.DevAddr{1, 2, 3, 4}

	buf := buildDownlink(t, devAddr, nwkSKey, appSKey, 1, false, []byte("world"))

	if _, err := AcceptDataDownlink(buf, devAddr, wrongNwkSKey, appSKey, 0); err != ErrDataMICInvalid {
		t.Fatalf("expected ErrDataMICInvalid, got %v", err)
	}
}

func TestAcceptDataDownlinkRejectsReplay(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	devAddr := lorawan.DevAddr{1, 2, 3, 4}

	buf := buildDownlink(t, devAddr, nwkSKey, appSKey, 3, false, []byte("world"))

	if _, err := AcceptDataDownlink(buf, devAddr, nwkSKey, appSKey, 3); err != ErrReplayed {
		t.Fatalf("expected ErrReplayed for fcnt==fcntDown, got %v", err)
	}
	if _, err := AcceptDataDownlink(buf, devAddr, nwkSKey, appSKey, 5); err != ErrReplayed {
		t.Fatalf("expected ErrReplayed for fcnt<fcntDown, got %v", err)
	}
}

func TestAcceptDataDownlinkAcceptsServerResetFCntZero(t *testing.T) {
	nwkSKey, appSKey := testKeys()
	devAddr := lorawan.DevAddr{1, 2, 3, 4}

	buf := buildDownlink(t, devAddr, nwkSKey, appSKey, 0, false, []byte("reset"))

	decrypted, err := AcceptDataDownlink(buf, devAddr, nwkSKey, appSKey, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decrypted.FCnt != 0 {
		t.Fatalf("expected fcnt 0 accepted as server reset, got %d", decrypted.FCnt)
	}
}

func TestResolveFCntWithinWindow(t *testing.T) {
	if got := ResolveFCnt(10, 11); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
}

func TestResolveFCntAcrossRollover(t *testing.T) {
	current := uint32(0x1FFFE)
	got := ResolveFCnt(current, 0x0001)
	if got != 0x20001 {
		t.Fatalf("expected rollover to 0x20001, got %#x", got)
	}
}
