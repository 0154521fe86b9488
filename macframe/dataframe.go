package macframe

import (
	"errors"
	"fmt"

	"github.com/brocaar/lorawan"
)

// ErrNotDataFrame is returned when a received buffer does not parse as
// an uplink/downlink data frame.
var ErrNotDataFrame = errors.New("macframe: frame is not a data frame")

// ErrDevAddrMismatch is returned when a downlink's DevAddr does not
// match the session's.
var ErrDevAddrMismatch = errors.New("macframe: devaddr mismatch")

// ErrDataMICInvalid is returned when a data frame's MIC fails to
// validate under NwkSKey.
var ErrDataMICInvalid = errors.New("macframe: data frame mic invalid")

// ErrReplayed is returned when a downlink's resolved fcnt does not
// exceed the session's stored fcnt_down (the fcnt==0 reset case is
// never reported as replayed).
var ErrReplayed = errors.New("macframe: downlink fcnt replayed")

// fcntWindowBits is the width of the wire frame counter (spec.md §6:
// "low 16 bits on the wire, 32-bit tracked internally").
const fcntWindowBits = 16

// ResolveFCnt reconstructs the full 32-bit frame counter from the
// 16-bit value carried on the wire, given the last known full counter.
// It picks the candidate nearest to current+1 within one 16-bit
// window, matching ordinary LoRaWAN rollover handling.
func ResolveFCnt(current uint32, wireLow uint16) uint32 {
	base := current &^ (1<<fcntWindowBits - 1)
	candidate := base | uint32(wireLow)
	if candidate < current && current-candidate > 1<<(fcntWindowBits-1) {
		candidate += 1 << fcntWindowBits
	}
	return candidate
}

// UplinkParams bundles everything BuildDataUplink needs beyond the
// plaintext payload: session identity and keys, the fcnt to sign
// with, the requested port, the confirmed/ack bits, and any FOpts
// mac-command answers drained from the shared queue.
type UplinkParams struct {
	DevAddr   lorawan.DevAddr
	NwkSKey   lorawan.AES128Key
	AppSKey   lorawan.AES128Key
	FCnt      uint32
	FPort     uint8
	Confirmed bool
	Ack       bool
	ADR       bool
	ADRAckReq bool
	FOpts     [][]byte
}

// BuildDataUplink assembles, encrypts, and signs an uplink data frame
// for transmission. It does not mutate any counter; the caller
// increments fcnt_up only once this returns without error, per
// spec.md §4.5.
func BuildDataUplink(p UplinkParams, payload []byte) ([]byte, error) {
	mtype := lorawan.UnconfirmedDataUp
	if p.Confirmed {
		mtype = lorawan.ConfirmedDataUp
	}

	var fopts []lorawan.Payload
	for _, raw := range p.FOpts {
		fopts = append(fopts, &lorawan.DataPayload{Bytes: raw})
	}

	macPL := &lorawan.MACPayload{
		FHDR: lorawan.FHDR{
			DevAddr: p.DevAddr,
			FCtrl: lorawan.FCtrl{
				ADR:       p.ADR,
				ADRACKReq: p.ADRAckReq,
				ACK:       p.Ack,
			},
			FCnt:  p.FCnt,
			FOpts: fopts,
		},
	}
	if len(payload) > 0 || p.FPort != 0 {
		port := p.FPort
		macPL.FPort = &port
		macPL.FRMPayload = []lorawan.Payload{&lorawan.DataPayload{Bytes: payload}}
	}

	phy := lorawan.PHYPayload{
		MHDR:       lorawan.MHDR{MType: mtype, Major: lorawan.LoRaWANR1},
		MACPayload: macPL,
	}

	frmKey := p.AppSKey
	if p.FPort == 0 {
		frmKey = p.NwkSKey
	}
	if len(macPL.FRMPayload) > 0 {
		if err := phy.EncryptFRMPayload(frmKey); err != nil {
			return nil, fmt.Errorf("macframe: encrypt frmpayload: %w", err)
		}
	}
	if len(macPL.FHDR.FOpts) > 0 {
		if err := phy.EncryptFOpts(p.NwkSKey); err != nil {
			return nil, fmt.Errorf("macframe: encrypt fopts: %w", err)
		}
	}

	if err := phy.SetUplinkDataMIC(lorawan.LoRaWAN1_0, 0, 0, 0, p.NwkSKey, p.NwkSKey); err != nil {
		return nil, fmt.Errorf("macframe: set uplink mic: %w", err)
	}

	buf, err := phy.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("macframe: marshal uplink: %w", err)
	}
	return buf, nil
}

// DecryptedDataPayload is a downlink that passed all of spec.md
// §4.5's acceptance checks: frame type, DevAddr, MIC, and fcnt
// freshness.
type DecryptedDataPayload struct {
	FCnt      uint32
	FPort     uint8
	Payload   []byte
	FOpts     []lorawan.MACCommand
	Confirmed bool
	Ack       bool
}

// AcceptDataDownlink validates and decodes a received buffer against
// the session's DevAddr and keys. fcntDown is the session's currently
// stored counter (pre-update); the wire's 16-bit counter is resolved
// against it via ResolveFCnt before MIC validation, since the MIC
// covers the full 32-bit value.
//
// Acceptance requires, in order: the frame parses as a data frame,
// DevAddr matches, the MIC validates, and the resolved fcnt exceeds
// fcntDown (or equals exactly 0, the server-reset case). Any failure
// returns an error the caller treats as "no downlink", never as a
// programming error: a sentinel for a wrong frame type, DevAddr, MIC or
// counter, and a wrapped codec error when unmarshalling or MIC
// computation itself fails.
func AcceptDataDownlink(buf []byte, devAddr lorawan.DevAddr, nwkSKey, appSKey lorawan.AES128Key, fcntDown uint32) (*DecryptedDataPayload, error) {
	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("macframe: unmarshal data frame: %w", err)
	}
	if phy.MHDR.MType != lorawan.UnconfirmedDataDown && phy.MHDR.MType != lorawan.ConfirmedDataDown {
		return nil, ErrNotDataFrame
	}

	macPL, ok := phy.MACPayload.(*lorawan.MACPayload)
	if !ok {
		return nil, ErrNotDataFrame
	}
	if macPL.FHDR.DevAddr != devAddr {
		return nil, ErrDevAddrMismatch
	}

	wireFCnt := uint16(macPL.FHDR.FCnt)
	fcnt := ResolveFCnt(fcntDown, wireFCnt)
	macPL.FHDR.FCnt = fcnt

	valid, err := phy.ValidateDownlinkDataMIC(lorawan.LoRaWAN1_0, 0, nwkSKey)
	if err != nil {
		return nil, fmt.Errorf("macframe: validate downlink mic: %w", err)
	}
	if !valid {
		return nil, ErrDataMICInvalid
	}

	if fcnt != 0 && fcnt <= fcntDown {
		return nil, ErrReplayed
	}

	if len(macPL.FHDR.FOpts) > 0 {
		if err := phy.DecryptFOpts(nwkSKey); err != nil {
			return nil, fmt.Errorf("macframe: decrypt fopts: %w", err)
		}
	}

	frmKey := appSKey
	if macPL.FPort != nil && *macPL.FPort == 0 {
		frmKey = nwkSKey
	}

	var plaintext []byte
	if len(macPL.FRMPayload) > 0 {
		// EncryptFRMPayload is AES-CTR: the same operation applied a
		// second time recovers the plaintext.
		if err := phy.EncryptFRMPayload(frmKey); err != nil {
			return nil, fmt.Errorf("macframe: decrypt frmpayload: %w", err)
		}
		if dp, ok := macPL.FRMPayload[0].(*lorawan.DataPayload); ok {
			plaintext = dp.Bytes
		}
	}

	var fopts []lorawan.MACCommand
	for _, item := range macPL.FHDR.FOpts {
		if cmd, ok := item.(*lorawan.MACCommand); ok {
			fopts = append(fopts, *cmd)
		}
	}

	var fport uint8
	if macPL.FPort != nil {
		fport = *macPL.FPort
	}

	return &DecryptedDataPayload{
		FCnt:      fcnt,
		FPort:     fport,
		Payload:   plaintext,
		FOpts:     fopts,
		Confirmed: phy.MHDR.MType == lorawan.ConfirmedDataDown,
		Ack:       macPL.FHDR.FCtrl.ACK,
	}, nil
}

// EncodeMACCommand marshals a single MAC-command answer to its wire
// bytes, the shape the shared MAC-command queue stores and
// BuildDataUplink's FOpts expects.
func EncodeMACCommand(cmd lorawan.MACCommand) ([]byte, error) {
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("macframe: marshal mac command: %w", err)
	}
	return buf, nil
}
