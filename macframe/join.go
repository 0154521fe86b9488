// Package macframe assembles and parses LoRaWAN MAC frames on top of
// github.com/brocaar/lorawan: join-request/join-accept handling, data
// frame MIC and FRMPayload encryption, and FOpts MAC-command encoding.
package macframe

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/brocaar/lorawan"
)

// ErrNotJoinAccept is returned when a received buffer does not parse as
// a join-accept frame.
var ErrNotJoinAccept = errors.New("macframe: frame is not a join-accept")

// ErrJoinMICInvalid is returned when a join-accept's MIC fails to
// validate under AppKey.
var ErrJoinMICInvalid = errors.New("macframe: join-accept MIC invalid")

// BuildJoinRequest assembles and signs a join-request, returning the
// wire bytes and the DevNonce chosen for this attempt (the caller's
// random source supplies random32; the low 16 bits become DevNonce,
// the remaining bits are left for the caller's frequency selection).
func BuildJoinRequest(appEUI, devEUI lorawan.EUI64, appKey lorawan.AES128Key, random32 uint32) (buf []byte, devNonce lorawan.DevNonce, err error) {
	devNonce = lorawan.DevNonce(uint16(random32))

	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{
			MType: lorawan.JoinRequest,
			Major: lorawan.LoRaWANR1,
		},
		MACPayload: &lorawan.JoinRequestPayload{
			JoinEUI:  appEUI,
			DevEUI:   devEUI,
			DevNonce: devNonce,
		},
	}

	if err := phy.SetUplinkJoinMIC(appKey); err != nil {
		return nil, devNonce, fmt.Errorf("macframe: set join mic: %w", err)
	}

	buf, err = phy.MarshalBinary()
	if err != nil {
		return nil, devNonce, fmt.Errorf("macframe: marshal join request: %w", err)
	}
	return buf, devNonce, nil
}

// JoinResult is a successfully parsed, decrypted, and MIC-validated
// join-accept.
type JoinResult struct {
	Payload *lorawan.JoinAcceptPayload
}

// DecryptedJoinAccept is the Downlink-slot representation of a
// successfully processed join-accept (spec.md §3's "Downlink tagged
// Data(...) or Join(...)"). It carries only what the host needs after
// the NoSession machine has already derived session keys and handed
// the CFList to the region handler.
type DecryptedJoinAccept struct {
	DevAddr  lorawan.DevAddr
	JoinNonce lorawan.JoinNonce
	NetID    lorawan.NetID
	HasCFList bool
}

// ToDecrypted narrows a JoinResult down to the Downlink-slot shape.
func (r *JoinResult) ToDecrypted() DecryptedJoinAccept {
	return DecryptedJoinAccept{
		DevAddr:   r.Payload.DevAddr,
		JoinNonce: r.Payload.JoinNonce,
		NetID:     r.Payload.HomeNetID,
		HasCFList: r.Payload.CFList != nil,
	}
}

// ParseJoinAccept unmarshals buf, decrypts the join-accept payload with
// AppKey, and validates its MIC. It returns ErrJoinMICInvalid rather
// than an assembly-style error so the caller can treat a corrupted or
// foreign frame as "no join-accept received" instead of a programming
// error.
func ParseJoinAccept(buf []byte, appKey lorawan.AES128Key) (*JoinResult, error) {
	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("macframe: unmarshal join-accept: %w", err)
	}
	if phy.MHDR.MType != lorawan.JoinAccept {
		return nil, ErrNotJoinAccept
	}

	if err := phy.DecryptJoinAcceptPayload(appKey); err != nil {
		return nil, fmt.Errorf("macframe: decrypt join-accept: %w", err)
	}

	var joinEUI lorawan.EUI64
	var devNonce lorawan.DevNonce
	ok, err := phy.ValidateDownlinkJoinMIC(lorawan.JoinRequestType, joinEUI, devNonce, appKey)
	if err != nil {
		return nil, fmt.Errorf("macframe: validate join-accept mic: %w", err)
	}
	if !ok {
		return nil, ErrJoinMICInvalid
	}

	payload, ok := phy.MACPayload.(*lorawan.JoinAcceptPayload)
	if !ok {
		return nil, ErrNotJoinAccept
	}
	return &JoinResult{Payload: payload}, nil
}

// RandomUint32 is the default PRNG used when the host does not supply
// its own. The engine's Shared context always takes an explicit
// function, and nothing in this module calls RandomUint32.
func RandomUint32() uint32 {
	return rand.Uint32()
}
