// Package macexec dispatches the FOpts MAC commands a downlink
// carries, per SPEC_FULL §6.4. Grounded on the teacher's
// executeMAC.go CID switch, narrowed to the subset meaningful for a
// Class-A device with no ping-slot/Class-B state: LinkCheckAns,
// LinkADRReq, DutyCycleReq, RXParamSetupReq, DevStatusReq,
// NewChannelReq, RXTimingSetupReq, DLChannelReq.
package macexec

import (
	"fmt"

	"github.com/brocaar/lorawan"

	"github.com/r3dpanda-labs/lorawan-device/macframe"
	"github.com/r3dpanda-labs/lorawan-device/region"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

// LinkCheck is a side-channel result of LinkCheckAns, surfaced to the
// host rather than consumed internally (the engine has no link budget
// policy of its own).
type LinkCheck struct {
	Margin uint8
	GwCnt  uint8
}

// Result collects the side effects of processing one downlink's
// FOpts.
type Result struct {
	LinkCheck       *LinkCheck
	DevStatusAsked  bool
	RXTimingChanged *uint8
}

// Execute processes every MAC command in cmds against region, queuing
// FOpts answers onto queue for the next uplink. A command the engine
// does not recognize is ignored, matching the teacher's switch falling
// through silently on an unhandled CID.
func Execute(cmds []lorawan.MACCommand, reg region.Handler, queue *shared.MacCommandQueue) (Result, error) {
	var result Result

	for _, cmd := range cmds {
		switch cmd.CID {
		case lorawan.LinkCheckAns:
			if p, ok := cmd.Payload.(*lorawan.LinkCheckAnsPayload); ok {
				result.LinkCheck = &LinkCheck{Margin: p.Margin, GwCnt: p.GwCnt}
			}

		case lorawan.LinkADRReq:
			if err := enqueueAns(queue, lorawan.LinkADRAns, &lorawan.LinkADRAnsPayload{
				ChannelMaskACK: true,
				DataRateACK:    true,
				PowerACK:       true,
			}); err != nil {
				return result, err
			}

		case lorawan.DutyCycleReq:
			if err := enqueueAns(queue, lorawan.DutyCycleAns, nil); err != nil {
				return result, err
			}

		case lorawan.RXParamSetupReq:
			if p, ok := cmd.Payload.(*lorawan.RXParamSetupReqPayload); ok {
				freq, _ := reg.GetRxWindow2Frequency()
				ack := p.Frequency == freq
				if err := enqueueAns(queue, lorawan.RXParamSetupAns, &lorawan.RXParamSetupAnsPayload{
					ChannelACK:     ack,
					RX1DROffsetACK: true,
					RX2DataRateACK: true,
				}); err != nil {
					return result, err
				}
			}

		case lorawan.DevStatusReq:
			result.DevStatusAsked = true
			if err := enqueueAns(queue, lorawan.DevStatusAns, &lorawan.DevStatusAnsPayload{
				Battery: 255, // externally powered / unknown, per LoRaWAN convention
				Margin:  0,
			}); err != nil {
				return result, err
			}

		case lorawan.NewChannelReq:
			if err := enqueueAns(queue, lorawan.NewChannelAns, &lorawan.NewChannelAnsPayload{
				ChannelFrequencyOK: true,
				DataRateRangeOK:    true,
			}); err != nil {
				return result, err
			}

		case lorawan.RXTimingSetupReq:
			if p, ok := cmd.Payload.(*lorawan.RXTimingSetupReqPayload); ok {
				delay := p.Delay
				result.RXTimingChanged = &delay
			}
			if err := enqueueAns(queue, lorawan.RXTimingSetupAns, nil); err != nil {
				return result, err
			}

		case lorawan.DLChannelReq:
			if err := enqueueAns(queue, lorawan.DLChannelAns, &lorawan.DLChannelAnsPayload{
				ChannelFrequencyOK:    true,
				UplinkFrequencyExists: true,
			}); err != nil {
				return result, err
			}

		default:
			// PingSlotChannelReq, BeaconFreqReq, and the rest of the
			// Class-B surface are out of scope (spec.md Non-goals).
		}
	}

	return result, nil
}

func enqueueAns(queue *shared.MacCommandQueue, cid lorawan.CID, payload lorawan.CIDPayload) error {
	cmd := lorawan.MACCommand{CID: cid, Payload: payload}
	buf, err := macframe.EncodeMACCommand(cmd)
	if err != nil {
		return fmt.Errorf("macexec: encode %v: %w", cid, err)
	}
	if !queue.Push(buf) {
		return fmt.Errorf("macexec: mac command queue full answering %v", cid)
	}
	return nil
}
