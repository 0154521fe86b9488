package macframe

import (
	"crypto/aes"
	"fmt"

	"github.com/brocaar/lorawan"
)

// deriveSessionKey implements the LoRaWAN 1.0.x session key derivation:
// a single AES-128 block encryption, under AppKey, of a 16-byte block
// built as typeByte || JoinNonce || NetID || DevNonce, zero-padded.
// There is no ecosystem helper for this in the retrieved example pack
// (the teacher's own derivation package was not part of the retrieval),
// so it is implemented directly against the block cipher primitive
// crypto/aes already brings in.
func deriveSessionKey(typeByte byte, joinNonce lorawan.JoinNonce, netID lorawan.NetID, devNonce lorawan.DevNonce, appKey lorawan.AES128Key) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key

	jn, err := joinNonce.MarshalBinary()
	if err != nil {
		return key, fmt.Errorf("macframe: marshal join nonce: %w", err)
	}
	nid, err := netID.MarshalBinary()
	if err != nil {
		return key, fmt.Errorf("macframe: marshal net id: %w", err)
	}
	dn, err := devNonce.MarshalBinary()
	if err != nil {
		return key, fmt.Errorf("macframe: marshal dev nonce: %w", err)
	}

	var block [16]byte
	block[0] = typeByte
	copy(block[1:4], jn)
	copy(block[4:7], nid)
	copy(block[7:9], dn)

	cipher, err := aes.NewCipher(appKey[:])
	if err != nil {
		return key, fmt.Errorf("macframe: new cipher: %w", err)
	}
	cipher.Encrypt(key[:], block[:])
	return key, nil
}

// DeriveSessionKeys produces NwkSKey and AppSKey from the join-accept's
// AppNonce (JoinNonce) and NetID, the DevNonce the device sent in its
// join-request, and the device's AppKey.
func DeriveSessionKeys(joinNonce lorawan.JoinNonce, netID lorawan.NetID, devNonce lorawan.DevNonce, appKey lorawan.AES128Key) (nwkSKey, appSKey lorawan.AES128Key, err error) {
	nwkSKey, err = deriveSessionKey(0x01, joinNonce, netID, devNonce, appKey)
	if err != nil {
		return nwkSKey, appSKey, err
	}
	appSKey, err = deriveSessionKey(0x02, joinNonce, netID, devNonce, appKey)
	if err != nil {
		return nwkSKey, appSKey, err
	}
	return nwkSKey, appSKey, nil
}
