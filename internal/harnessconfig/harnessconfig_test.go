package harnessconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/r3dpanda-labs/lorawan-device/region"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadParsesJSONConfig(t *testing.T) {
	path := writeTempFile(t, "config.json", `{
		"address": "0.0.0.0",
		"port": 8080,
		"region": "EU868",
		"maxJoinAttempts": 5,
		"credentials": {
			"devEUI": "0102030405060708",
			"appEUI": "0807060504030201",
			"appKey": "000102030405060708090a0b0c0d0e0f"
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != "0.0.0.0" || cfg.Port != 8080 {
		t.Errorf("unexpected address/port: %+v", cfg)
	}
	if cfg.MaxJoinAttempts != 5 {
		t.Errorf("expected maxJoinAttempts 5, got %d", cfg.MaxJoinAttempts)
	}
	if cfg.ResolveRegion() != region.EU868 {
		t.Errorf("expected EU868, got %v", cfg.ResolveRegion())
	}

	creds, err := cfg.Credentials.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.DevEUI[0] != 0x01 || creds.AppKey[0] != 0x00 || creds.AppKey[15] != 0x0f {
		t.Errorf("unexpected decoded credentials: %+v", creds)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestResolveRegionDefaultsToUS915(t *testing.T) {
	cfg := &HarnessConfig{}
	if cfg.ResolveRegion() != region.US915 {
		t.Errorf("expected default region US915, got %v", cfg.ResolveRegion())
	}
}

func TestCredentialsResolveRejectsBadHex(t *testing.T) {
	creds := CredentialsConfig{DevEUI: "not-hex", AppEUI: "0807060504030201", AppKey: "000102030405060708090a0b0c0d0e0f"}
	if _, err := creds.Resolve(); err == nil {
		t.Fatal("expected an error for invalid hex devEUI")
	}
}

func TestCredentialsResolveRejectsWrongLength(t *testing.T) {
	creds := CredentialsConfig{DevEUI: "0102", AppEUI: "0807060504030201", AppKey: "000102030405060708090a0b0c0d0e0f"}
	if _, err := creds.Resolve(); err == nil {
		t.Fatal("expected an error for a too-short devEUI")
	}
}

func TestLoadChannelPlanParsesYAML(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", "subBand: 2\nchannelMask: [true, false, true]\n")

	plan, err := LoadChannelPlan(path)
	if err != nil {
		t.Fatalf("LoadChannelPlan: %v", err)
	}
	if plan.SubBand == nil || *plan.SubBand != 2 {
		t.Errorf("expected subBand 2, got %+v", plan.SubBand)
	}
	if len(plan.ChannelMask) != 3 || !plan.ChannelMask[0] || plan.ChannelMask[1] {
		t.Errorf("unexpected channel mask: %+v", plan.ChannelMask)
	}
}

type fakeHandler struct {
	subBand     *uint8
	channelMask []bool
}

func (f *fakeHandler) SetSubBand(s uint8)                      { f.subBand = &s }
func (f *fakeHandler) SetChannelMask(mask []bool)               { f.channelMask = mask }
func (f *fakeHandler) GetJoinFrequency(r uint8) uint32          { return 0 }
func (f *fakeHandler) GetDataFrequency(r uint8) uint32          { return 0 }
func (f *fakeHandler) GetJoinAcceptFrequency1() uint32          { return 0 }
func (f *fakeHandler) GetRxWindow1Frequency() uint32            { return 0 }
func (f *fakeHandler) GetRxWindow2Frequency() (uint32, uint8)   { return 0, 0 }
func (f *fakeHandler) GetJoinAcceptDelay1() uint32              { return 0 }
func (f *fakeHandler) GetJoinAcceptDelay2() uint32              { return 0 }
func (f *fakeHandler) GetReceiveDelay1() uint32                 { return 0 }
func (f *fakeHandler) GetReceiveDelay2() uint32                 { return 0 }
func (f *fakeHandler) GetNbReservedChannels() int               { return 0 }
func (f *fakeHandler) ProcessJoinAccept(ja region.JoinAccept)   {}

func TestChannelPlanApplyPushesFieldsIntoHandler(t *testing.T) {
	handler := &fakeHandler{}
	cfg := region.Configuration{Handler: handler}

	subBand := uint8(3)
	plan := &ChannelPlan{SubBand: &subBand, ChannelMask: []bool{true, true}}
	plan.Apply(cfg)

	if handler.subBand == nil || *handler.subBand != 3 {
		t.Errorf("expected subBand pushed to handler, got %+v", handler.subBand)
	}
	if len(handler.channelMask) != 2 {
		t.Errorf("expected channel mask pushed to handler, got %+v", handler.channelMask)
	}
}
