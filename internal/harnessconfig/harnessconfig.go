// Package harnessconfig loads cmd/devicesim's JSON configuration file,
// following models.GetConfigFile's read-then-unmarshal shape exactly,
// plus an optional YAML channel-plan override for pinning a region's
// sub-band or channel mask without touching Go source.
package harnessconfig

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/brocaar/lorawan"
	"gopkg.in/yaml.v3"

	"github.com/r3dpanda-labs/lorawan-device/internal/obslog"
	"github.com/r3dpanda-labs/lorawan-device/region"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

// CredentialsConfig is the JSON-friendly form of shared.Credentials;
// EUIs and the app key are hex strings rather than lorawan's binary
// array types.
type CredentialsConfig struct {
	DevEUI string `json:"devEUI"`
	AppEUI string `json:"appEUI"`
	AppKey string `json:"appKey"`
}

// Resolve decodes the hex fields into shared.Credentials.
func (c CredentialsConfig) Resolve() (shared.Credentials, error) {
	devEUI, err := decodeEUI(c.DevEUI)
	if err != nil {
		return shared.Credentials{}, fmt.Errorf("devEUI: %w", err)
	}
	appEUI, err := decodeEUI(c.AppEUI)
	if err != nil {
		return shared.Credentials{}, fmt.Errorf("appEUI: %w", err)
	}
	appKey, err := decodeKey(c.AppKey)
	if err != nil {
		return shared.Credentials{}, fmt.Errorf("appKey: %w", err)
	}
	return shared.Credentials{DevEUI: devEUI, AppEUI: appEUI, AppKey: appKey}, nil
}

func decodeEUI(s string) (lorawan.EUI64, error) {
	var eui lorawan.EUI64
	b, err := hex.DecodeString(s)
	if err != nil {
		return eui, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(eui) {
		return eui, fmt.Errorf("expected %d bytes, got %d", len(eui), len(b))
	}
	copy(eui[:], b)
	return eui, nil
}

func decodeKey(s string) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(key) {
		return key, fmt.Errorf("expected %d bytes, got %d", len(key), len(b))
	}
	copy(key[:], b)
	return key, nil
}

// SimRadioConfig times the harness's simulated radio driver: how long
// a transmit takes and how long an RX window stays open.
// A real driver ignores this section entirely.
type SimRadioConfig struct {
	TxDurationMs       uint32 `json:"txDurationMs"`
	RxWindowDurationMs uint32 `json:"rxWindowDurationMs"`
}

// PerformanceConfig carries the harness's own tuning knobs, distinct
// from anything the engine itself reads. Field names mirror the
// teacher's own PerformanceConfig where the concept survives
// (SchedulerResolution, WorkerCount, WorkQueueSize); ForwarderShards
// and UplinkBufferSize have no equivalent since there is no
// multi-device forwarder here.
type PerformanceConfig struct {
	EventHistoryLimit   int    `json:"eventHistoryLimit"`
	SchedulerResolution string `json:"schedulerResolution"` // e.g. "1ms", parsed via time.ParseDuration
	SchedulerBuckets    int    `json:"schedulerBuckets"`
	WorkerCount         int    `json:"workerCount"`
	WorkQueueSize       int    `json:"workQueueSize"`
}

// HarnessConfig is cmd/devicesim's top-level configuration: region
// selection, OTAA credentials, logging, simulated radio timing, and
// the harness's HTTP/metrics bind addresses.
type HarnessConfig struct {
	Address         string            `json:"address"`
	Port            int               `json:"port"`
	MetricsPort     int               `json:"metricsPort"`
	Region          string            `json:"region"` // "US915", "EU868", or "CN470"
	ChannelPlanFile string            `json:"channelPlanFile"`
	MaxJoinAttempts uint32            `json:"maxJoinAttempts"`
	Credentials     CredentialsConfig `json:"credentials"`
	Logging         obslog.Config     `json:"logging"`
	Performance     PerformanceConfig `json:"performance"`
	SimRadio        SimRadioConfig    `json:"simRadio"`
}

// ResolveRegion maps the config's region name to a region.Region,
// defaulting to US915 for an empty or unrecognized name, matching
// region.NewConfiguration's own default fallback.
func (c HarnessConfig) ResolveRegion() region.Region {
	switch c.Region {
	case "EU868":
		return region.EU868
	case "CN470":
		return region.CN470
	default:
		return region.US915
	}
}

// Load reads and parses path into a HarnessConfig. It returns an error
// if the file cannot be read or does not parse as JSON.
func Load(path string) (*HarnessConfig, error) {
	config := &HarnessConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return config, nil
}

// ChannelPlan is an optional YAML override pinning a region's
// sub-band and/or channel mask, read separately from the main JSON
// config so operators can swap plans without editing it. Every region
// handler accepts the channel mask without acting on it, and only US915
// acts on the sub-band; EU868 and CN470 accept it without effect.
type ChannelPlan struct {
	SubBand     *uint8 `yaml:"subBand"`
	ChannelMask []bool `yaml:"channelMask"`
}

// LoadChannelPlan reads and parses a YAML channel-plan file. A caller
// with no ChannelPlanFile set should skip calling this entirely.
func LoadChannelPlan(path string) (*ChannelPlan, error) {
	plan := &ChannelPlan{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel plan file: %w", err)
	}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel plan file: %w", err)
	}
	return plan, nil
}

// Apply pushes a loaded plan's non-nil fields into a region handler.
func (p *ChannelPlan) Apply(cfg region.Configuration) {
	if p.SubBand != nil {
		cfg.SetSubBand(*p.SubBand)
	}
	if p.ChannelMask != nil {
		cfg.SetChannelMask(p.ChannelMask)
	}
}
