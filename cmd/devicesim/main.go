// Command devicesim is the harness binary: it supplies the engine's
// three external dependencies (a radio driver, a wall-clock timer
// source, and observability) and exposes the resulting device over
// HTTP/socket.io, grounded on the teacher's cmd/main.go bootstrap
// sequence (load config, set up logging, start the metrics server,
// construct the controller, run the web server) adapted from the
// teacher's multi-device/gateway simulator down to one embedded
// device.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/eventsocket"
	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/httpapi"
	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/radiofake"
	"github.com/r3dpanda-labs/lorawan-device/cmd/devicesim/static"
	"github.com/r3dpanda-labs/lorawan-device/device"
	"github.com/r3dpanda-labs/lorawan-device/internal/deviceevents"
	"github.com/r3dpanda-labs/lorawan-device/internal/harnessconfig"
	"github.com/r3dpanda-labs/lorawan-device/internal/obslog"
	"github.com/r3dpanda-labs/lorawan-device/internal/timewheel"
	"github.com/r3dpanda-labs/lorawan-device/region"
	"github.com/r3dpanda-labs/lorawan-device/shared"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := harnessconfig.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "component", "main", "error", err)
		os.Exit(1)
	}

	obslog.Setup(cfg.Logging)

	instanceID := uuid.NewString()
	slog.Info("devicesim starting", "component", "main", "instance_id", instanceID)

	creds, err := cfg.Credentials.Resolve()
	if err != nil {
		slog.Error("invalid credentials", "component", "main", "error", err)
		os.Exit(1)
	}

	reg := region.NewConfiguration(cfg.ResolveRegion())
	if cfg.ChannelPlanFile != "" {
		plan, err := harnessconfig.LoadChannelPlan(cfg.ChannelPlanFile)
		if err != nil {
			slog.Error("failed to load channel plan", "component", "main", "error", err)
			os.Exit(1)
		}
		plan.Apply(reg)
	}

	driver := radiofake.New(cfg.SimRadio)
	ctx := shared.New[radiofake.PhyEvent](driver, creds, reg, randSource())
	dev := device.New[radiofake.PhyEvent](ctx, cfg.MaxJoinAttempts)

	broker := deviceevents.NewBroker(cfg.Performance.EventHistoryLimit)
	wheel := buildTimewheel(cfg.Performance)
	defer wheel.Stop()

	r := newRunner(instanceID, dev, driver, broker, wheel)
	dev.OnResponse = r.observe
	go r.loop()

	dashboard, err := static.New()
	if err != nil {
		slog.Error("failed to mount dashboard", "component", "main", "error", err)
		os.Exit(1)
	}

	socket := eventsocket.New(broker)
	go func() {
		if err := socket.Serve(); err != nil {
			slog.Error("event socket stopped", "component", "main", "error", err)
		}
	}()
	defer socket.Close()

	router := httpapi.NewRouter(r, socket, dashboard)
	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	slog.Info("listening", "component", "main", "address", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("http server stopped", "component", "main", "error", err)
		os.Exit(1)
	}
}

// buildTimewheel applies the harness's performance config over sane
// defaults so a minimal config.json still produces a working wheel.
func buildTimewheel(perf harnessconfig.PerformanceConfig) *timewheel.Wheel {
	resolution := time.Millisecond
	if parsed, err := time.ParseDuration(perf.SchedulerResolution); err == nil && parsed > 0 {
		resolution = parsed
	}
	buckets := perf.SchedulerBuckets
	if buckets <= 0 {
		buckets = 20000
	}
	workers := perf.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	queueSize := perf.WorkQueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	return timewheel.New(resolution, buckets, workers, queueSize)
}

// randSource is the engine's PRNG: xorshift32 seeded from the process
// clock, sufficient for frequency/devnonce selection since none of it
// is security-sensitive (the join/session keys never touch it).
func randSource() func() uint32 {
	state := uint32(time.Now().UnixNano()) | 1
	return func() uint32 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		return state
	}
}
