package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/huelogic/internal/bridge"
)

// sweepTimeout bounds the post-reload fleet sweep. Reads come from the
// just-reloaded mirror, so this only guards against pathological cases.
const sweepTimeout = 10 * time.Second

// Metrics is the write surface the collector needs. The InfluxDB
// client satisfies it.
type Metrics interface {
	WriteBatteryLevel(deviceID, deviceName string, level float64)
	WriteConnectivity(deviceID, deviceName, status string)
	WriteCacheReload(counts map[string]int)
	WriteMutation(rtype string)
}

// Source is the cache read surface the collector sweeps.
type Source interface {
	Get(ctx context.Context, rtype, id string) (map[string]any, error)
	List(ctx context.Context, rtype string) ([]map[string]any, error)
}

// Logger is the optional logging interface for sweep problems.
type Logger interface {
	Warn(msg string, args ...any)
}

// Collector records cache activity as time-series metrics. It
// implements the cache's Events interface.
type Collector struct {
	src     Source
	metrics Metrics
	logger  Logger
}

// NewCollector wires a collector over the given cache reads and metric
// writes.
func NewCollector(src Source, metrics Metrics) *Collector {
	return &Collector{src: src, metrics: metrics}
}

// SetLogger installs a logger for sweep warnings.
func (c *Collector) SetLogger(logger Logger) {
	c.logger = logger
}

// MutationApplied counts a confirmed bridge write by resource type.
func (c *Collector) MutationApplied(rtype, _, _ string) {
	c.metrics.WriteMutation(rtype)
}

// Reloaded records the reload itself, then sweeps the fleet for
// battery and connectivity readings.
func (c *Collector) Reloaded(counts map[string]int) {
	c.metrics.WriteCacheReload(counts)
	c.sweepHealth()
}

// sweepHealth walks every mirrored device and records its power and
// connectivity service readings. Devices without those services (the
// bridge itself, plugs) are skipped.
func (c *Collector) sweepHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	devices, err := c.src.List(ctx, bridge.RTypeDevice)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("telemetry sweep failed", "error", err)
		}
		return
	}

	for _, dev := range devices {
		id := bridge.ResourceID(dev)
		name := bridge.ResourceName(dev)

		for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeDevicePower) {
			raw, err := c.src.Get(ctx, bridge.RTypeDevicePower, ref.RID)
			if err != nil {
				continue
			}
			if level, ok := batteryLevel(raw); ok {
				c.metrics.WriteBatteryLevel(id, name, level)
			}
		}

		for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeZigbeeConnectivity) {
			raw, err := c.src.Get(ctx, bridge.RTypeZigbeeConnectivity, ref.RID)
			if err != nil {
				continue
			}
			if status, ok := raw["status"].(string); ok {
				c.metrics.WriteConnectivity(id, name, status)
			}
		}
	}
}

func batteryLevel(raw map[string]any) (float64, bool) {
	ps, ok := raw["power_state"].(map[string]any)
	if !ok {
		return 0, false
	}
	level, ok := ps["battery_level"].(float64)
	return level, ok
}
