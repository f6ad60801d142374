package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBatteryLevel records a switch's battery level.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Bridge device id
//   - deviceName: Display name (tag, for dashboard labels)
//   - level: Battery percentage 0-100
func (c *Client) WriteBatteryLevel(deviceID, deviceName string, level float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"device_id": deviceID,
			"device":    deviceName,
		},
		map[string]interface{}{
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectivity records a device's zigbee connectivity status.
//
// Parameters:
//   - deviceID: Bridge device id
//   - deviceName: Display name
//   - status: Bridge-reported status string (e.g. "connected")
func (c *Client) WriteConnectivity(deviceID, deviceName, status string) {
	if !c.IsConnected() {
		return
	}

	connected := 0.0
	if status == "connected" {
		connected = 1.0
	}

	point := write.NewPoint(
		"connectivity",
		map[string]string{
			"device_id": deviceID,
			"device":    deviceName,
			"status":    status,
		},
		map[string]interface{}{
			"connected": connected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCacheReload records a full cache reload with per-type resource
// counts, one point per resource type.
func (c *Client) WriteCacheReload(counts map[string]int) {
	if !c.IsConnected() {
		return
	}

	now := time.Now()
	for rtype, n := range counts {
		point := write.NewPoint(
			"cache_reload",
			map[string]string{
				"rtype": rtype,
			},
			map[string]interface{}{
				"resources": n,
			},
			now,
		)
		c.writeAPI.WritePoint(point)
	}
}

// WriteMutation records a confirmed bridge write.
//
// Parameters:
//   - rtype: Resource type written (e.g. "behavior_instance")
func (c *Client) WriteMutation(rtype string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"mutations",
		map[string]string{
			"rtype": rtype,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
