// Package influxdb provides InfluxDB connectivity for Hue Logic.
//
// It wraps the official influxdb-client-go v2 library with Hue Logic-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Switch battery levels and connectivity status
//   - Cache reload statistics
//   - Bridge mutation counts
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "huelogic",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteBatteryLevel("dev-1", "Hall Switch", 87)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// Telemetry volume here is tiny by InfluxDB standards; batching mainly
// keeps reload sweeps to a single network round trip.
package influxdb
