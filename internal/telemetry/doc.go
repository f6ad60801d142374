// Package telemetry feeds time-series metrics from cache events.
//
// The Collector implements the cache's Events interface. On every full
// reload it sweeps the freshly mirrored device fleet and records each
// switch's battery level and connectivity status; every confirmed
// mutation is counted by resource type. Metrics land in InfluxDB via
// the infrastructure client, but the Collector only knows the narrow
// Metrics interface, so tests run without a server.
package telemetry
