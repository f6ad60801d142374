package mqtt

import (
	"encoding/json"
	"time"
)

// Publisher is the outbound surface the mirror needs. *Client
// satisfies it; tests substitute fakes.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Mirror turns cache and snapshot events into MQTT messages. It
// implements the cache's Events interface, so installing it on the
// cache makes every confirmed mutation and reload visible on the
// broker.
//
// Publishing is best effort: a broker outage must never fail a bridge
// write that already succeeded, so publish errors are logged and
// swallowed.
type Mirror struct {
	pub    Publisher
	qos    byte
	logger Logger
}

// NewMirror creates an event mirror over the given publisher.
func NewMirror(pub Publisher, qos byte) *Mirror {
	return &Mirror{pub: pub, qos: qos}
}

// SetLogger installs a logger for publish failures.
func (m *Mirror) SetLogger(logger Logger) {
	m.logger = logger
}

// MutationApplied publishes a confirmed bridge write.
func (m *Mirror) MutationApplied(rtype, id, name string) {
	m.publish(Topics{}.Mutation(rtype, id), map[string]any{
		"rtype":     rtype,
		"id":        id,
		"name":      name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, false)
}

// Reloaded publishes a full cache reload with per-type resource counts.
func (m *Mirror) Reloaded(counts map[string]int) {
	m.publish(Topics{}.CacheReloaded(), map[string]any{
		"counts":    counts,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, false)
}

// SnapshotCaptured publishes a snapshot capture event.
func (m *Mirror) SnapshotCaptured(roomID, roomName, snapshotID string, devices int) {
	m.publish(Topics{}.SnapshotCaptured(roomID), map[string]any{
		"snapshot_id": snapshotID,
		"room_id":     roomID,
		"room_name":   roomName,
		"devices":     devices,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, false)
}

// SnapshotRestored publishes a snapshot restore event, including how
// many devices were written and how many were skipped.
func (m *Mirror) SnapshotRestored(roomID, snapshotID string, applied, skipped int) {
	m.publish(Topics{}.SnapshotRestored(roomID), map[string]any{
		"snapshot_id": snapshotID,
		"room_id":     roomID,
		"applied":     applied,
		"skipped":     skipped,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, false)
}

func (m *Mirror) publish(topic string, doc map[string]any, retained bool) {
	payload, err := json.Marshal(doc)
	if err != nil {
		// Maps of scalars always marshal; this guards future additions.
		if m.logger != nil {
			m.logger.Error("MQTT event marshal failed", "topic", topic, "error", err)
		}
		return
	}
	if err := m.pub.Publish(topic, payload, m.qos, retained); err != nil {
		if m.logger != nil {
			m.logger.Warn("MQTT event publish failed", "topic", topic, "error", err)
		}
	}
}
