package mqtt

import "fmt"

// Topic prefixes for the Hue Logic event mirror.
//
// All topics live under a single huelogic/ root. Event topics carry
// one JSON document per occurrence; the system status topic is
// retained so late subscribers see the current state.
const (
	// TopicPrefix is the root of all Hue Logic topics.
	TopicPrefix = "huelogic"

	// TopicPrefixEvent is the base for change events.
	TopicPrefixEvent = "huelogic/event"

	// TopicPrefixSnapshot is the base for snapshot lifecycle events.
	TopicPrefixSnapshot = "huelogic/snapshot"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "huelogic/system"
)

// Topics provides builders for Hue Logic MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.Mutation("behavior_instance", "bi-1")
//	// Returns: "huelogic/event/mutation/behavior_instance/bi-1"
type Topics struct{}

// Mutation returns the topic for a confirmed bridge write.
//
// Example: huelogic/event/mutation/behavior_instance/abc-123
func (Topics) Mutation(rtype, id string) string {
	return fmt.Sprintf("%s/mutation/%s/%s", TopicPrefixEvent, rtype, id)
}

// CacheReloaded returns the topic for full cache reload events.
//
// Example: huelogic/event/cache_reloaded
func (Topics) CacheReloaded() string {
	return fmt.Sprintf("%s/cache_reloaded", TopicPrefixEvent)
}

// SnapshotCaptured returns the topic for snapshot capture events.
//
// Example: huelogic/snapshot/room-abc/captured
func (Topics) SnapshotCaptured(roomID string) string {
	return fmt.Sprintf("%s/%s/captured", TopicPrefixSnapshot, roomID)
}

// SnapshotRestored returns the topic for snapshot restore events.
//
// Example: huelogic/snapshot/room-abc/restored
func (Topics) SnapshotRestored(roomID string) string {
	return fmt.Sprintf("%s/%s/restored", TopicPrefixSnapshot, roomID)
}

// SystemStatus returns the retained system status topic. The LWT and
// graceful-shutdown payloads publish here too.
//
// Example: huelogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllMutations returns a pattern matching every mutation event.
//
// Pattern: huelogic/event/mutation/+/+
func (Topics) AllMutations() string {
	return fmt.Sprintf("%s/mutation/+/+", TopicPrefixEvent)
}

// AllSnapshotEvents returns a pattern matching all snapshot events.
//
// Pattern: huelogic/snapshot/+/+
func (Topics) AllSnapshotEvents() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixSnapshot)
}

// AllTopics returns a pattern matching all Hue Logic topics.
//
// Pattern: huelogic/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
