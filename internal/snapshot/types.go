package snapshot

import (
	"time"

	"github.com/nerrad567/huelogic/internal/button"
)

// RoomSnapshot is an immutable capture of a room's switch programming
// at a point in time. It serialises to JSON for storage.
type RoomSnapshot struct {
	ID       string           `json:"id"`
	RoomID   string           `json:"room_id"`
	RoomName string           `json:"room_name"`
	TakenAt  time.Time        `json:"taken_at"`
	Devices  []DeviceSnapshot `json:"devices"`
	Scenes   []SceneInfo      `json:"scenes,omitempty"`
}

// DeviceSnapshot records one switch: its identity, its decoded button
// programming, and a few health readings kept for inspection only.
type DeviceSnapshot struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	Model       string `json:"model,omitempty"`
	BehaviourID string `json:"behaviour_id,omitempty"`

	// Buttons maps 1-based control index to the canonical programming.
	// Empty when the device has a behaviour in an unrecognised format.
	Buttons map[int]button.ActionSpec `json:"buttons,omitempty"`

	// Health holds ephemeral readings (battery level, connectivity)
	// present at capture time. Diff never compares these.
	Health map[string]any `json:"health,omitempty"`
}

// SceneInfo is a scene belonging to the captured room.
type SceneInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Device returns the snapshot entry for a device id.
func (s *RoomSnapshot) Device(id string) (DeviceSnapshot, bool) {
	for _, d := range s.Devices {
		if d.DeviceID == id {
			return d, true
		}
	}
	return DeviceSnapshot{}, false
}
