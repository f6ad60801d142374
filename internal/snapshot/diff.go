package snapshot

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nerrad567/huelogic/internal/button"
)

// ephemeralFields never participate in comparisons. Battery drains and
// radios flap; neither is a programming change.
var ephemeralFields = map[string]struct{}{
	"battery_level": {},
	"battery_state": {},
	"connectivity":  {},
}

// DiffStatus classifies a device-level difference.
type DiffStatus string

const (
	StatusAdded    DiffStatus = "added"
	StatusRemoved  DiffStatus = "removed"
	StatusModified DiffStatus = "modified"
)

// Change is one field-level difference on a device.
type Change struct {
	Path   string `json:"path"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DeviceDiff reports one device's differences. Added and removed
// devices carry no field changes - the whole device is the change.
type DeviceDiff struct {
	DeviceID string     `json:"device_id"`
	Name     string     `json:"name"`
	Status   DiffStatus `json:"status"`
	Changes  []Change   `json:"changes,omitempty"`
}

// DiffReport is the structural difference between two snapshots of the
// same room.
type DiffReport struct {
	RoomID        string       `json:"room_id"`
	Devices       []DeviceDiff `json:"devices,omitempty"`
	AddedScenes   []SceneInfo  `json:"added_scenes,omitempty"`
	RemovedScenes []SceneInfo  `json:"removed_scenes,omitempty"`
}

// Empty reports whether the two snapshots are equivalent.
func (r *DiffReport) Empty() bool {
	return len(r.Devices) == 0 && len(r.AddedScenes) == 0 && len(r.RemovedScenes) == 0
}

// Diff compares two snapshots device by device. Comparison happens on
// the canonical decoded programming, never on raw payloads, so the
// same intent stored in different native formats diffs as equal.
// Fields on the ephemeral denylist are skipped.
func Diff(a, b *RoomSnapshot) *DiffReport {
	report := &DiffReport{RoomID: a.RoomID}

	for _, da := range a.Devices {
		db, ok := b.Device(da.DeviceID)
		if !ok {
			report.Devices = append(report.Devices, DeviceDiff{
				DeviceID: da.DeviceID,
				Name:     da.Name,
				Status:   StatusRemoved,
			})
			continue
		}
		if changes := deviceChanges(da, db); len(changes) > 0 {
			report.Devices = append(report.Devices, DeviceDiff{
				DeviceID: da.DeviceID,
				Name:     db.Name,
				Status:   StatusModified,
				Changes:  changes,
			})
		}
	}

	for _, db := range b.Devices {
		if _, ok := a.Device(db.DeviceID); !ok {
			report.Devices = append(report.Devices, DeviceDiff{
				DeviceID: db.DeviceID,
				Name:     db.Name,
				Status:   StatusAdded,
			})
		}
	}

	sort.Slice(report.Devices, func(i, j int) bool {
		return report.Devices[i].Name < report.Devices[j].Name
	})

	report.AddedScenes, report.RemovedScenes = sceneChanges(a.Scenes, b.Scenes)
	return report
}

// deviceChanges compares two captures of the same device.
func deviceChanges(a, b DeviceSnapshot) []Change {
	var changes []Change

	if a.Name != b.Name {
		changes = append(changes, Change{Path: "name", Before: a.Name, After: b.Name})
	}

	for _, n := range buttonIndices(a.Buttons, b.Buttons) {
		sa, inA := a.Buttons[n]
		sb, inB := b.Buttons[n]
		switch {
		case inA && inB:
			if !sa.Equal(sb) {
				changes = append(changes, buttonChange(n, sa.Describe(), sb.Describe()))
			}
		case inA:
			changes = append(changes, buttonChange(n, sa.Describe(), "unprogrammed"))
		default:
			changes = append(changes, buttonChange(n, "unprogrammed", sb.Describe()))
		}
	}

	for _, k := range healthKeys(a.Health, b.Health) {
		if _, skip := ephemeralFields[k]; skip {
			continue
		}
		va, vb := a.Health[k], b.Health[k]
		if va != vb {
			changes = append(changes, Change{
				Path:   "health/" + k,
				Before: fmt.Sprint(va),
				After:  fmt.Sprint(vb),
			})
		}
	}

	return changes
}

func buttonChange(n int, before, after string) Change {
	return Change{Path: buttonPath(n), Before: before, After: after}
}

func buttonPath(n int) string {
	return "button/" + strconv.Itoa(n)
}

// buttonIndices returns the sorted union of programmed button indices.
func buttonIndices(a, b map[int]button.ActionSpec) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	for n := range a {
		seen[n] = struct{}{}
	}
	for n := range b {
		seen[n] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func healthKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sceneChanges compares scene membership by id.
func sceneChanges(a, b []SceneInfo) (added, removed []SceneInfo) {
	inA := make(map[string]struct{}, len(a))
	for _, s := range a {
		inA[s.ID] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s.ID] = struct{}{}
	}
	for _, s := range b {
		if _, ok := inA[s.ID]; !ok {
			added = append(added, s)
		}
	}
	for _, s := range a {
		if _, ok := inB[s.ID]; !ok {
			removed = append(removed, s)
		}
	}
	return added, removed
}
