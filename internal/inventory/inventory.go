package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
	"github.com/nerrad567/huelogic/internal/match"
)

// UnassignedRoom is the room label for devices that belong to no room.
const UnassignedRoom = "Unassigned"

// Switch is a button-bearing device with its decoded programming.
type Switch struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Model        string                    `json:"model,omitempty"`
	Class        string                    `json:"class"`
	Room         string                    `json:"room"`
	RoomID       string                    `json:"room_id,omitempty"`
	BehaviourID  string                    `json:"behaviour_id,omitempty"`
	Format       string                    `json:"format,omitempty"`
	Buttons      map[int]button.ActionSpec `json:"buttons,omitempty"`
	Battery      *float64                  `json:"battery,omitempty"`
	Connectivity string                    `json:"connectivity,omitempty"`
}

// Room is a room or zone with its member devices.
type Room struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"` // "room" or "zone"
	Devices []string `json:"devices,omitempty"`
}

// ButtonRef points at one programmed button on a switch.
type ButtonRef struct {
	SwitchID   string `json:"switch_id"`
	SwitchName string `json:"switch_name"`
	Button     int    `json:"button"`
}

// Scene is a scene with the programmed buttons that recall it.
type Scene struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Room   string      `json:"room"`
	UsedBy []ButtonRef `json:"used_by,omitempty"`
}

// Inventory builds views over a cache.
type Inventory struct {
	cache *cache.Cache
}

// New creates an inventory over the given cache.
func New(c *cache.Cache) *Inventory {
	return &Inventory{cache: c}
}

// Switches returns every button-bearing device, sorted by name.
func (inv *Inventory) Switches(ctx context.Context) ([]Switch, error) {
	devices, err := inv.cache.List(ctx, bridge.RTypeDevice)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	behaviours, err := inv.behavioursByDevice(ctx)
	if err != nil {
		return nil, err
	}
	roomOf, err := inv.roomByDevice(ctx)
	if err != nil {
		return nil, err
	}

	var switches []Switch
	for _, dev := range devices {
		if len(bridge.ServiceRefs(dev, bridge.RTypeButton)) == 0 {
			continue
		}
		sw, err := inv.buildSwitch(ctx, dev, behaviours, roomOf)
		if err != nil {
			return nil, err
		}
		switches = append(switches, sw)
	}

	sort.Slice(switches, func(i, j int) bool {
		return switches[i].Name < switches[j].Name
	})
	return switches, nil
}

// Switch returns one switch view by device id.
func (inv *Inventory) Switch(ctx context.Context, deviceID string) (Switch, error) {
	dev, err := inv.cache.Get(ctx, bridge.RTypeDevice, deviceID)
	if err != nil {
		return Switch{}, err
	}
	if len(bridge.ServiceRefs(dev, bridge.RTypeButton)) == 0 {
		return Switch{}, fmt.Errorf("%w: %s has no buttons", cache.ErrNotFound, deviceID)
	}

	behaviours, err := inv.behavioursByDevice(ctx)
	if err != nil {
		return Switch{}, err
	}
	roomOf, err := inv.roomByDevice(ctx)
	if err != nil {
		return Switch{}, err
	}
	return inv.buildSwitch(ctx, dev, behaviours, roomOf)
}

// Rooms returns all rooms and zones, sorted by name. The original
// bridge treats both as grouping surfaces, so callers resolving a
// group name search the union.
func (inv *Inventory) Rooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	for _, rtype := range []string{bridge.RTypeRoom, bridge.RTypeZone} {
		list, err := inv.cache.List(ctx, rtype)
		if err != nil {
			return nil, fmt.Errorf("listing %ss: %w", rtype, err)
		}
		for _, raw := range list {
			rooms = append(rooms, Room{
				ID:      bridge.ResourceID(raw),
				Name:    bridge.ResourceName(raw),
				Kind:    rtype,
				Devices: childDeviceIDs(raw),
			})
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// Scenes returns all scenes with reverse mappings to the switch
// buttons programmed to recall them.
func (inv *Inventory) Scenes(ctx context.Context) ([]Scene, error) {
	raws, err := inv.cache.List(ctx, bridge.RTypeScene)
	if err != nil {
		return nil, fmt.Errorf("listing scenes: %w", err)
	}
	roomNames, err := inv.groupNames(ctx)
	if err != nil {
		return nil, err
	}

	usedBy, err := inv.sceneUsage(ctx)
	if err != nil {
		return nil, err
	}

	scenes := make([]Scene, 0, len(raws))
	for _, raw := range raws {
		id := bridge.ResourceID(raw)
		room := UnassignedRoom
		if group, ok := raw["group"].(map[string]any); ok {
			if rid, _ := group["rid"].(string); rid != "" {
				if name, ok := roomNames[rid]; ok {
					room = name
				}
			}
		}
		scenes = append(scenes, Scene{
			ID:     id,
			Name:   bridge.ResourceName(raw),
			Room:   room,
			UsedBy: usedBy[id],
		})
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].Name < scenes[j].Name
	})
	return scenes, nil
}

// SceneCandidates returns the fuzzy-match candidate set over scene
// names. When roomID is non-empty only that room's scenes qualify.
func (inv *Inventory) SceneCandidates(ctx context.Context, roomID string) ([]match.Candidate, error) {
	raws, err := inv.cache.List(ctx, bridge.RTypeScene)
	if err != nil {
		return nil, fmt.Errorf("listing scenes: %w", err)
	}
	var cands []match.Candidate
	for _, raw := range raws {
		if roomID != "" {
			group, _ := raw["group"].(map[string]any)
			if rid, _ := group["rid"].(string); rid != roomID {
				continue
			}
		}
		cands = append(cands, match.Candidate{
			ID:   bridge.ResourceID(raw),
			Name: bridge.ResourceName(raw),
		})
	}
	return cands, nil
}

// RoomCandidates returns the fuzzy-match candidate set over room and
// zone names.
func (inv *Inventory) RoomCandidates(ctx context.Context) ([]match.Candidate, error) {
	rooms, err := inv.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	cands := make([]match.Candidate, 0, len(rooms))
	for _, r := range rooms {
		cands = append(cands, match.Candidate{ID: r.ID, Name: r.Name})
	}
	return cands, nil
}

// SwitchCandidates returns the fuzzy-match candidate set over switch
// names.
func (inv *Inventory) SwitchCandidates(ctx context.Context) ([]match.Candidate, error) {
	switches, err := inv.Switches(ctx)
	if err != nil {
		return nil, err
	}
	cands := make([]match.Candidate, 0, len(switches))
	for _, sw := range switches {
		cands = append(cands, match.Candidate{ID: sw.ID, Name: sw.Name})
	}
	return cands, nil
}

// Summary counts the fleet by device class plus rooms and scenes.
func (inv *Inventory) Summary(ctx context.Context) (map[string]int, error) {
	devices, err := inv.cache.List(ctx, bridge.RTypeDevice)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	summary := make(map[string]int)
	for _, dev := range devices {
		if len(bridge.ServiceRefs(dev, bridge.RTypeButton)) > 0 {
			summary["switches"]++
		} else if len(bridge.ServiceRefs(dev, bridge.RTypeLight)) > 0 {
			summary["lights"]++
		} else {
			summary["other"]++
		}
	}

	for key, rtype := range map[string]string{
		"rooms":      bridge.RTypeRoom,
		"zones":      bridge.RTypeZone,
		"scenes":     bridge.RTypeScene,
		"behaviours": bridge.RTypeBehaviorInstance,
	} {
		list, err := inv.cache.List(ctx, rtype)
		if err != nil {
			return nil, fmt.Errorf("listing %ss: %w", rtype, err)
		}
		summary[key] = len(list)
	}
	return summary, nil
}

// buildSwitch assembles one switch view from its cached resources.
func (inv *Inventory) buildSwitch(ctx context.Context, dev map[string]any, behaviours map[string]map[string]any, roomOf map[string]roomRef) (Switch, error) {
	id := bridge.ResourceID(dev)

	sw := Switch{
		ID:    id,
		Name:  bridge.ResourceName(dev),
		Model: modelID(dev),
		Class: classify(modelID(dev)),
		Room:  UnassignedRoom,
	}
	if room, ok := roomOf[id]; ok {
		sw.Room = room.name
		sw.RoomID = room.id
	}

	if behaviour, ok := behaviours[id]; ok {
		sw.BehaviourID = bridge.ResourceID(behaviour)
		format, err := button.DetectFormat(behaviour)
		if err == nil {
			sw.Format = format.String()
			controls, err := inv.cache.ButtonControls(ctx, id)
			if err != nil {
				return Switch{}, err
			}
			specs, err := button.Decode(behaviour, format, func(rid string) (int, bool) {
				n, ok := controls[rid]
				return n, ok
			})
			if err == nil && len(specs) > 0 {
				sw.Buttons = specs
			}
		}
	}

	inv.fillHealth(ctx, dev, &sw)
	return sw, nil
}

// fillHealth reads the device's power and connectivity services.
// Missing services just leave the fields empty.
func (inv *Inventory) fillHealth(ctx context.Context, dev map[string]any, sw *Switch) {
	for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeDevicePower) {
		raw, err := inv.cache.Get(ctx, bridge.RTypeDevicePower, ref.RID)
		if err != nil {
			continue
		}
		if ps, ok := raw["power_state"].(map[string]any); ok {
			if level, ok := ps["battery_level"].(float64); ok {
				sw.Battery = &level
			}
		}
	}
	for _, ref := range bridge.ServiceRefs(dev, bridge.RTypeZigbeeConnectivity) {
		raw, err := inv.cache.Get(ctx, bridge.RTypeZigbeeConnectivity, ref.RID)
		if err != nil {
			continue
		}
		if status, ok := raw["status"].(string); ok {
			sw.Connectivity = status
		}
	}
}

// behavioursByDevice indexes behaviour instances by configured device.
func (inv *Inventory) behavioursByDevice(ctx context.Context) (map[string]map[string]any, error) {
	list, err := inv.cache.List(ctx, bridge.RTypeBehaviorInstance)
	if err != nil {
		return nil, fmt.Errorf("listing behaviours: %w", err)
	}
	byDevice := make(map[string]map[string]any, len(list))
	for _, raw := range list {
		cfg, ok := raw["configuration"].(map[string]any)
		if !ok {
			continue
		}
		dev, ok := cfg["device"].(map[string]any)
		if !ok {
			continue
		}
		if rid, ok := dev["rid"].(string); ok && rid != "" {
			byDevice[rid] = raw
		}
	}
	return byDevice, nil
}

// roomRef pairs a room's id with its display name.
type roomRef struct {
	id   string
	name string
}

// roomByDevice maps device ids to the room containing them.
func (inv *Inventory) roomByDevice(ctx context.Context) (map[string]roomRef, error) {
	rooms, err := inv.cache.List(ctx, bridge.RTypeRoom)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	roomOf := make(map[string]roomRef)
	for _, room := range rooms {
		ref := roomRef{id: bridge.ResourceID(room), name: bridge.ResourceName(room)}
		for _, id := range childDeviceIDs(room) {
			roomOf[id] = ref
		}
	}
	return roomOf, nil
}

// groupNames maps room and zone ids to display names.
func (inv *Inventory) groupNames(ctx context.Context) (map[string]string, error) {
	names := make(map[string]string)
	for _, rtype := range []string{bridge.RTypeRoom, bridge.RTypeZone} {
		list, err := inv.cache.List(ctx, rtype)
		if err != nil {
			return nil, fmt.Errorf("listing %ss: %w", rtype, err)
		}
		for _, raw := range list {
			names[bridge.ResourceID(raw)] = bridge.ResourceName(raw)
		}
	}
	return names, nil
}

// sceneUsage builds the reverse mapping from scene id to the
// programmed buttons that recall it.
func (inv *Inventory) sceneUsage(ctx context.Context) (map[string][]ButtonRef, error) {
	switches, err := inv.Switches(ctx)
	if err != nil {
		return nil, err
	}

	usedBy := make(map[string][]ButtonRef)
	add := func(sceneID string, ref ButtonRef) {
		usedBy[sceneID] = append(usedBy[sceneID], ref)
	}

	for _, sw := range switches {
		for n, spec := range sw.Buttons {
			ref := ButtonRef{SwitchID: sw.ID, SwitchName: sw.Name, Button: n}
			for _, s := range spec.Scenes {
				add(s.ID, ref)
			}
			for _, slot := range spec.Slots {
				add(slot.Scene.ID, ref)
			}
			if spec.Scene != nil {
				add(spec.Scene.ID, ref)
			}
			if spec.LongPress != nil && spec.LongPress.Scene != nil {
				add(spec.LongPress.Scene.ID, ref)
			}
		}
	}

	for id := range usedBy {
		refs := usedBy[id]
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].SwitchName != refs[j].SwitchName {
				return refs[i].SwitchName < refs[j].SwitchName
			}
			return refs[i].Button < refs[j].Button
		})
		usedBy[id] = refs
	}
	return usedBy, nil
}

// classify derives the switch class from its model id prefix.
func classify(model string) string {
	switch {
	case strings.HasPrefix(model, "RWL"):
		return "dimmer"
	case strings.HasPrefix(model, "RDM"):
		return "dial"
	case strings.HasPrefix(model, "ROM"), strings.HasPrefix(model, "RLM"):
		return "button"
	default:
		return "switch"
	}
}

func childDeviceIDs(room map[string]any) []string {
	children, ok := room["children"].([]any)
	if !ok {
		return nil
	}
	var ids []string
	for _, c := range children {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		rid, _ := m["rid"].(string)
		rtype, _ := m["rtype"].(string)
		if rtype == bridge.RTypeDevice && rid != "" {
			ids = append(ids, rid)
		}
	}
	return ids
}

func modelID(dev map[string]any) string {
	pd, ok := dev["product_data"].(map[string]any)
	if !ok {
		return ""
	}
	model, _ := pd["model_id"].(string)
	return model
}
