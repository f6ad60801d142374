package button

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nerrad567/huelogic/internal/bridge"
)

// Format identifies which native button encoding a behaviour instance
// uses. It is a property of the resource, detected per resource and
// threaded explicitly through decode and encode.
type Format int

const (
	FormatUnknown Format = iota

	// FormatCurrent stores buttons in a single configuration.buttons
	// mapping keyed by button resource id.
	FormatCurrent

	// FormatLegacy stores buttons as separate configuration.button1..
	// buttonN fields.
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ownedKeys are the event keys the canonical model may overwrite on a
// button payload. Everything else passes through encode untouched.
var ownedKeys = []string{"on_short_release", "on_repeat", "on_long_press"}

// ButtonIndexFunc maps a button resource id to its 1-based control
// index. Needed for the current format, whose buttons mapping is keyed
// by id; the cache derives it from the switch's button services.
type ButtonIndexFunc func(rid string) (int, bool)

// Key addresses one button on a behaviour instance. Index is always
// set; RID is required for the current format.
type Key struct {
	Index int
	RID   string
}

// DetectFormat inspects a behaviour instance and reports which button
// encoding it uses.
//
// Returns ErrNoConfiguration if the resource has no configuration
// object, ErrUnsupportedFormat if the configuration matches neither
// encoding.
func DetectFormat(raw map[string]any) (Format, error) {
	cfg, ok := raw["configuration"].(map[string]any)
	if !ok {
		return FormatUnknown, ErrNoConfiguration
	}

	if _, ok := cfg["buttons"].(map[string]any); ok {
		return FormatCurrent, nil
	}

	for key := range cfg {
		if _, ok := legacyIndex(key); ok {
			return FormatLegacy, nil
		}
	}

	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, bridge.ResourceID(raw))
}

// legacyIndex parses "buttonN" keys into their control index.
func legacyIndex(key string) (int, bool) {
	digits, ok := strings.CutPrefix(key, "button")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Decode extracts the programmed actions from a behaviour instance as
// canonical ActionSpecs keyed by control index.
//
// Buttons carrying no recognisable programming are omitted rather than
// failing the whole resource; their raw fields survive through encode's
// merge semantics regardless. For the current format, buttons whose id
// idx cannot map are skipped too - the resource may reference buttons
// of a device the cache has not seen.
func Decode(raw map[string]any, format Format, idx ButtonIndexFunc) (map[int]ActionSpec, error) {
	cfg, ok := raw["configuration"].(map[string]any)
	if !ok {
		return nil, ErrNoConfiguration
	}

	specs := make(map[int]ActionSpec)

	switch format {
	case FormatCurrent:
		buttons, ok := cfg["buttons"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, bridge.ResourceID(raw))
		}
		if idx == nil {
			return nil, fmt.Errorf("button: decoding current format requires a button index for %s", bridge.ResourceID(raw))
		}
		for rid, v := range buttons {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			n, ok := idx(rid)
			if !ok {
				continue
			}
			if spec, ok := decodeEntry(entry); ok {
				specs[n] = spec
			}
		}

	case FormatLegacy:
		for key, v := range cfg {
			n, ok := legacyIndex(key)
			if !ok {
				continue
			}
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if spec, ok := decodeEntry(entry); ok {
				specs[n] = spec
			}
		}

	default:
		return nil, ErrUnsupportedFormat
	}

	return specs, nil
}

// Encode writes spec onto the button addressed by key, returning an
// updated deep copy of raw. This is a merge, not a replace: only the
// owned event keys are rewritten, all other fields on the button entry
// and the resource are preserved byte for byte.
func Encode(raw map[string]any, format Format, key Key, spec ActionSpec) (map[string]any, error) {
	out := bridge.CopyResource(raw)

	cfg, ok := out["configuration"].(map[string]any)
	if !ok {
		return nil, ErrNoConfiguration
	}

	var entry map[string]any
	switch format {
	case FormatCurrent:
		buttons, ok := cfg["buttons"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, bridge.ResourceID(raw))
		}
		if key.RID == "" {
			return nil, fmt.Errorf("%w: current format needs a button rid", ErrUnknownButton)
		}
		entry, ok = buttons[key.RID].(map[string]any)
		if !ok {
			// Programming a button the resource has never seen.
			entry = make(map[string]any)
			buttons[key.RID] = entry
		}

	case FormatLegacy:
		name := "button" + strconv.Itoa(key.Index)
		var found bool
		entry, found = cfg[name].(map[string]any)
		if !found {
			entry = make(map[string]any)
			cfg[name] = entry
		}

	default:
		return nil, ErrUnsupportedFormat
	}

	patchEntry(entry, spec)
	return out, nil
}

// decodeEntry reads one button's event map into an ActionSpec. The
// second return is false when no primary action is recognised.
func decodeEntry(entry map[string]any) (ActionSpec, bool) {
	var spec ActionSpec
	recognised := false

	if osr, ok := entry["on_short_release"].(map[string]any); ok {
		switch {
		case hasKey(osr, "scene_cycle_extended"):
			spec.Kind = KindSceneCycle
			spec.Scenes = decodeCycleSlots(osr["scene_cycle_extended"])
			recognised = true
		case hasKey(osr, "time_based_extended"):
			spec.Kind = KindTimeBased
			spec.Slots = decodeTimeSlots(osr["time_based_extended"])
			recognised = true
		case hasKey(osr, "recall_single_extended"):
			spec.Kind = KindSingleScene
			spec.Scene = decodeSingleRecall(osr["recall_single_extended"])
			recognised = true
		default:
			if dir, ok := dimAction(osr); ok {
				spec.Kind = KindDim
				spec.Direction = dir
				spec.DimEvents = append(spec.DimEvents, "on_short_release")
				recognised = true
			}
		}
	}

	// A dim action may ride on_repeat alone, or alongside an
	// on_short_release dim. Record each carrier key so encode can
	// re-emit exactly what was there.
	if rep, ok := entry["on_repeat"].(map[string]any); ok {
		if dir, ok := dimAction(rep); ok {
			switch {
			case !recognised:
				spec.Kind = KindDim
				spec.Direction = dir
				spec.DimEvents = append(spec.DimEvents, "on_repeat")
				recognised = true
			case spec.Kind == KindDim:
				spec.DimEvents = append(spec.DimEvents, "on_repeat")
			}
		}
	}

	if lp, ok := entry["on_long_press"].(map[string]any); ok {
		if decoded := decodeLongPress(lp); decoded != nil {
			spec.LongPress = decoded
			recognised = true
		}
	}

	return spec, recognised
}

// patchEntry rewrites the owned event keys on a button entry in place.
func patchEntry(entry map[string]any, spec ActionSpec) {
	// Clear owned keys first so variant switches don't leave the old
	// encoding behind (e.g. a cycle replacing a dim action).
	for _, k := range ownedKeys {
		delete(entry, k)
	}

	switch spec.Kind {
	case KindSceneCycle:
		slots := make([]any, 0, len(spec.Scenes))
		for _, s := range spec.Scenes {
			// Each scene is wrapped in its own single-element slot.
			// The bridge firmware distinguishes a cycle from a flat
			// action list by exactly this nesting.
			slots = append(slots, []any{recallAction(s)})
		}
		entry["on_short_release"] = map[string]any{
			"scene_cycle_extended": map[string]any{"slots": slots},
		}

	case KindTimeBased:
		sorted := make([]TimeSlot, len(spec.Slots))
		copy(sorted, spec.Slots)
		// Ascending start-time order: the firmware resolves rollover
		// and DST from sorted slots.
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Hour != sorted[j].Hour {
				return sorted[i].Hour < sorted[j].Hour
			}
			return sorted[i].Minute < sorted[j].Minute
		})
		slots := make([]any, 0, len(sorted))
		for _, s := range sorted {
			slots = append(slots, map[string]any{
				"start_time": map[string]any{
					"hour":   float64(s.Hour),
					"minute": float64(s.Minute),
				},
				"actions": []any{recallAction(s.Scene)},
			})
		}
		entry["on_short_release"] = map[string]any{
			"time_based_extended": map[string]any{"slots": slots},
		}

	case KindSingleScene:
		if spec.Scene != nil {
			entry["on_short_release"] = map[string]any{
				"recall_single_extended": map[string]any{
					"actions": []any{recallAction(*spec.Scene)},
				},
			}
		}

	case KindDim:
		events := spec.DimEvents
		if len(events) == 0 {
			events = []string{"on_short_release", "on_repeat"}
		}
		for _, k := range events {
			entry[k] = map[string]any{"action": string(spec.Direction)}
		}
	}

	if spec.LongPress != nil {
		if spec.LongPress.Scene != nil {
			entry["on_long_press"] = map[string]any{
				"actions": []any{recallAction(*spec.LongPress.Scene)},
			}
		} else {
			entry["on_long_press"] = map[string]any{"action": spec.LongPress.Action}
		}
	}
}

// recallAction builds the nested scene recall object shared by every
// scene-referencing encoding.
func recallAction(s SceneRef) map[string]any {
	return map[string]any{
		"action": map[string]any{
			"recall": map[string]any{
				"rid":   s.ID,
				"rtype": bridge.RTypeScene,
			},
		},
	}
}

// recallSceneID digs the scene rid out of a recall action object.
func recallSceneID(action any) string {
	m, ok := action.(map[string]any)
	if !ok {
		return ""
	}
	inner, ok := m["action"].(map[string]any)
	if !ok {
		return ""
	}
	recall, ok := inner["recall"].(map[string]any)
	if !ok {
		return ""
	}
	rid, _ := recall["rid"].(string)
	return rid
}

func decodeCycleSlots(v any) []SceneRef {
	ext, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	slots, ok := ext["slots"].([]any)
	if !ok {
		return nil
	}
	var scenes []SceneRef
	for _, slot := range slots {
		wrapped, ok := slot.([]any)
		if !ok || len(wrapped) == 0 {
			continue
		}
		if rid := recallSceneID(wrapped[0]); rid != "" {
			scenes = append(scenes, SceneRef{ID: rid})
		}
	}
	return scenes
}

func decodeTimeSlots(v any) []TimeSlot {
	ext, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	slots, ok := ext["slots"].([]any)
	if !ok {
		return nil
	}
	var out []TimeSlot
	for _, slot := range slots {
		sm, ok := slot.(map[string]any)
		if !ok {
			continue
		}
		start, _ := sm["start_time"].(map[string]any)
		actions, _ := sm["actions"].([]any)
		ts := TimeSlot{
			Hour:   intField(start, "hour"),
			Minute: intField(start, "minute"),
		}
		if len(actions) > 0 {
			if rid := recallSceneID(actions[0]); rid != "" {
				ts.Scene = SceneRef{ID: rid}
			}
		}
		out = append(out, ts)
	}
	return out
}

func decodeSingleRecall(v any) *SceneRef {
	ext, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	actions, ok := ext["actions"].([]any)
	if !ok || len(actions) == 0 {
		return nil
	}
	if rid := recallSceneID(actions[0]); rid != "" {
		return &SceneRef{ID: rid}
	}
	return nil
}

func decodeLongPress(lp map[string]any) *LongPress {
	if action, ok := lp["action"].(string); ok && action != "" {
		return &LongPress{Action: action}
	}
	if actions, ok := lp["actions"].([]any); ok && len(actions) > 0 {
		if rid := recallSceneID(actions[0]); rid != "" {
			return &LongPress{Scene: &SceneRef{ID: rid}}
		}
	}
	return nil
}

// dimAction recognises {"action": "dim_up"|"dim_down"} event objects.
func dimAction(m map[string]any) (DimDirection, bool) {
	action, _ := m["action"].(string)
	switch DimDirection(action) {
	case DimUp, DimDown:
		return DimDirection(action), true
	default:
		return "", false
	}
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
