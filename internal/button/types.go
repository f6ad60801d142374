package button

import "fmt"

// Kind identifies the primary action variant of an ActionSpec.
type Kind string

const (
	KindSceneCycle  Kind = "scene_cycle"
	KindTimeBased   Kind = "time_based"
	KindSingleScene Kind = "single_scene"
	KindDim         Kind = "dim"
)

// DimDirection is the dimming direction for KindDim actions.
type DimDirection string

const (
	DimUp   DimDirection = "dim_up"
	DimDown DimDirection = "dim_down"
)

// SceneRef identifies a scene. ID is the bridge resource id and is the
// basis for equality; Name is advisory display text resolved from the
// cache and may be empty.
type SceneRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// TimeSlot is one entry of a time-based schedule: from Hour:Minute
// onwards, presses recall Scene.
type TimeSlot struct {
	Hour   int      `json:"hour"`
	Minute int      `json:"minute"`
	Scene  SceneRef `json:"scene"`
}

// LongPress is the optional long-press override, orthogonal to the
// primary action. Either Action names a built-in behaviour (e.g.
// "all_off") or Scene recalls a scene; exactly one is set.
type LongPress struct {
	Action string    `json:"action,omitempty"`
	Scene  *SceneRef `json:"scene,omitempty"`
}

// ActionSpec is the canonical, format-independent representation of a
// button's programming. Exactly the fields for its Kind are populated;
// LongPress may accompany any variant.
//
// ActionSpec is never written to the bridge directly - Encode produces
// the native payload for whichever format the target resource uses.
type ActionSpec struct {
	Kind      Kind         `json:"kind"`
	Scenes    []SceneRef   `json:"scenes,omitempty"`    // KindSceneCycle
	Slots     []TimeSlot   `json:"slots,omitempty"`     // KindTimeBased
	Scene     *SceneRef    `json:"scene,omitempty"`     // KindSingleScene
	Direction DimDirection `json:"direction,omitempty"` // KindDim
	LongPress *LongPress   `json:"long_press,omitempty"`

	// DimEvents lists the event keys that carried the dim action when
	// the spec was decoded from a live resource ("on_short_release",
	// "on_repeat"). Encode re-emits exactly these keys, keeping
	// decode/encode round trips stable for resources that dim on only
	// one of them. Empty means both - the default for newly built
	// programs. Carrier keys are raw-format detail, not intent, so
	// Equal ignores them.
	DimEvents []string `json:"dim_events,omitempty"` // KindDim
}

// Equal reports semantic equality between two specs. Scene names are
// ignored: the same scene renamed is still the same programming, and
// the same intent encoded in different raw formats must compare equal.
func (a ActionSpec) Equal(b ActionSpec) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSceneCycle:
		if len(a.Scenes) != len(b.Scenes) {
			return false
		}
		for i := range a.Scenes {
			if a.Scenes[i].ID != b.Scenes[i].ID {
				return false
			}
		}
	case KindTimeBased:
		if len(a.Slots) != len(b.Slots) {
			return false
		}
		for i := range a.Slots {
			if a.Slots[i].Hour != b.Slots[i].Hour ||
				a.Slots[i].Minute != b.Slots[i].Minute ||
				a.Slots[i].Scene.ID != b.Slots[i].Scene.ID {
				return false
			}
		}
	case KindSingleScene:
		if (a.Scene == nil) != (b.Scene == nil) {
			return false
		}
		if a.Scene != nil && a.Scene.ID != b.Scene.ID {
			return false
		}
	case KindDim:
		if a.Direction != b.Direction {
			return false
		}
	}
	return longPressEqual(a.LongPress, b.LongPress)
}

func longPressEqual(a, b *LongPress) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Action != b.Action {
		return false
	}
	if (a.Scene == nil) != (b.Scene == nil) {
		return false
	}
	return a.Scene == nil || a.Scene.ID == b.Scene.ID
}

// Describe renders the spec using display names where known, for
// previews and inspection output.
func (a ActionSpec) Describe() string {
	var desc string
	switch a.Kind {
	case KindSceneCycle:
		desc = fmt.Sprintf("cycle through %d scenes", len(a.Scenes))
	case KindTimeBased:
		desc = fmt.Sprintf("time-based schedule with %d slots", len(a.Slots))
	case KindSingleScene:
		desc = "recall scene"
		if a.Scene != nil {
			desc = "recall scene " + a.Scene.display()
		}
	case KindDim:
		if a.Direction == DimUp {
			desc = "dim up"
		} else {
			desc = "dim down"
		}
	default:
		desc = "unprogrammed"
	}
	if a.LongPress != nil {
		if a.LongPress.Scene != nil {
			desc += ", long press recalls " + a.LongPress.Scene.display()
		} else {
			desc += ", long press " + a.LongPress.Action
		}
	}
	return desc
}

func (s SceneRef) display() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
