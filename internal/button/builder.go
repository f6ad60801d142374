package button

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/huelogic/internal/match"
)

// minCycleScenes is the smallest scene cycle the bridge accepts; a
// one-scene cycle is a single recall and must be requested as such.
const minCycleScenes = 2

// Request is a user-level programming intent with scenes referenced by
// name. Exactly the fields for its Kind are read.
type Request struct {
	Kind       Kind
	SceneNames []string      // KindSceneCycle
	Slots      []SlotRequest // KindTimeBased
	SceneName  string        // KindSingleScene
	Direction  DimDirection  // KindDim
	LongPress  *LongPressRequest
}

// SlotRequest is one requested time slot.
type SlotRequest struct {
	Hour      int
	Minute    int
	SceneName string
}

// LongPressRequest is the optional long-press override. Either Action
// or SceneName is set.
type LongPressRequest struct {
	Action    string
	SceneName string
}

// Program is a fully resolved, validated button programming ready to
// encode, together with its human-readable preview.
type Program struct {
	Spec    ActionSpec
	Preview string
}

// Build validates a request and resolves every scene name against the
// supplied candidates, producing the canonical spec and a preview.
//
// No bridge call happens here and none may happen until Build succeeds:
// validation failures and unresolved references abort before any
// payload exists.
//
// Returns *ValidationError, *DuplicateSlotError or
// *UnresolvedReferenceError as appropriate.
func Build(req Request, scenes []match.Candidate) (*Program, error) {
	var spec ActionSpec
	spec.Kind = req.Kind

	switch req.Kind {
	case KindSceneCycle:
		if len(req.SceneNames) < minCycleScenes {
			return nil, &ValidationError{Reason: fmt.Sprintf("a scene cycle needs at least %d scenes", minCycleScenes)}
		}
		seen := make(map[string]bool)
		for _, name := range req.SceneNames {
			ref, err := resolveScene(name, scenes)
			if err != nil {
				return nil, err
			}
			if seen[ref.ID] {
				return nil, &ValidationError{Reason: fmt.Sprintf("scene %q appears twice in the cycle", ref.Name)}
			}
			seen[ref.ID] = true
			spec.Scenes = append(spec.Scenes, ref)
		}

	case KindTimeBased:
		if len(req.Slots) == 0 {
			return nil, &ValidationError{Reason: "a time-based schedule needs at least one slot"}
		}
		seen := make(map[int]bool)
		for _, slot := range req.Slots {
			if slot.Hour < 0 || slot.Hour > 23 || slot.Minute < 0 || slot.Minute > 59 {
				return nil, &ValidationError{Reason: fmt.Sprintf("invalid start time %02d:%02d", slot.Hour, slot.Minute)}
			}
			key := slot.Hour*60 + slot.Minute
			if seen[key] {
				return nil, &DuplicateSlotError{Hour: slot.Hour, Minute: slot.Minute}
			}
			seen[key] = true
			ref, err := resolveScene(slot.SceneName, scenes)
			if err != nil {
				return nil, err
			}
			spec.Slots = append(spec.Slots, TimeSlot{Hour: slot.Hour, Minute: slot.Minute, Scene: ref})
		}

	case KindSingleScene:
		ref, err := resolveScene(req.SceneName, scenes)
		if err != nil {
			return nil, err
		}
		spec.Scene = &ref

	case KindDim:
		if req.Direction != DimUp && req.Direction != DimDown {
			return nil, &ValidationError{Reason: "dim direction must be up or down"}
		}
		spec.Direction = req.Direction

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown action kind %q", req.Kind)}
	}

	if req.LongPress != nil {
		lp := &LongPress{}
		switch {
		case req.LongPress.SceneName != "":
			ref, err := resolveScene(req.LongPress.SceneName, scenes)
			if err != nil {
				return nil, err
			}
			lp.Scene = &ref
		case req.LongPress.Action != "":
			lp.Action = req.LongPress.Action
		default:
			return nil, &ValidationError{Reason: "long press needs an action or a scene"}
		}
		spec.LongPress = lp
	}

	return &Program{Spec: spec, Preview: preview(spec)}, nil
}

// resolveScene turns a scene name into a SceneRef, mapping resolver
// failures to the builder's error types.
func resolveScene(name string, scenes []match.Candidate) (SceneRef, error) {
	cand, err := match.Resolve(name, scenes)
	if err != nil {
		var noMatch *match.NoMatchError
		if errors.As(err, &noMatch) {
			return SceneRef{}, &UnresolvedReferenceError{
				Kind:        "scene",
				Query:       name,
				Suggestions: noMatch.Suggestions,
			}
		}
		if errors.Is(err, match.ErrNoCandidates) {
			return SceneRef{}, &UnresolvedReferenceError{Kind: "scene", Query: name}
		}
		// Ambiguity propagates as-is so callers can list the contenders.
		return SceneRef{}, err
	}
	return SceneRef{ID: cand.ID, Name: cand.Name}, nil
}

// preview renders the resolved programming with display names, for the
// confirmation step that gates the actual write.
func preview(spec ActionSpec) string {
	var b strings.Builder

	switch spec.Kind {
	case KindSceneCycle:
		fmt.Fprintf(&b, "Short press: cycle through %d scenes\n", len(spec.Scenes))
		for i, s := range spec.Scenes {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s.display())
		}
	case KindTimeBased:
		fmt.Fprintf(&b, "Short press: time-based schedule (%d slots)\n", len(spec.Slots))
		for _, slot := range spec.Slots {
			fmt.Fprintf(&b, "  %02d:%02d -> %s\n", slot.Hour, slot.Minute, slot.Scene.display())
		}
	case KindSingleScene:
		fmt.Fprintf(&b, "Short press: activate scene %s\n", spec.Scene.display())
	case KindDim:
		dir := "down"
		if spec.Direction == DimUp {
			dir = "up"
		}
		fmt.Fprintf(&b, "Press and hold: dim %s\n", dir)
	}

	if spec.LongPress != nil {
		if spec.LongPress.Scene != nil {
			fmt.Fprintf(&b, "Long press: activate scene %s\n", spec.LongPress.Scene.display())
		} else {
			fmt.Fprintf(&b, "Long press: %s\n", strings.ReplaceAll(spec.LongPress.Action, "_", " "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
