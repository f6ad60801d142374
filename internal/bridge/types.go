package bridge

// Resource types exposed by the bridge's v2 REST surface.
const (
	RTypeDevice             = "device"
	RTypeLight              = "light"
	RTypeRoom               = "room"
	RTypeZone               = "zone"
	RTypeScene              = "scene"
	RTypeButton             = "button"
	RTypeBehaviorInstance   = "behavior_instance"
	RTypeDevicePower        = "device_power"
	RTypeZigbeeConnectivity = "zigbee_connectivity"
)

// ResourceRef is the bridge's pointer-to-resource shape, used wherever
// one resource references another (group owners, scene recalls,
// service lists).
type ResourceRef struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

// ResourceID returns the resource's id field, or "" if absent.
func ResourceID(raw map[string]any) string {
	id, _ := raw["id"].(string)
	return id
}

// ResourceName returns metadata.name, or "" if absent.
func ResourceName(raw map[string]any) string {
	meta, ok := raw["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := meta["name"].(string)
	return name
}

// Ref extracts a ResourceRef from a raw {"rid": ..., "rtype": ...} map.
func Ref(raw map[string]any) (ResourceRef, bool) {
	rid, _ := raw["rid"].(string)
	rtype, _ := raw["rtype"].(string)
	if rid == "" {
		return ResourceRef{}, false
	}
	return ResourceRef{RID: rid, RType: rtype}, true
}

// ServiceRefs returns the resource's services list as ResourceRefs,
// optionally filtered by rtype ("" keeps all).
func ServiceRefs(raw map[string]any, rtype string) []ResourceRef {
	services, ok := raw["services"].([]any)
	if !ok {
		return nil
	}
	var refs []ResourceRef
	for _, s := range services {
		sm, ok := s.(map[string]any)
		if !ok {
			continue
		}
		ref, ok := Ref(sm)
		if !ok {
			continue
		}
		if rtype != "" && ref.RType != rtype {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// CopyResource returns a deep copy of a raw resource bag. Mutating the
// copy never affects the original, which lets the cache hand out
// isolated views and lets the encoder patch a copy in place.
func CopyResource(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	return copyMap(raw)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		// Scalars (string, float64, bool, nil) are immutable.
		return val
	}
}
