package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/cache"
)

// Applier is the mutation surface restore writes through. The cache
// satisfies it, keeping the mirror consistent after every write.
type Applier interface {
	Apply(ctx context.Context, m cache.Mutation) error
	ButtonControls(ctx context.Context, deviceID string) (map[string]int, error)
}

// Restore reapplies a snapshot's programming onto the bridge. Each
// device's live behaviour is re-fetched and the snapshot's ActionSpecs
// are merged onto it, so fields the bridge grew since the snapshot was
// taken survive untouched.
type Restore struct {
	transport bridge.Transport
	applier   Applier
	logger    cache.Logger
}

// RestoreResult reports what a run actually did. A run that hits a
// write failure stops there: earlier devices stay restored, later
// devices stay untouched, and the result says which is which.
type RestoreResult struct {
	// Applied lists devices whose programming was written back, with
	// the number of buttons each.
	Applied []string

	// Warnings lists devices or buttons skipped without failing the
	// run: deleted since the snapshot, behaviour gone, live format
	// unrecognised, or a snapshotted button missing from the device.
	Warnings []string
}

// NewRestore wires a restore engine over the given transport and
// write-through applier.
func NewRestore(transport bridge.Transport, applier Applier) *Restore {
	return &Restore{transport: transport, applier: applier}
}

// SetLogger installs a logger for per-device progress. Nil resets to
// silent.
func (r *Restore) SetLogger(logger cache.Logger) {
	if logger == nil {
		r.logger = nil
		return
	}
	r.logger = logger
}

// Run restores every device in the snapshot, best effort.
//
// Devices missing from the live bridge are skipped with a warning -
// the fleet may have changed since the backup. A bridge write failure
// aborts the run and returns both the partial result and the error;
// nothing is rolled back.
func (r *Restore) Run(ctx context.Context, snap *RoomSnapshot) (*RestoreResult, error) {
	result := &RestoreResult{}

	for _, dev := range snap.Devices {
		if len(dev.Buttons) == 0 {
			continue
		}
		if dev.BehaviourID == "" {
			result.warnf("%s: snapshot has no behaviour reference", dev.Name)
			continue
		}

		if err := r.restoreDevice(ctx, dev, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (r *Restore) restoreDevice(ctx context.Context, dev DeviceSnapshot, result *RestoreResult) error {
	live, err := r.transport.GetResource(ctx, bridge.RTypeBehaviorInstance, dev.BehaviourID)
	if err != nil {
		if isNotFound(err) {
			result.warnf("%s: behaviour deleted since snapshot, skipped", dev.Name)
			return nil
		}
		return fmt.Errorf("fetching live behaviour for %q: %w", dev.Name, err)
	}

	format, err := button.DetectFormat(live)
	if err != nil {
		result.warnf("%s: live behaviour format unrecognised, skipped", dev.Name)
		return nil
	}

	ridFor, err := r.buttonRIDs(ctx, dev.DeviceID, format)
	if err != nil {
		return err
	}

	applied := 0
	for _, n := range sortedIndices(dev.Buttons) {
		// A button present in the snapshot may be gone from the live
		// device (hardware swapped for a model with fewer buttons).
		// Skip it rather than failing the whole run.
		if format == button.FormatCurrent && ridFor[n] == "" {
			result.warnf("%s: button %d no longer present on device, skipped", dev.Name, n)
			continue
		}
		key := button.Key{Index: n, RID: ridFor[n]}
		live, err = button.Encode(live, format, key, dev.Buttons[n])
		if err != nil {
			return fmt.Errorf("encoding button %d of %q: %w", n, dev.Name, err)
		}
		applied++
	}
	if applied == 0 {
		result.warnf("%s: no snapshotted buttons remain on device, skipped", dev.Name)
		return nil
	}

	mutation := cache.Mutation{
		RType: bridge.RTypeBehaviorInstance,
		ID:    dev.BehaviourID,
		Name:  dev.Name,
		Payload: map[string]any{
			"configuration": live["configuration"],
		},
	}
	if err := r.applier.Apply(ctx, mutation); err != nil {
		return fmt.Errorf("restoring %q: %w", dev.Name, err)
	}

	if r.logger != nil {
		r.logger.Info("restored device programming",
			"device", dev.Name,
			"buttons", applied)
	}
	result.Applied = append(result.Applied, fmt.Sprintf("%s (%d buttons)", dev.Name, applied))
	return nil
}

// buttonRIDs inverts the device's control map so indices address
// current-format entries by button resource id. The legacy format
// keys by index alone and needs no mapping.
func (r *Restore) buttonRIDs(ctx context.Context, deviceID string, format button.Format) (map[int]string, error) {
	if format != button.FormatCurrent {
		return nil, nil
	}
	controls, err := r.applier.ButtonControls(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("resolving button ids for %q: %w", deviceID, err)
	}
	ridFor := make(map[int]string, len(controls))
	for rid, n := range controls {
		ridFor[n] = rid
	}
	return ridFor, nil
}

func (res *RestoreResult) warnf(format string, args ...any) {
	res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
}

func sortedIndices(specs map[int]button.ActionSpec) []int {
	out := make([]int, 0, len(specs))
	for n := range specs {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
