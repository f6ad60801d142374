package cache

// MultiEvents fans one event stream out to several sinks, so the MQTT
// mirror and the telemetry collector can both observe the cache.
type MultiEvents []Events

var _ Events = (MultiEvents)(nil)

// MutationApplied forwards to every sink.
func (m MultiEvents) MutationApplied(rtype, id, name string) {
	for _, e := range m {
		e.MutationApplied(rtype, id, name)
	}
}

// Reloaded forwards to every sink.
func (m MultiEvents) Reloaded(counts map[string]int) {
	for _, e := range m {
		e.Reloaded(counts)
	}
}
