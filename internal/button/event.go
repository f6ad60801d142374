package button

import "fmt"

// EventCode is the 4-digit XYYY code a switch emits: X is the control
// (1=On, 2=DimUp, 3=DimDown, 4=Off) and YYY the event type
// (000=press, 001=hold, 002=short release, 003=long release).
type EventCode int

// Event is the YYY portion of an EventCode.
type Event int

const (
	EventPress        Event = 0
	EventHold         Event = 1
	EventShortRelease Event = 2
	EventLongRelease  Event = 3
)

// controlNames maps the X digit to its conventional label on a
// four-button dimmer switch.
var controlNames = map[int]string{
	1: "On",
	2: "DimUp",
	3: "DimDown",
	4: "Off",
}

var eventNames = map[Event]string{
	EventPress:        "press",
	EventHold:         "hold",
	EventShortRelease: "short release",
	EventLongRelease:  "long release",
}

// NewEventCode builds the code for a control index and event type.
func NewEventCode(control int, event Event) EventCode {
	return EventCode(control*1000 + int(event))
}

// Control returns the 1-based control index (the X digit).
func (c EventCode) Control() int {
	return int(c) / 1000
}

// Event returns the event type (the YYY digits).
func (c EventCode) Event() Event {
	return Event(int(c) % 1000)
}

// Valid reports whether the code is a well-formed XYYY code.
func (c EventCode) Valid() bool {
	control := c.Control()
	_, knownEvent := eventNames[c.Event()]
	return control >= 1 && control <= 4 && knownEvent
}

// String renders the code human-readably, e.g. "1002 (On short release)".
func (c EventCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("%04d (unknown)", int(c))
	}
	return fmt.Sprintf("%04d (%s %s)", int(c), controlNames[c.Control()], eventNames[c.Event()])
}
