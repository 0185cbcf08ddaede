package core

import (
	"fmt"
	"time"
)

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	// EventData is a log line from the feed. Data is the raw payload.
	EventData EventKind = iota
	// EventPing is a heartbeat without log content.
	EventPing
	// EventSourceUp signals that the log source came back.
	EventSourceUp
	// EventSourceDown signals that the log source went away.
	EventSourceDown
	// EventTransportError is a feed-level failure. Err holds the cause.
	EventTransportError
	// EventTick is the periodic liveness check.
	EventTick
	// EventStatusExpired asks to clear a transient banner. Seq identifies
	// which banner.
	EventStatusExpired
)

var eventKindNames = [...]string{
	EventData:           "data",
	EventPing:           "ping",
	EventSourceUp:       "source_up",
	EventSourceDown:     "source_down",
	EventTransportError: "transport_error",
	EventTick:           "tick",
	EventStatusExpired:  "status_expired",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is the single input type of the viewer's event loop.
type Event struct {
	Kind EventKind
	At   time.Time
	Data string
	Err  error
	Seq  uint64
}

// SSE event names used on the wire.
const (
	WireSourceUp   = "source_up"
	WireSourceDown = "source_down"
	WirePing       = "ping"
)

// EventFromWire maps an SSE event name and payload to an Event. Unknown
// names and the default "message" name are data events.
func EventFromWire(name, data string, at time.Time) Event {
	switch name {
	case WireSourceUp:
		return Event{Kind: EventSourceUp, At: at}
	case WireSourceDown:
		return Event{Kind: EventSourceDown, At: at}
	case WirePing:
		return Event{Kind: EventPing, At: at}
	default:
		return Event{Kind: EventData, At: at, Data: data}
	}
}
