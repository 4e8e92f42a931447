package bus

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventAny    EventType = "*"
)

// Matches reports whether an event of type t passes filter.
func (t EventType) Matches(filter EventType) bool {
	return filter == "" || filter == EventAny || filter == t
}

// Event is a row-change notification. Raw is the changed row as the store
// serialized it; consumers only use the event as a refresh trigger and never
// decode it into domain types.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Raw   json.RawMessage `json:"raw,omitempty"`
	At    time.Time       `json:"at"`
}

func encodeEvent(ev Event) ([]byte, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}
