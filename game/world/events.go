package world

import "time"

// EventType identifies an observable state change
type EventType string

const (
	EventSpawn       EventType = "spawn"
	EventMove        EventType = "move"
	EventMood        EventType = "mood"
	EventSiren       EventType = "siren"
	EventLandingGear EventType = "landing_gear"
	EventBoard       EventType = "board"
	EventDisembark   EventType = "disembark"
)

// Event records a single state change in a world
type Event struct {
	Seq          int       `json:"seq"`
	Type         EventType `json:"type"`
	OccupantID   string    `json:"occupant_id"`
	OccupantName string    `json:"occupant_name"`
	VehicleID    string    `json:"vehicle_id,omitempty"`
	From         *Position `json:"from,omitempty"`
	To           *Position `json:"to,omitempty"`
	Gait         Gait      `json:"gait,omitempty"`
	Value        string    `json:"value,omitempty"` // new mood, siren or gear state
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// Listener receives every event emitted by a world
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(Event)

// OnEvent calls f(e)
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Subscribe registers a listener for future events
func (w *World) Subscribe(l Listener) {
	w.listeners = append(w.listeners, l)
}

// Events returns the full event log
func (w *World) Events() []Event {
	return append([]Event(nil), w.events...)
}

// LastEvent returns the most recent event, or nil if none
func (w *World) LastEvent() *Event {
	if len(w.events) == 0 {
		return nil
	}
	e := w.events[len(w.events)-1]
	return &e
}

func (w *World) emit(e Event) {
	e.Seq = len(w.events) + 1
	e.Timestamp = w.now()
	w.events = append(w.events, e)
	for _, l := range w.listeners {
		l.OnEvent(e)
	}
}
