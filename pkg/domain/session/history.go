package session

import "time"

type EventType string

const (
	EventCreated EventType = "create"
	EventUpdated EventType = "update"
	EventClosed  EventType = "close"
	EventDeleted EventType = "delete"
	EventJoined  EventType = "join"
	EventLeft    EventType = "leave"
	EventEvicted EventType = "evict"

	// HistoryLimit caps the events kept per session; oldest are dropped first.
	HistoryLimit = 200
)

type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	ScopeID   string    `json:"scope_id"`
	Actor     string    `json:"actor,omitempty"`
	Snapshot  *Session  `json:"snapshot,omitempty"`
}

func NewEvent(t EventType, s *Session, actor string, now time.Time) Event {
	return Event{
		Timestamp: now.UTC(),
		Type:      t,
		SessionID: s.ID,
		ScopeID:   s.ScopeID,
		Actor:     actor,
		Snapshot:  s.Clone(),
	}
}

// AppendEvent appends ev and trims the oldest entries past HistoryLimit.
func AppendEvent(events []Event, ev Event) []Event {
	events = append(events, ev)
	if len(events) > HistoryLimit {
		events = append([]Event{}, events[len(events)-HistoryLimit:]...)
	}
	return events
}

// FilterEvents keeps events with from <= ts <= to. Zero bounds are open.
func FilterEvents(events []Event, from, to time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if !from.IsZero() && ev.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Timestamp.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
