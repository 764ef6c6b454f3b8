package event

type Event interface {
	Type() string
}

const (
	DeleteSessionMirrorEventType = "DeleteSessionMirrorEvent"
	SessionChangedEventType      = "SessionChangedEvent"
)
