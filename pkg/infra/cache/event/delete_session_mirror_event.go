package event

// DeleteSessionMirrorEvent tells every process to drop its in-process copy of a session.
type DeleteSessionMirrorEvent struct {
	SessionID string `json:"session_id"`
	OriginID  string `json:"origin_id,omitempty"`
}

func (e DeleteSessionMirrorEvent) Type() string {
	return DeleteSessionMirrorEventType
}
