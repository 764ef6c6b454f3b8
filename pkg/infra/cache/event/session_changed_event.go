package event

import "github.com/NeuralTrust/RecruitGate/pkg/domain/session"

type SessionChangedEvent struct {
	Change  session.EventType `json:"change"`
	ScopeID string            `json:"scope_id"`
	Session *session.Session  `json:"session"`
}

func (e SessionChangedEvent) Type() string {
	return SessionChangedEventType
}
