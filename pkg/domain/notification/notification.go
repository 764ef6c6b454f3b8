package notification

import "time"

type Kind string

const (
	KindParticipantJoined   Kind = "participant_joined"
	KindParticipantLeft     Kind = "participant_left"
	KindAutoClosed          Kind = "auto_closed"
	KindStartTimeReached    Kind = "start_time_reached"
	KindSideChannelExpiring Kind = "side_channel_expiring"
	KindSideChannelRemoved  Kind = "side_channel_removed"
)

type TargetType string

const (
	TargetOwner       TargetType = "owner"
	TargetScope       TargetType = "scope"
	TargetSideChannel TargetType = "side_channel"
)

type Target struct {
	Type TargetType `json:"type" mapstructure:"type"`
	ID   string     `json:"id" mapstructure:"id"`
}

func (t Target) String() string {
	return string(t.Type) + ":" + t.ID
}

type Notification struct {
	Kind      Kind                   `json:"kind"`
	SessionID string                 `json:"session_id"`
	ScopeID   string                 `json:"scope_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Dispatcher delivers notifications at most once, best effort. Send never blocks
// the caller and reports nothing back.
//
//go:generate mockery --name=Dispatcher --dir=. --output=./mocks --filename=dispatcher_mock.go --case=underscore --with-expecter
type Dispatcher interface {
	Send(target Target, n Notification)
}
