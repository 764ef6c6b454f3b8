package websocket

import "github.com/NeuralTrust/RecruitGate/pkg/domain/session"

// FeedMessage is one frame of the per-scope session feed.
type FeedMessage struct {
	Change  string           `json:"change"`
	Session *session.Session `json:"session"`
}
