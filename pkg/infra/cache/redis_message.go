package cache

import (
	"encoding/json"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
)

// RedisMessage is the envelope carried on every event channel.
type RedisMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

func newRedisMessage(ev event.Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(RedisMessage{
		Type:  ev.Type(),
		Event: b,
	})
}
