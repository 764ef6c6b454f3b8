package request

import "time"

type ArmCooldownRequest struct {
	TTLSeconds int `json:"ttl_seconds" validate:"gte=0,lte=86400"`
}

func (r *ArmCooldownRequest) Validate() error {
	return validate(r)
}

// TTL falls back to def when the body leaves ttl_seconds out.
func (r *ArmCooldownRequest) TTL(def time.Duration) time.Duration {
	if r.TTLSeconds <= 0 {
		return def
	}
	return time.Duration(r.TTLSeconds) * time.Second
}
