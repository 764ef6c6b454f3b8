package request

import "time"

type BindSideChannelRequest struct {
	ResourceID string `json:"resource_id" validate:"required,max=128"`
	TTLSeconds int    `json:"ttl_seconds" validate:"gte=0"`
}

func (r *BindSideChannelRequest) Validate() error {
	return validate(r)
}

func (r *BindSideChannelRequest) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}
