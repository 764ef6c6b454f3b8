package common

const (
	RequesterIDHeader = "X-Requester-ID"
	RequestIDHeader   = "X-Request-Id"
)
