package common

type contextKey string

const (
	RequesterContextKey contextKey = "requester"
	RequestIDContextKey contextKey = "request_id"
	LatencyContextKey   contextKey = "__execution_time"
	FeedSemaphoreKey    contextKey = "ws_semaphore"
)
