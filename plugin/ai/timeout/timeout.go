// Package timeout defines centralized timeout constants for store, advice and sync calls.
package timeout

import "time"

const (
	// StoreTimeout bounds a single routine store call made while handling a chat message.
	StoreTimeout = 5 * time.Second

	// AdviceTimeout bounds one advice generation, retries included.
	AdviceTimeout = 60 * time.Second

	// SyncRequestTimeout bounds one request from the offline client to the server.
	SyncRequestTimeout = 10 * time.Second

	// HealthProbeTimeout bounds the offline client's connectivity probe.
	HealthProbeTimeout = 3 * time.Second

	// DefaultPollInterval is how often the offline client retries unsynced entries.
	DefaultPollInterval = 5 * time.Minute

	// ShutdownTimeout is how long the server waits for in-flight requests on shutdown.
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTruncateLength {
		return s
	}
	return string(r[:MaxTruncateLength]) + "..."
}
