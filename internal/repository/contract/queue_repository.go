package contract

import "gamut-telemetry/internal/dto"

// IQueueRepository is the durable offline queue for unsent track payloads.
// Implementations must be safe for concurrent use: dispatch goroutines append
// while the replay path drains.
type IQueueRepository interface {
	// Append adds one payload to the tail, evicting the oldest entries when
	// the configured bound is exceeded.
	Append(payload dto.TrackPayload) error

	// DrainAll atomically removes and returns every queued payload in FIFO
	// order. The caller re-appends anything it fails to deliver.
	DrainAll() ([]dto.TrackPayload, error)

	// Len reports the number of queued payloads.
	Len() (int, error)
}
