package constant

import "time"

// Behavioral tunables of the engagement engine. These are static product
// decisions, not environment configuration; tests shrink the durations
// through config.TelemetryConfig.
const (
	HeartbeatInterval = 30 * time.Second
	SamplingInterval  = 1 * time.Second

	// Idle timeouts per context. Listening tolerates long stillness; feed
	// scanning requires continuous interaction to count as attention.
	IdleTimeoutAudio   = 20 * time.Minute
	IdleTimeoutFeed    = 15 * time.Second
	IdleTimeoutReading = 60 * time.Second

	// Ghost reading: if the cursor has not moved within this window, reading
	// samples stop counting unless audio is playing.
	CursorIdleWindow = 60 * time.Second

	ActivityDebounce = 500 * time.Millisecond

	// Velocity thresholds in px/ms.
	VelocityReadingMax  = 0.05
	VelocityScanningMin = 0.1

	// Upward scroll accumulated past this many pixels counts as re-reading.
	ConfusionThresholdPx = 300.0

	// Flow: continuous low velocity for the threshold enters flow state;
	// spikes shorter than the grace window are tolerated.
	FlowThreshold    = 5 * time.Minute
	FlowVelocityMax  = 0.05
	FlowGraceSamples = 5

	RageClickCount  = 3
	RageClickWindow = 1 * time.Second

	CopyMinLength      = 10
	CopyTruncateLength = 200

	QueueMaxEntries = 200
)

// Storage keys shared with the host shim.
const (
	SessionIDKey    = "current_analytics_session_id"
	OfflineQueueKey = "gamut_offline_analytics"
)
