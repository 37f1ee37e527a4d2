package model

import (
	"time"

	"gamut-telemetry/internal/dto"
)

// ContentMode is the mutually exclusive bucket elapsed time is attributed to.
type ContentMode string

const (
	ModeArticle   ContentMode = "article"
	ModeNarrative ContentMode = "narrative"
	ModeFeed      ContentMode = "feed"
	ModeRadio     ContentMode = "radio"
)

type ScrollDirection string

const (
	DirectionUp     ScrollDirection = "up"
	DirectionDown   ScrollDirection = "down"
	DirectionSteady ScrollDirection = "steady"
)

// AccumulatedTime holds the per-mode second buckets for the current ping.
type AccumulatedTime struct {
	Total     int
	Article   int
	Narrative int
	Radio     int
	Feed      int
}

// ScrollState is the kinematic view of the viewport. LastPosition tracks every
// position change; LastSamplePosition/LastSampleTime advance only when the
// velocity window (50ms) allows a recompute.
type ScrollState struct {
	LastPosition       float64
	LastSamplePosition float64
	LastSampleTime     time.Time
	Velocity           float64 // px per ms
	Direction          ScrollDirection
	ViewportHeight     float64
	DocHeight          float64
	Initialized        bool
}

// ConfusionState counts distinct re-reading events. PendingUpwardPixels
// accumulates upward movement and resets on any downward movement.
type ConfusionState struct {
	Count               int
	PendingUpwardPixels float64
}

// FlowState tracks sustained low-velocity reading. CurrentDurationMs is the
// continuous streak; TotalDurationMsThisPing is what ships on the next flush.
type FlowState struct {
	IsFlowing               bool
	CurrentDurationMs       int64
	TotalDurationMsThisPing int64
	GraceCounter            int
}

type FocusState struct {
	TabSwitchCount     int
	IsTabActive        bool
	LastCursorMoveTime time.Time
}

type IdleState struct {
	IsActive     bool
	LastActiveAt time.Time
}

// MetaInfo mirrors the request metadata block of the track payload, refreshed
// from whatever the shim last reported.
type MetaInfo struct {
	UserAgent string
	Referrer  string
	Timezone  string
}

// SessionRecord is the single mutable record per agent session. It is owned
// exclusively by the engagement aggregator goroutine; nothing else writes it.
type SessionRecord struct {
	SessionID string
	UserID    string

	Accumulated    AccumulatedTime
	Quarters       [4]int
	MaxScrollDepth int // percent 0-100
	Scroll         ScrollState
	Confusion      ConfusionState
	Flow           FlowState
	Focus          FocusState
	Heatmap        map[string]float64

	PendingInteractions []dto.InteractionEvent

	Idle      IdleState
	WordCount int

	// Drop-off marker: most recent fragment to lose visibility.
	LastVisibleFragmentID string

	// Currently displayed content, "" when the user is on a plain feed view.
	ContentID   string
	ContentType ContentMode
	Path        string

	AudioPlaying  bool
	HasLinkedUser bool
	Meta          MetaInfo

	LastPingTime time.Time

	// Debounce marker for high-frequency activity signals.
	LastActivityProcessed time.Time
}

// NewSessionRecord returns a record in the starting state: active, tab
// visible, clock primed at now.
func NewSessionRecord(now time.Time) *SessionRecord {
	return &SessionRecord{
		Heatmap:      make(map[string]float64),
		Idle:         IdleState{IsActive: true, LastActiveAt: now},
		Focus:        FocusState{IsTabActive: true, LastCursorMoveTime: now},
		Scroll:       ScrollState{Direction: DirectionSteady},
		LastPingTime: now,
	}
}

// ResetContentScope clears everything bound to the displayed content. Called
// when the content id or route changes; the caller flushes first.
func (s *SessionRecord) ResetContentScope() {
	s.Quarters = [4]int{}
	s.MaxScrollDepth = 0
	s.Heatmap = make(map[string]float64)
	s.WordCount = 0
	s.LastVisibleFragmentID = ""
	s.Confusion = ConfusionState{}
	s.Scroll = ScrollState{Direction: DirectionSteady}
}
