package events

import "time"

// Topic names on the in-process bus.
const (
	TopicPlatformEvents = "platform_events"
	TopicToastCommands  = "toast_commands"
)

// EventType identifies a raw platform signal forwarded by the host shim.
type EventType string

const (
	EventScroll        EventType = "scroll"
	EventPointerDown   EventType = "pointer_down"
	EventKeyDown       EventType = "key_down"
	EventTouchStart    EventType = "touch_start"
	EventCursorMove    EventType = "cursor_move"
	EventClick         EventType = "click"
	EventCopy          EventType = "copy"
	EventVisibility    EventType = "visibility"
	EventAudioState    EventType = "audio_state"
	EventAudioAction   EventType = "audio_action"
	EventImpression    EventType = "impression"
	EventContentChange EventType = "content_change"
	EventFragment      EventType = "fragment"
	EventNetwork       EventType = "network"
	EventAuth          EventType = "auth"
	EventUnload        EventType = "unload"
)

// PlatformEvent is the envelope for every raw signal from the host.
// The shim fills only the fields relevant to the event type; the ingress
// enriches UserAgent/Referrer from request headers.
type PlatformEvent struct {
	Type        EventType `json:"type" validate:"required"`
	TimestampMs int64     `json:"timestamp"`

	// Scroll samples
	ScrollTop      float64 `json:"scrollTop,omitempty"`
	ViewportHeight float64 `json:"viewportHeight,omitempty"`
	DocHeight      float64 `json:"docHeight,omitempty"`

	// Clicks
	TargetID string `json:"targetId,omitempty"`

	// Copies
	Text string `json:"text,omitempty"`

	// State toggles (pointers so "absent" and "false" stay distinct)
	Visible *bool `json:"visible,omitempty"`
	Online  *bool `json:"online,omitempty"`
	Playing *bool `json:"playing,omitempty"`

	// Audio actions and impressions
	AudioAction string `json:"audioAction,omitempty"`
	ContentID   string `json:"contentId,omitempty"`

	// Content / route changes
	ContentType string `json:"contentType,omitempty"`
	WordCount   int    `json:"wordCount,omitempty"`
	Path        string `json:"path,omitempty"`

	// Authentication becoming available
	UserID string `json:"userId,omitempty"`

	// Fragment visibility crossings (50% threshold applied by the shim)
	FragmentID string `json:"fragmentId,omitempty"`
	Entered    *bool  `json:"entered,omitempty"`

	// Request metadata, attached by the ingress
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// Time converts the shim-supplied millisecond timestamp. Events without one
// fall back to the agent clock.
func (e PlatformEvent) Time() time.Time {
	if e.TimestampMs <= 0 {
		return time.Now()
	}
	return time.UnixMilli(e.TimestampMs)
}
