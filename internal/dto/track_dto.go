package dto

import "time"

// Metrics carries the elapsed-time buckets for one ping. Seconds are deltas
// since the previous dispatch, never cumulative. Total always equals the sum
// of the four mode buckets.
type Metrics struct {
	Total     int `json:"total"`
	Article   int `json:"article"`
	Narrative int `json:"narrative"`
	Radio     int `json:"radio"`
	Feed      int `json:"feed"`
}

// InteractionEvent is one discrete event on the wire. ContentType selects
// which optional fields are meaningful.
type InteractionEvent struct {
	ContentType    string             `json:"contentType"`
	ContentID      string             `json:"contentId"`
	Action         string             `json:"action,omitempty"`
	Duration       int                `json:"duration,omitempty"`
	ScrollDepth    int                `json:"scrollDepth,omitempty"`
	WordCount      int                `json:"wordCount,omitempty"`
	Quarters       []int              `json:"quarters,omitempty"`
	ScrollPosition float64            `json:"scrollPosition,omitempty"`
	FocusScore     int                `json:"focusScore,omitempty"`
	Heatmap        map[string]float64 `json:"heatmap,omitempty"`
	FlowDuration   int                `json:"flowDuration,omitempty"`
	ConfusionCount int                `json:"confusionCount,omitempty"`
	DropOffElement string             `json:"dropOffElement,omitempty"`
	Text           string             `json:"text,omitempty"`
	AudioAction    string             `json:"audioAction,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Interaction content types.
const (
	InteractionArticle     = "article"
	InteractionNarrative   = "narrative"
	InteractionUI          = "ui_interaction"
	InteractionAudioAction = "audio_action"
	InteractionImpression  = "impression"
	InteractionCopy        = "copy"
)

// ActionRageClick marks a ui_interaction produced by a click burst.
const ActionRageClick = "rage_click"

type Meta struct {
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// TrackPayload is the body of POST /analytics/track.
type TrackPayload struct {
	SessionID    string             `json:"sessionId"`
	UserID       string             `json:"userId,omitempty"`
	Metrics      Metrics            `json:"metrics"`
	Interactions []InteractionEvent `json:"interactions"`
	Meta         Meta               `json:"meta"`
}

// TrackResponse is the backend's answer to a normal (non-beacon) track call.
// Command, when present, is a behavioral instruction for the UI (e.g. suggest
// the reader takes a break).
type TrackResponse struct {
	Command string `json:"command,omitempty"`
}

// LinkSessionRequest associates prior anonymous activity with a user.
type LinkSessionRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// ToastCommand is what the aggregator publishes for the notification
// collaborator when the backend issues a command.
type ToastCommand struct {
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}
