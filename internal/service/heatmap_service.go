package service

import (
	"time"

	"gamut-telemetry/internal/model"
)

type IVisibilityHeatmap interface {
	// FragmentEntered records the moment a tagged fragment crossed into
	// visibility (the shim applies the 50% threshold before forwarding).
	FragmentEntered(sess *model.SessionRecord, fragmentID string, now time.Time)

	// FragmentLeft folds the dwell time into the session heatmap and marks
	// the fragment as the current drop-off point.
	FragmentLeft(sess *model.SessionRecord, fragmentID string, now time.Time)

	// Reset discards all observations. Called on every content/route change.
	Reset()
}

type visibilityHeatmap struct {
	// Start timestamps for fragments currently in view. Only touched from
	// the aggregator goroutine.
	visibleSince map[string]time.Time
}

func NewVisibilityHeatmap() IVisibilityHeatmap {
	return &visibilityHeatmap{
		visibleSince: make(map[string]time.Time),
	}
}

func (h *visibilityHeatmap) FragmentEntered(sess *model.SessionRecord, fragmentID string, now time.Time) {
	if fragmentID == "" {
		return
	}
	h.visibleSince[fragmentID] = now
}

func (h *visibilityHeatmap) FragmentLeft(sess *model.SessionRecord, fragmentID string, now time.Time) {
	start, ok := h.visibleSince[fragmentID]
	if !ok {
		return
	}
	delete(h.visibleSince, fragmentID)

	sess.Heatmap[fragmentID] += now.Sub(start).Seconds()
	sess.LastVisibleFragmentID = fragmentID
}

func (h *visibilityHeatmap) Reset() {
	h.visibleSince = make(map[string]time.Time)
}
