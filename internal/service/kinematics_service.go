package service

import (
	"math"
	"time"

	"gamut-telemetry/internal/config"
	"gamut-telemetry/internal/model"
)

// Velocity is recomputed at most once per this window so sub-frame position
// jitter cannot produce noise spikes.
const velocitySampleWindow = 50 * time.Millisecond

type IScrollKinematics interface {
	// RecordScroll folds one viewport position sample into the session:
	// velocity (throttled), direction, re-read detection, max depth.
	RecordScroll(sess *model.SessionRecord, scrollTop, viewportHeight, docHeight float64, now time.Time)
}

type scrollKinematics struct {
	cfg config.TelemetryConfig
}

func NewScrollKinematics(cfg config.TelemetryConfig) IScrollKinematics {
	return &scrollKinematics{cfg: cfg}
}

func (k *scrollKinematics) RecordScroll(sess *model.SessionRecord, scrollTop, viewportHeight, docHeight float64, now time.Time) {
	sc := &sess.Scroll
	sc.ViewportHeight = viewportHeight
	sc.DocHeight = docHeight

	if !sc.Initialized {
		sc.Initialized = true
		sc.LastPosition = scrollTop
		sc.LastSamplePosition = scrollTop
		sc.LastSampleTime = now
		updateMaxDepth(sess, scrollTop)
		return
	}

	delta := scrollTop - sc.LastPosition
	if delta == 0 {
		sc.Direction = model.DirectionSteady
		return
	}

	// Direction and the re-read accumulator run on every position change,
	// unthrottled.
	if delta < 0 {
		sc.Direction = model.DirectionUp
		sess.Confusion.PendingUpwardPixels += -delta
		if sess.Confusion.PendingUpwardPixels > k.cfg.ConfusionThresholdPx {
			// Scrolled back up far enough to be re-reading, not nudging.
			sess.Confusion.Count++
			sess.Confusion.PendingUpwardPixels = 0
		}
	} else {
		sc.Direction = model.DirectionDown
		// Downward progress clears suspicion of confusion.
		sess.Confusion.PendingUpwardPixels = 0
	}
	sc.LastPosition = scrollTop

	// Velocity only recomputes once the sample window has elapsed.
	dt := now.Sub(sc.LastSampleTime)
	if dt > velocitySampleWindow {
		dy := math.Abs(scrollTop - sc.LastSamplePosition)
		sc.Velocity = dy / float64(dt.Milliseconds())
		sc.LastSamplePosition = scrollTop
		sc.LastSampleTime = now
	}

	updateMaxDepth(sess, scrollTop)
}

func updateMaxDepth(sess *model.SessionRecord, scrollTop float64) {
	scrollable := sess.Scroll.DocHeight - sess.Scroll.ViewportHeight
	if scrollable <= 0 {
		return
	}
	percent := int(math.Round(scrollTop / scrollable * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > sess.MaxScrollDepth {
		sess.MaxScrollDepth = percent
	}
}
