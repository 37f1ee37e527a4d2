package service

import (
	"context"
	"math"
	"strings"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/model"
)

// Flush is the dispatch routine. It snapshots the deltas into one payload,
// zeroes them immediately (an interleaved second call finds nothing to send),
// and hands the payload to the network or the offline queue.
func (s *engagementService) Flush(isBeacon, force bool, now time.Time) {
	sess := s.sess

	elapsed := int(math.Round(now.Sub(sess.LastPingTime).Seconds()))
	if elapsed < 0 {
		elapsed = 0
	}
	if !force && (elapsed <= 0 || !sess.Idle.IsActive) {
		sess.LastPingTime = now
		return
	}

	// Attribute all elapsed seconds to exactly one bucket.
	mode := s.currentMode()
	sess.Accumulated = model.AccumulatedTime{Total: elapsed}
	switch mode {
	case model.ModeRadio:
		sess.Accumulated.Radio = elapsed
	case model.ModeArticle:
		sess.Accumulated.Article = elapsed
	case model.ModeNarrative:
		sess.Accumulated.Narrative = elapsed
	default:
		sess.Accumulated.Feed = elapsed
	}

	interactions := sess.PendingInteractions
	sess.PendingInteractions = nil

	if sess.ContentID != "" && (elapsed > 0 || s.hasContentDeltas()) {
		interactions = append(interactions, s.progressInteraction(elapsed, now))
	}

	metrics := dto.Metrics{
		Total:     sess.Accumulated.Total,
		Article:   sess.Accumulated.Article,
		Narrative: sess.Accumulated.Narrative,
		Radio:     sess.Accumulated.Radio,
		Feed:      sess.Accumulated.Feed,
	}

	// Reset every delta immediately after snapshotting. If the send later
	// fails these are never touched again; the queue carries the snapshot.
	sess.Quarters = [4]int{}
	sess.Heatmap = make(map[string]float64)
	sess.Flow.TotalDurationMsThisPing = 0
	sess.Confusion.Count = 0
	sess.Focus.TabSwitchCount = 0
	sess.Accumulated = model.AccumulatedTime{}
	sess.LastPingTime = now

	if metrics.Total == 0 && len(interactions) == 0 {
		return
	}

	payload := dto.TrackPayload{
		SessionID:    sess.SessionID,
		UserID:       sess.UserID,
		Metrics:      metrics,
		Interactions: interactions,
		Meta: dto.Meta{
			Platform:  s.platform,
			UserAgent: sess.Meta.UserAgent,
			Referrer:  sess.Meta.Referrer,
			Timezone:  sess.Meta.Timezone,
		},
	}

	s.dispatchLog.Info("dispatch", "Payload dispatched", map[string]interface{}{
		"session_id":   payload.SessionID,
		"total":        metrics.Total,
		"mode":         string(mode),
		"interactions": len(interactions),
		"beacon":       isBeacon,
	})

	if !s.online {
		s.enqueue(payload)
		return
	}
	s.deliver(payload, isBeacon)
}

// hasContentDeltas reports whether anything accumulated since the last flush
// that only ships on the progress interaction. A flush with zero elapsed time
// and zero deltas sends nothing, which keeps back-to-back dispatches
// idempotent; a pending tab switch is a delta (its focus penalty would
// otherwise be zeroed unsent).
func (s *engagementService) hasContentDeltas() bool {
	sess := s.sess
	if sess.Quarters != [4]int{} || len(sess.Heatmap) > 0 {
		return true
	}
	return sess.Flow.TotalDurationMsThisPing > 0 || sess.Confusion.Count > 0 ||
		sess.Focus.TabSwitchCount > 0
}

// progressInteraction is the synthetic per-content event carrying everything
// derived about how this document was read.
func (s *engagementService) progressInteraction(elapsed int, now time.Time) dto.InteractionEvent {
	sess := s.sess

	quarters := make([]int, 4)
	copy(quarters, sess.Quarters[:])

	return dto.InteractionEvent{
		ContentType:    s.progressContentType(),
		ContentID:      sess.ContentID,
		Duration:       elapsed,
		ScrollDepth:    sess.MaxScrollDepth,
		WordCount:      sess.WordCount,
		Quarters:       quarters,
		ScrollPosition: sess.Scroll.LastPosition,
		FocusScore:     focusScore(sess.Focus.TabSwitchCount),
		Heatmap:        sess.Heatmap,
		FlowDuration:   int(sess.Flow.TotalDurationMsThisPing / 1000),
		ConfusionCount: sess.Confusion.Count,
		DropOffElement: sess.LastVisibleFragmentID,
		Timestamp:      now,
	}
}

func (s *engagementService) progressContentType() string {
	switch {
	case s.sess.ContentType == model.ModeNarrative || strings.Contains(s.sess.Path, "/narrative/"):
		return dto.InteractionNarrative
	default:
		return dto.InteractionArticle
	}
}

// currentMode classifies where the elapsed seconds belong. Audio wins over
// everything; otherwise the displayed route decides.
func (s *engagementService) currentMode() model.ContentMode {
	sess := s.sess
	if sess.AudioPlaying {
		return model.ModeRadio
	}
	switch {
	case sess.ContentType == model.ModeArticle || strings.Contains(sess.Path, "/article/"):
		return model.ModeArticle
	case sess.ContentType == model.ModeNarrative || strings.Contains(sess.Path, "/narrative/"):
		return model.ModeNarrative
	default:
		return model.ModeFeed
	}
}

// focusScore degrades from 100 by 10 per tab switch this ping.
func focusScore(tabSwitches int) int {
	score := 100 - 10*tabSwitches
	if score < 0 {
		score = 0
	}
	return score
}

func (s *engagementService) deliver(payload dto.TrackPayload, isBeacon bool) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if isBeacon {
			// Fire-and-forget; teardown-time loss is an accepted tradeoff.
			s.client.TrackBeacon(payload)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		resp, err := s.client.Track(ctx, payload)
		if err != nil {
			s.logger.Warn("engagement", "Track failed, queueing payload", map[string]interface{}{"error": err.Error()})
			s.enqueue(payload)
			return
		}
		if resp != nil && resp.Command != "" {
			s.notifier.Notify(resp.Command)
		}
	}()
}

func (s *engagementService) enqueue(payload dto.TrackPayload) {
	if err := s.queue.Append(payload); err != nil {
		// Storage failure: the deltas for this cycle are lost, silently.
		s.logger.Warn("engagement", "Failed to queue payload", map[string]interface{}{"error": err.Error()})
	}
}

// replayQueue drains the offline queue and replays each payload once.
// Payloads that fail to deliver go back on the queue instead of being
// dropped with the batch.
func (s *engagementService) replayQueue(ctx context.Context) {
	items, err := s.queue.DrainAll()
	if err != nil {
		s.logger.Warn("engagement", "Failed to drain offline queue", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		return
	}

	s.logger.Info("engagement", "Replaying offline queue", map[string]interface{}{"count": len(items)})
	for _, payload := range items {
		if _, err := s.client.Track(ctx, payload); err != nil {
			s.enqueue(payload)
		}
	}
}
