package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gamut-telemetry/internal/config"
	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/model"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/internal/repository/contract"
	"gamut-telemetry/pkg/collector"
	"gamut-telemetry/pkg/events"
	"gamut-telemetry/pkg/notify"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IEngagementService is the owner of the SessionRecord and the engine's only
// state machine. Run drives it from the bus and the clocks; the handler
// methods take explicit timestamps so tests drive them directly.
type IEngagementService interface {
	Run(ctx context.Context) error
	HandleEvent(ev events.PlatformEvent)
	Sample(now time.Time)
	Heartbeat(now time.Time)
	CheckIdle(now time.Time)
	Flush(isBeacon, force bool, now time.Time)
	Session() *model.SessionRecord
	Close()
}

// rageBurst tracks consecutive clicks on one target.
type rageBurst struct {
	target  string
	times   []time.Time
	emitted bool
}

type engagementService struct {
	cfg      config.TelemetryConfig
	platform string

	sess *model.SessionRecord

	kinematics IScrollKinematics
	heatmap    IVisibilityHeatmap
	identity   ISessionIdentity
	queue      contract.IQueueRepository
	client     collector.IClient
	notifier   notify.INotifier

	subscriber  message.Subscriber
	logger      logger.ILogger
	dispatchLog logger.ILogger

	online    bool
	rage      rageBurst
	idleTimer *time.Timer

	// In-flight network deliveries; Close waits for them.
	wg sync.WaitGroup
}

func NewEngagementService(
	cfg config.TelemetryConfig,
	platform string,
	subscriber message.Subscriber,
	kinematics IScrollKinematics,
	heatmap IVisibilityHeatmap,
	identity ISessionIdentity,
	queue contract.IQueueRepository,
	client collector.IClient,
	notifier notify.INotifier,
	log logger.ILogger,
	dispatchLog logger.ILogger,
) IEngagementService {
	return &engagementService{
		cfg:         cfg,
		platform:    platform,
		sess:        model.NewSessionRecord(time.Now()),
		kinematics:  kinematics,
		heatmap:     heatmap,
		identity:    identity,
		queue:       queue,
		client:      client,
		notifier:    notifier,
		subscriber:  subscriber,
		logger:      log,
		dispatchLog: dispatchLog,
		online:      true,
	}
}

func (s *engagementService) Session() *model.SessionRecord {
	return s.sess
}

// Run owns the SessionRecord for its whole lifetime: every mutation happens
// on this goroutine, interleaved but never concurrent.
func (s *engagementService) Run(ctx context.Context) error {
	msgs, err := s.subscriber.Subscribe(ctx, events.TopicPlatformEvents)
	if err != nil {
		return err
	}

	s.sess.SessionID = s.identity.Ensure()

	// Opportunistic replay of anything a previous run left behind.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		replayCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.replayQueue(replayCtx)
	}()

	sampleTicker := time.NewTicker(s.cfg.SamplingInterval)
	defer sampleTicker.Stop()
	heartbeatTicker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	s.idleTimer = time.NewTimer(s.idleTimeout())
	defer s.idleTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Page teardown: best-effort beacon.
			s.Flush(true, true, time.Now())
			return nil
		case msg, ok := <-msgs:
			if !ok {
				// Bus closed under us; finish like a teardown.
				s.Flush(true, true, time.Now())
				return nil
			}
			s.processMessage(msg)
		case <-sampleTicker.C:
			s.Sample(time.Now())
		case <-heartbeatTicker.C:
			s.Heartbeat(time.Now())
		case <-s.idleTimer.C:
			s.CheckIdle(time.Now())
		}
	}
}

func (s *engagementService) Close() {
	s.wg.Wait()
}

func (s *engagementService) processMessage(msg *message.Message) {
	var ev events.PlatformEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.logger.Warn("engagement", "Dropping malformed event message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}
	s.HandleEvent(ev)
	msg.Ack()
}

func (s *engagementService) HandleEvent(ev events.PlatformEvent) {
	now := ev.Time()
	s.updateMeta(ev)

	switch ev.Type {
	case events.EventScroll:
		// Presence first, decoupled from the kinematic math.
		s.touch(now)
		s.kinematics.RecordScroll(s.sess, ev.ScrollTop, ev.ViewportHeight, ev.DocHeight, now)
	case events.EventPointerDown, events.EventKeyDown, events.EventTouchStart:
		s.touch(now)
		s.sess.Focus.LastCursorMoveTime = now
	case events.EventCursorMove:
		s.sess.Focus.LastCursorMoveTime = now
	case events.EventClick:
		s.handleClick(ev.TargetID, now)
	case events.EventCopy:
		s.handleCopy(ev.Text, now)
	case events.EventVisibility:
		if ev.Visible != nil {
			s.handleVisibility(*ev.Visible, now)
		}
	case events.EventAudioState:
		if ev.Playing != nil {
			s.sess.AudioPlaying = *ev.Playing
			s.resetIdleTimer()
		}
	case events.EventAudioAction:
		s.appendInteraction(dto.InteractionEvent{
			ContentType: dto.InteractionAudioAction,
			ContentID:   ev.ContentID,
			AudioAction: ev.AudioAction,
			Timestamp:   now,
		})
	case events.EventImpression:
		s.appendInteraction(dto.InteractionEvent{
			ContentType: dto.InteractionImpression,
			ContentID:   ev.ContentID,
			Timestamp:   now,
		})
	case events.EventContentChange:
		s.handleContentChange(ev, now)
	case events.EventFragment:
		if ev.Entered == nil {
			return
		}
		if *ev.Entered {
			s.heatmap.FragmentEntered(s.sess, ev.FragmentID, now)
		} else {
			s.heatmap.FragmentLeft(s.sess, ev.FragmentID, now)
		}
	case events.EventNetwork:
		if ev.Online != nil {
			s.handleNetwork(*ev.Online)
		}
	case events.EventAuth:
		s.identity.LinkUser(s.sess, ev.UserID)
	case events.EventUnload:
		s.Flush(true, true, now)
	}
}

// touch is the shared "user is active" signal. High-frequency callers are
// debounced; the idle timer restarts with the full context-appropriate
// duration on every processed signal.
func (s *engagementService) touch(now time.Time) {
	sess := s.sess
	if !sess.LastActivityProcessed.IsZero() && now.Sub(sess.LastActivityProcessed) < s.cfg.ActivityDebounce {
		return
	}
	sess.LastActivityProcessed = now

	if !sess.Idle.IsActive {
		sess.Idle.IsActive = true
		// The idle gap is not billable time.
		sess.LastPingTime = now
	}
	sess.Idle.LastActiveAt = now
	s.resetIdleTimer()
}

// idleTimeout picks the context-dependent duration: listening tolerates long
// stillness, feed scanning demands constant interaction.
func (s *engagementService) idleTimeout() time.Duration {
	switch {
	case s.sess.AudioPlaying:
		return s.cfg.IdleTimeoutAudio
	case s.sess.ContentType == model.ModeFeed || s.sess.ContentID == "":
		return s.cfg.IdleTimeoutFeed
	default:
		return s.cfg.IdleTimeoutReading
	}
}

func (s *engagementService) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout())
	}
}

// CheckIdle validates the deadline against the last activity before flipping
// to idle, so a stale timer fire never cuts a session short.
func (s *engagementService) CheckIdle(now time.Time) {
	timeout := s.idleTimeout()
	idleFor := now.Sub(s.sess.Idle.LastActiveAt)
	if idleFor < timeout {
		if s.idleTimer != nil {
			s.idleTimer.Reset(timeout - idleFor)
		}
		return
	}
	s.sess.Idle.IsActive = false
	// An idle gap is far past the grace window; the streak does not survive.
	s.resetFlowStreak()
}

// resetFlowStreak ends the continuous-reading streak. TotalDurationMsThisPing
// stays: flow time already earned still ships on the next flush.
func (s *engagementService) resetFlowStreak() {
	s.sess.Flow.IsFlowing = false
	s.sess.Flow.CurrentDurationMs = 0
	s.sess.Flow.GraceCounter = 0
}

// Sample is the 1-second reading-sample clock. It only counts when someone
// is plausibly looking at the page: tab visible, session active, and either
// a recently moving cursor or audio playing (ghost reading protection).
func (s *engagementService) Sample(now time.Time) {
	sess := s.sess
	if !sess.Focus.IsTabActive || !sess.Idle.IsActive {
		return
	}
	if !sess.AudioPlaying && now.Sub(sess.Focus.LastCursorMoveTime) > s.cfg.CursorIdleWindow {
		return
	}

	v := sess.Scroll.Velocity
	periodMs := s.cfg.SamplingInterval.Milliseconds()

	if v < s.cfg.VelocityReadingMax && sess.ContentID != "" {
		sess.Quarters[s.currentQuarter()]++
	}

	if v < s.cfg.FlowVelocityMax {
		sess.Flow.GraceCounter = 0
		sess.Flow.CurrentDurationMs += periodMs
		if sess.Flow.CurrentDurationMs >= s.cfg.FlowThreshold.Milliseconds() {
			sess.Flow.IsFlowing = true
		}
		if sess.Flow.IsFlowing {
			sess.Flow.TotalDurationMsThisPing += periodMs
		}
	} else if sess.Flow.CurrentDurationMs > 0 {
		// Tolerate brief jitter; sustained speed ends the flow.
		sess.Flow.GraceCounter++
		if sess.Flow.GraceCounter > s.cfg.FlowGraceSamples {
			sess.Flow.IsFlowing = false
			sess.Flow.CurrentDurationMs = 0
			sess.Flow.GraceCounter = 0
		}
	}
}

// currentQuarter maps the viewport center onto the document's vertical
// quarters.
func (s *engagementService) currentQuarter() int {
	sc := s.sess.Scroll
	if sc.DocHeight <= 0 {
		return 0
	}
	center := sc.LastPosition + sc.ViewportHeight/2
	q := int(center / sc.DocHeight * 4)
	if q < 0 {
		q = 0
	}
	if q > 3 {
		q = 3
	}
	return q
}

func (s *engagementService) Heartbeat(now time.Time) {
	s.Flush(false, false, now)
}

func (s *engagementService) handleClick(target string, now time.Time) {
	s.touch(now)
	s.sess.Focus.LastCursorMoveTime = now
	if target == "" {
		return
	}

	if target != s.rage.target {
		s.rage = rageBurst{target: target, times: []time.Time{now}}
		return
	}

	// Keep only clicks inside the burst window.
	cutoff := now.Add(-s.cfg.RageClickWindow)
	kept := s.rage.times[:0]
	for _, t := range s.rage.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.rage.times = append(kept, now)

	if len(s.rage.times) == 1 {
		// Full gap since the last burst on this target.
		s.rage.emitted = false
		return
	}

	if len(s.rage.times) >= s.cfg.RageClickCount && !s.rage.emitted {
		s.rage.emitted = true
		s.appendInteraction(dto.InteractionEvent{
			ContentType: dto.InteractionUI,
			ContentID:   target,
			Action:      dto.ActionRageClick,
			Timestamp:   now,
		})
	}
}

func (s *engagementService) handleCopy(text string, now time.Time) {
	runes := []rune(text)
	if len(runes) <= s.cfg.CopyMinLength {
		return
	}
	if len(runes) > s.cfg.CopyTruncateLength {
		runes = runes[:s.cfg.CopyTruncateLength]
	}

	contentID := s.sess.ContentID
	if contentID == "" {
		contentID = "unknown"
	}
	s.appendInteraction(dto.InteractionEvent{
		ContentType: dto.InteractionCopy,
		ContentID:   contentID,
		Text:        string(runes),
		Timestamp:   now,
	})

	// Copies must not be lost to a crash: flush immediately.
	s.Flush(false, true, now)
}

func (s *engagementService) handleVisibility(visible bool, now time.Time) {
	if visible {
		s.sess.Focus.IsTabActive = true
		s.touch(now)
		return
	}
	s.sess.Focus.IsTabActive = false
	s.sess.Focus.TabSwitchCount++
	// Flow does not survive losing the tab; the streak restarts on return.
	s.resetFlowStreak()
	// Visibility loss is the most common point of data loss; don't wait for
	// the heartbeat.
	s.Flush(false, true, now)
}

func (s *engagementService) handleContentChange(ev events.PlatformEvent, now time.Time) {
	// Attribute everything pending to the outgoing content first.
	s.Flush(false, true, now)

	sess := s.sess
	sess.ResetContentScope()
	s.heatmap.Reset()

	sess.ContentID = ev.ContentID
	sess.Path = ev.Path
	sess.WordCount = ev.WordCount
	switch model.ContentMode(ev.ContentType) {
	case model.ModeArticle, model.ModeNarrative, model.ModeFeed:
		sess.ContentType = model.ContentMode(ev.ContentType)
	default:
		sess.ContentType = ""
	}
	s.resetIdleTimer()
}

func (s *engagementService) handleNetwork(online bool) {
	wasOffline := !s.online
	s.online = online
	if online && wasOffline {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.replayQueue(ctx)
		}()
	}
}

func (s *engagementService) appendInteraction(ev dto.InteractionEvent) {
	s.sess.PendingInteractions = append(s.sess.PendingInteractions, ev)
}

func (s *engagementService) updateMeta(ev events.PlatformEvent) {
	if ev.UserAgent != "" {
		s.sess.Meta.UserAgent = ev.UserAgent
	}
	if ev.Referrer != "" {
		s.sess.Meta.Referrer = ev.Referrer
	}
	if ev.Timezone != "" {
		s.sess.Meta.Timezone = ev.Timezone
	}
}
