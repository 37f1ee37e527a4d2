package service

import (
	"testing"
	"time"

	"gamut-telemetry/internal/config"
	"gamut-telemetry/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScrollFixture() (IScrollKinematics, *model.SessionRecord) {
	return NewScrollKinematics(config.DefaultTelemetry()), model.NewSessionRecord(time.Now())
}

func TestRecordScrollVelocity(t *testing.T) {
	t0 := time.Now()

	t.Run("first sample only primes the state", func(t *testing.T) {
		kin, sess := newScrollFixture()
		kin.RecordScroll(sess, 500, 900, 6000, t0)

		assert.True(t, sess.Scroll.Initialized)
		assert.Equal(t, float64(500), sess.Scroll.LastPosition)
		assert.Equal(t, float64(0), sess.Scroll.Velocity)
	})

	t.Run("velocity is px per ms over the sample window", func(t *testing.T) {
		kin, sess := newScrollFixture()
		kin.RecordScroll(sess, 0, 900, 6000, t0)
		kin.RecordScroll(sess, 200, 900, 6000, t0.Add(100*time.Millisecond))

		assert.InDelta(t, 2.0, sess.Scroll.Velocity, 0.001)
	})

	t.Run("sub-window samples do not recompute velocity", func(t *testing.T) {
		kin, sess := newScrollFixture()
		kin.RecordScroll(sess, 0, 900, 6000, t0)
		kin.RecordScroll(sess, 100, 900, 6000, t0.Add(150*time.Millisecond))
		v := sess.Scroll.Velocity

		// 10ms later: position moves, velocity must not.
		kin.RecordScroll(sess, 400, 900, 6000, t0.Add(160*time.Millisecond))
		assert.Equal(t, v, sess.Scroll.Velocity)
		assert.Equal(t, float64(400), sess.Scroll.LastPosition)

		// Once the window elapses the pending displacement is folded in.
		kin.RecordScroll(sess, 500, 900, 6000, t0.Add(250*time.Millisecond))
		assert.InDelta(t, 4.0, sess.Scroll.Velocity, 0.001)
	})
}

func TestRecordScrollDirection(t *testing.T) {
	t0 := time.Now()
	kin, sess := newScrollFixture()
	kin.RecordScroll(sess, 1000, 900, 6000, t0)

	kin.RecordScroll(sess, 1200, 900, 6000, t0.Add(100*time.Millisecond))
	assert.Equal(t, model.DirectionDown, sess.Scroll.Direction)

	kin.RecordScroll(sess, 1100, 900, 6000, t0.Add(200*time.Millisecond))
	assert.Equal(t, model.DirectionUp, sess.Scroll.Direction)

	kin.RecordScroll(sess, 1100, 900, 6000, t0.Add(300*time.Millisecond))
	assert.Equal(t, model.DirectionSteady, sess.Scroll.Direction)
}

func TestRecordScrollConfusion(t *testing.T) {
	t0 := time.Now()

	step := func(kin IScrollKinematics, sess *model.SessionRecord, positions ...float64) {
		now := t0
		for _, p := range positions {
			now = now.Add(100 * time.Millisecond)
			kin.RecordScroll(sess, p, 900, 6000, now)
		}
	}

	t.Run("accumulated upward travel past the threshold counts once", func(t *testing.T) {
		kin, sess := newScrollFixture()
		step(kin, sess, 2000, 1850, 1700, 1550) // 450px up across three moves
		assert.Equal(t, 1, sess.Confusion.Count)
		assert.Equal(t, float64(0), sess.Confusion.PendingUpwardPixels)
	})

	t.Run("downward movement resets the accumulator", func(t *testing.T) {
		kin, sess := newScrollFixture()
		step(kin, sess, 2000, 1800, 1900, 1700, 1800, 1600)
		// Up 200, down, up 200, down, up 200: never 300 contiguous.
		assert.Equal(t, 0, sess.Confusion.Count)
	})

	t.Run("small upward nudges never trigger", func(t *testing.T) {
		kin, sess := newScrollFixture()
		step(kin, sess, 2000, 1950)
		assert.Equal(t, 0, sess.Confusion.Count)
		assert.Equal(t, float64(50), sess.Confusion.PendingUpwardPixels)
	})

	t.Run("each re-read is counted separately", func(t *testing.T) {
		kin, sess := newScrollFixture()
		step(kin, sess, 3000, 2650, 3000, 2650)
		assert.Equal(t, 2, sess.Confusion.Count)
	})
}

func TestRecordScrollMaxDepth(t *testing.T) {
	t0 := time.Now()
	kin, sess := newScrollFixture()

	// Scrollable range is 6000-900 = 5100.
	kin.RecordScroll(sess, 0, 900, 6000, t0)
	require.Equal(t, 0, sess.MaxScrollDepth)

	kin.RecordScroll(sess, 2550, 900, 6000, t0.Add(100*time.Millisecond))
	assert.Equal(t, 50, sess.MaxScrollDepth)

	// Scrolling back up never lowers the watermark.
	kin.RecordScroll(sess, 510, 900, 6000, t0.Add(200*time.Millisecond))
	assert.Equal(t, 50, sess.MaxScrollDepth)

	// Overshoot clamps at 100.
	kin.RecordScroll(sess, 5600, 900, 6000, t0.Add(300*time.Millisecond))
	assert.Equal(t, 100, sess.MaxScrollDepth)
}

func TestRecordScrollShortDocument(t *testing.T) {
	t0 := time.Now()
	kin, sess := newScrollFixture()

	// Document shorter than the viewport: depth stays untouched.
	kin.RecordScroll(sess, 0, 900, 600, t0)
	kin.RecordScroll(sess, 10, 900, 600, t0.Add(100*time.Millisecond))
	assert.Equal(t, 0, sess.MaxScrollDepth)
}
