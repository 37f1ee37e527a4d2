package service

import (
	"testing"
	"time"

	"gamut-telemetry/internal/constant"
	"gamut-telemetry/internal/model"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSessionID(t *testing.T) {
	t.Run("generates once and persists", func(t *testing.T) {
		store := memory.NewTabStore()
		identity := NewSessionIdentity(store, &fakeClient{}, logger.Nop())

		first := identity.Ensure()
		require.NoError(t, uuid.Validate(first))
		assert.Equal(t, first, identity.Ensure())

		stored, found := store.Get(constant.SessionIDKey)
		require.True(t, found)
		assert.Equal(t, first, stored)
	})

	t.Run("reuses a pre-existing id", func(t *testing.T) {
		store := memory.NewTabStore()
		store.Set(constant.SessionIDKey, "established-id")
		identity := NewSessionIdentity(store, &fakeClient{}, logger.Nop())

		assert.Equal(t, "established-id", identity.Ensure())
	})
}

func TestLinkUserOnce(t *testing.T) {
	client := &fakeClient{}
	identity := NewSessionIdentity(memory.NewTabStore(), client, logger.Nop())
	sess := model.NewSessionRecord(time.Now())
	sess.SessionID = "sess-1"

	identity.LinkUser(sess, "user-9")
	identity.LinkUser(sess, "user-9")
	identity.LinkUser(sess, "other-user")

	require.Eventually(t, func() bool {
		return len(client.linkedRequests()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	reqs := client.linkedRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "sess-1", reqs[0].SessionID)
	assert.Equal(t, "user-9", reqs[0].UserID)
	assert.Equal(t, "user-9", sess.UserID)
	assert.True(t, sess.HasLinkedUser)
}

func TestLinkUserRequiresIdentity(t *testing.T) {
	client := &fakeClient{}
	identity := NewSessionIdentity(memory.NewTabStore(), client, logger.Nop())

	anon := model.NewSessionRecord(time.Now())
	anon.SessionID = "sess-2"
	identity.LinkUser(anon, "")

	unstarted := model.NewSessionRecord(time.Now())
	identity.LinkUser(unstarted, "user-9")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, client.linkedRequests())
	assert.False(t, anon.HasLinkedUser)
	assert.False(t, unstarted.HasLinkedUser)
}
