package service

import (
	"context"
	"time"

	"gamut-telemetry/internal/constant"
	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/model"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/internal/repository/contract"
	"gamut-telemetry/pkg/collector"

	"github.com/google/uuid"
)

type ISessionIdentity interface {
	// Ensure returns the stable session id for this tab, generating and
	// persisting a fresh one on first use.
	Ensure() string

	// LinkUser fires the link-session call at most once per SessionRecord
	// lifetime, no matter how often the auth signal flips. Failure is logged
	// and never retried within the session.
	LinkUser(sess *model.SessionRecord, userID string)
}

type sessionIdentity struct {
	store  contract.ITabStore
	client collector.IClient
	logger logger.ILogger
}

func NewSessionIdentity(store contract.ITabStore, client collector.IClient, log logger.ILogger) ISessionIdentity {
	return &sessionIdentity{
		store:  store,
		client: client,
		logger: log,
	}
}

func (s *sessionIdentity) Ensure() string {
	if existing, found := s.store.Get(constant.SessionIDKey); found && existing != "" {
		return existing
	}

	id := uuid.NewString()
	s.store.Set(constant.SessionIDKey, id)
	s.logger.Info("identity", "Analytics session started", map[string]interface{}{"session_id": id})
	return id
}

func (s *sessionIdentity) LinkUser(sess *model.SessionRecord, userID string) {
	if userID == "" || sess.SessionID == "" || sess.HasLinkedUser {
		return
	}
	// Flag first: repeated auth signals must not produce a second call even
	// while the first is in flight.
	sess.HasLinkedUser = true
	sess.UserID = userID

	sessionID := sess.SessionID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.client.LinkSession(ctx, dto.LinkSessionRequest{
			SessionID: sessionID,
			UserID:    userID,
		})
		if err != nil {
			s.logger.Warn("identity", "Session stitching failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}
