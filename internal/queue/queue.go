// internal/queue/queue.go
package queue

import (
	"context"
	"fmt"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store is the slice of the persistent store the queue manager consumes.
type Store interface {
	UpsertQueueSession(ctx context.Context, accountID uuid.UUID, region config.Region, gameType config.GameType, partyMembers []uuid.UUID) (*models.QueueSession, error)
	FindQueueSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.QueueSession, error)
	DeleteQueueSession(ctx context.Context, id uuid.UUID) (*models.QueueSession, error)
}

// MatchFinder runs one assembly pass over a pool.
type MatchFinder interface {
	FindMatch(ctx context.Context, gameType config.GameType, region config.Region)
}

// Service owns enqueue/dequeue of players into regional game-type pools and
// triggers match assembly after every enqueue.
type Service struct {
	store  Store
	finder MatchFinder
	logger *logrus.Logger

	// flight collapses concurrent assembly triggers for the same
	// (gameType, region) pool into a single in-flight pass, so two enqueues
	// racing into one pool cannot double-count the same sessions.
	flight singleflight.Group
}

func NewService(store Store, finder MatchFinder, logger *logrus.Logger) *Service {
	return &Service{store: store, finder: finder, logger: logger}
}

// Enqueue upserts the account's queue session (replacing any previous entry
// and party) and kicks off assembly for the pool in the background. The
// enqueue acknowledgement never waits on assembly.
func (s *Service) Enqueue(ctx context.Context, accountID uuid.UUID, region config.Region, gameType config.GameType, partyMembers []uuid.UUID) (*models.QueueSession, error) {
	session, err := s.store.UpsertQueueSession(ctx, accountID, region, gameType, partyMembers)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session":  session.ID,
		"account":  accountID,
		"region":   region.String(),
		"gameType": gameType.String(),
		"party":    len(partyMembers),
	}).Info("Queue session created")

	s.TriggerAssembly(gameType, region)
	return session, nil
}

// TriggerAssembly schedules an assembly pass for the pool. Concurrent
// triggers for the same pool share one pass via singleflight. A trigger that
// merged into an already-running pass saw a pool snapshot taken before its
// row existed, so it follows up with one fresh pass instead of waiting for
// the next enqueue.
func (s *Service) TriggerAssembly(gameType config.GameType, region config.Region) {
	key := fmt.Sprintf("%d:%d", gameType, region)
	pass := func() (interface{}, error) {
		s.finder.FindMatch(context.Background(), gameType, region)
		return nil, nil
	}
	go func() {
		_, _, shared := s.flight.Do(key, pass)
		if shared {
			_, _, _ = s.flight.Do(key, pass)
		}
	}()
}

// LeaveByAccount removes the queue session the account participates in,
// whether it owns the entry or rides along as a party member. Returns the
// deleted session for notification purposes, or nil if none existed (which
// is not an error).
func (s *Service) LeaveByAccount(ctx context.Context, accountID uuid.UUID) (*models.QueueSession, error) {
	session, err := s.store.FindQueueSessionByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up queue session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	deleted, err := s.store.DeleteQueueSession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to terminate queue session: %w", err)
	}
	if deleted != nil {
		s.logger.WithField("session", deleted.ID).Info("Queue session terminated")
	}
	return deleted, nil
}

// LeaveByEntry removes a queue session by primary key. Same return contract
// as LeaveByAccount.
func (s *Service) LeaveByEntry(ctx context.Context, sessionID uuid.UUID) (*models.QueueSession, error) {
	deleted, err := s.store.DeleteQueueSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to terminate queue session: %w", err)
	}
	if deleted != nil {
		s.logger.WithField("session", deleted.ID).Info("Queue session terminated")
	}
	return deleted, nil
}
