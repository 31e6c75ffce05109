// internal/matchmaker/matchmaker.go
package matchmaker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/hub"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the persistent store the matchmaker consumes.
type Store interface {
	ServerClaimer
	ListQueueSessions(ctx context.Context, gameType config.GameType, region config.Region) ([]*models.QueueSession, error)
	DeleteQueueSessions(ctx context.Context, ids []uuid.UUID) error
	ReleaseServer(ctx context.Context, id uuid.UUID) error
	InsertGame(ctx context.Context, game *models.Game) error
}

// PendingStore is the ephemeral side: pending-match payloads and their
// atomic ready counters.
type PendingStore interface {
	PutPendingMatch(ctx context.Context, key string, pm *models.PendingMatch, payloadTTL, counterTTL time.Duration) error
	GetPendingMatch(ctx context.Context, key string) (*models.PendingMatch, error)
	IncrReadyCount(ctx context.Context, key string) (int64, error)
}

// Notifier is the hub surface the matchmaker needs: topic fan-out and the
// queue-topic -> game-topic migration on commit.
type Notifier interface {
	Emit(topic, event string, data interface{})
	MoveMembers(from, to string)
}

// GameSessionFound is the payload of gameSessionFound events sent to every
// contributing queue-session topic.
type GameSessionFound struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GameReadyData carries connection routing for a committed match, sent to
// both the assigned server's topic and the match topic.
type GameReadyData struct {
	Timestamp        int64                   `json:"timestamp"`
	ConnectionString string                  `json:"connectionString"`
	Region           config.Region           `json:"region"`
	GameType         config.GameType         `json:"gameType"`
	GameID           uuid.UUID               `json:"gameId"`
	Players          []models.AssignedPlayer `json:"players"`
}

// GameReady is the outer gameReady event payload.
type GameReady struct {
	Success bool          `json:"success"`
	Data    GameReadyData `json:"data"`
}

// Service drives a pool from assembled candidate to committed match:
// assemble teams, allocate a server, publish the pending match, then count
// ready-up acknowledgements until quorum.
type Service struct {
	store     Store
	pending   PendingStore
	hub       Notifier
	allocator *Allocator
	cfg       config.Matchmaker
	logger    *logrus.Logger

	// playersRequired is the per-game-type quorum threshold; overridable in
	// tests, defaults to the configured values.
	playersRequired func(config.GameType) int
}

func New(store Store, pending PendingStore, notifier Notifier, cfg config.Matchmaker, logger *logrus.Logger) *Service {
	return &Service{
		store:           store,
		pending:         pending,
		hub:             notifier,
		allocator:       NewAllocator(store, cfg, logger),
		cfg:             cfg,
		logger:          logger,
		playersRequired: config.PlayersRequired,
	}
}

// FindMatch scans the (gameType, region) pool and, if enough players are
// waiting, allocates a server and publishes a pending match for ready-up.
// Runs in the background after each enqueue; all failures are logged and
// surfaced to the waiting session topics, never returned to the enqueuer.
func (s *Service) FindMatch(ctx context.Context, gameType config.GameType, region config.Region) {
	log := s.logger.WithFields(logrus.Fields{
		"gameType": gameType.String(),
		"region":   region.String(),
	})

	sessions, err := s.store.ListQueueSessions(ctx, gameType, region)
	if err != nil {
		log.WithError(err).Error("Failed to load queue pool, skipping assembly")
		return
	}

	players, sessionIDs := BuildTeams(sessions, config.TeamSize)
	needed := s.playersRequired(gameType)
	if len(players) < needed || needed == 0 {
		log.Debugf("Waiting for more players: have %d, need %d", len(players), needed)
		return
	}

	server, err := s.allocator.Allocate(ctx, region)
	if errors.Is(err, ErrNoServerAvailable) {
		log.Warn("No game server available, notifying queued sessions")
		for _, sessionID := range sessionIDs {
			s.hub.Emit(hub.QueueSessionTopic(sessionID), "gameSessionFound", GameSessionFound{
				Success: false,
				Error:   "There are no servers available.",
			})
		}
		return
	}
	if err != nil {
		log.WithError(err).Error("Server allocation aborted")
		return
	}

	pm := &models.PendingMatch{
		GameType:               gameType,
		Region:                 region,
		Players:                players,
		PlayersNeeded:          needed,
		ServerConnectionString: server.ConnectionString,
		ServerID:               server.ID,
		SessionIDs:             sessionIDs,
		CreatedAt:              time.Now(),
	}
	key := newMatchKey(server.ID)

	if err := s.pending.PutPendingMatch(ctx, key, pm, s.cfg.PendingMatchTTL, s.cfg.ReadyCountTTL); err != nil {
		log.WithError(err).Error("Failed to publish pending match, releasing server")
		if relErr := s.store.ReleaseServer(ctx, server.ID); relErr != nil {
			log.WithError(relErr).Error("Failed to release claimed server")
		}
		return
	}

	log.WithFields(logrus.Fields{
		"key":     key,
		"server":  server.ID,
		"players": len(players),
	}).Info("Game session found, confirming")

	for _, sessionID := range sessionIDs {
		s.hub.Emit(hub.QueueSessionTopic(sessionID), "gameSessionFound", GameSessionFound{
			Success: true,
			Key:     key,
		})
	}
}

// newMatchKey builds the opaque ephemeral-store key for a pending match.
func newMatchKey(serverID uuid.UUID) string {
	nonce := make([]byte, 4)
	_, _ = rand.Read(nonce)
	return fmt.Sprintf("gameFound.%s.%s", serverID, hex.EncodeToString(nonce))
}
