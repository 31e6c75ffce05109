// internal/matchmaker/quorum.go
package matchmaker

import (
	"context"
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/hub"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReadyUp records one player's acknowledgement of a pending match and
// commits the match once the counter reaches the quorum threshold.
//
// An absent key means the pending match already committed or expired; the
// ack is a no-op. An ack whose timestamp falls outside the acceptance window
// is silently dropped; the window check is independent of the store TTLs.
// The counter increment is atomic and exactly one acknowledgement observes
// the threshold value, so the match commits at most once no matter how many
// acks race.
func (s *Service) ReadyUp(ctx context.Context, accountID uuid.UUID, key string, ackTimestamp time.Time) error {
	pm, err := s.pending.GetPendingMatch(ctx, key)
	if err != nil {
		return err
	}
	if pm == nil {
		s.logger.Debugf("Ready-up for absent pending match %s, ignoring", key)
		return nil
	}

	if time.Since(ackTimestamp) > s.cfg.AckWindow {
		s.logger.WithFields(logrus.Fields{
			"key":     key,
			"account": accountID,
		}).Debug("Stale ready-up acknowledgement dropped")
		return nil
	}

	count, err := s.pending.IncrReadyCount(ctx, key)
	if err != nil {
		return err
	}
	s.logger.Infof("(%d/%d) Player %s readied up for %s", count, pm.PlayersNeeded, accountID, key)

	if count != int64(pm.PlayersNeeded) {
		return nil
	}
	return s.commit(ctx, key, pm)
}

// commit creates the durable match, migrates the contributing connections
// from their queue-session topics into the match topic, clears the queue
// rows, and notifies players and the assigned server with routing details.
func (s *Service) commit(ctx context.Context, key string, pm *models.PendingMatch) error {
	game := &models.Game{
		GameType:     pm.GameType,
		GameServerID: pm.ServerID,
		TeamAPlayers: pm.TeamRoster(models.TeamA),
		TeamBPlayers: pm.TeamRoster(models.TeamB),
	}
	if err := s.store.InsertGame(ctx, game); err != nil {
		s.logger.WithError(err).Errorf("Failed to create game for pending match %s", key)
		return err
	}

	gameTopic := hub.GameTopic(game.ID)
	for _, sessionID := range pm.SessionIDs {
		s.hub.MoveMembers(hub.QueueSessionTopic(sessionID), gameTopic)
	}

	if err := s.store.DeleteQueueSessions(ctx, pm.SessionIDs); err != nil {
		// The match is already durable; queued rows are cleaned up
		// opportunistically and an orphan is re-deleted on disconnect.
		s.logger.WithError(err).Errorf("Failed to clear queue sessions for game %s", game.ID)
	}

	payload := GameReady{
		Success: true,
		Data: GameReadyData{
			Timestamp:        game.CreatedAt.UnixMilli(),
			ConnectionString: pm.ServerConnectionString,
			Region:           pm.Region,
			GameType:         pm.GameType,
			GameID:           game.ID,
			Players:          pm.Players,
		},
	}

	s.hub.Emit(hub.ServerTopic(pm.ServerID), "gameReady", payload)
	s.hub.Emit(gameTopic, "gameReady", payload)

	s.logger.WithFields(logrus.Fields{
		"game":   game.ID,
		"server": pm.ServerID,
	}).Info("Game confirmed, ready")
	return nil
}
