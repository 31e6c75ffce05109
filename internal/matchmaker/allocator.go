// internal/matchmaker/allocator.go
package matchmaker

import (
	"context"
	"errors"
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/database"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNoServerAvailable is returned once every allocation attempt has failed.
// Callers notify the waiting sessions and leave their queue rows intact.
var ErrNoServerAvailable = database.ErrNoServerAvailable

// ServerClaimer claims one idle game server in a region, marking it in use
// atomically before returning it.
type ServerClaimer interface {
	ClaimServer(ctx context.Context, region config.Region) (*models.GameServer, error)
}

// Allocator polls for a free game server with bounded retry. Server
// availability is externally managed (servers register and free themselves),
// so this is a coarse poll rather than an event-driven wait.
type Allocator struct {
	store    ServerClaimer
	attempts int
	interval time.Duration
	logger   *logrus.Logger
}

func NewAllocator(store ServerClaimer, cfg config.Matchmaker, logger *logrus.Logger) *Allocator {
	return &Allocator{
		store:    store,
		attempts: cfg.AllocateAttempts,
		interval: cfg.AllocateRetryInterval,
		logger:   logger,
	}
}

// Allocate tries up to the configured number of attempts to claim a server
// in region, sleeping the retry interval between misses. Store-level errors
// are logged and treated as a miss for that attempt. After the final miss it
// returns ErrNoServerAvailable.
func (a *Allocator) Allocate(ctx context.Context, region config.Region) (*models.GameServer, error) {
	for attempt := 1; attempt <= a.attempts; attempt++ {
		server, err := a.store.ClaimServer(ctx, region)
		if err == nil {
			a.logger.WithFields(logrus.Fields{
				"server": server.ID,
				"region": region.String(),
			}).Info("Claimed game server")
			return server, nil
		}
		if !errors.Is(err, ErrNoServerAvailable) {
			a.logger.WithError(err).Warnf("Game server lookup failed in %s (attempt %d/%d)", region, attempt, a.attempts)
		}
		if attempt == a.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.interval):
		}
	}
	return nil, ErrNoServerAvailable
}
