// internal/database/server.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoServerAvailable means no ready, idle game server exists in the region
// right now. Soft failure; the allocator retries on it.
var ErrNoServerAvailable = errors.New("no game server available")

// ClaimServer atomically claims one ready, idle server in the region and
// marks it in use. The claim is a single statement with FOR UPDATE SKIP
// LOCKED, so two concurrent allocations can never take the same row.
func (s *Store) ClaimServer(ctx context.Context, region config.Region) (*models.GameServer, error) {
	q := `
	UPDATE game_servers
	SET in_use = TRUE
	WHERE id = (
		SELECT id FROM game_servers
		WHERE region = $1 AND ready AND NOT in_use
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, region, connection_string, in_use, ready
	`
	var server models.GameServer
	err := s.pool.QueryRow(ctx, q, region).Scan(
		&server.ID, &server.Region, &server.ConnectionString, &server.InUse, &server.Ready,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNoServerAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim game server in %s: %w", region, err)
	}
	return &server, nil
}

// ReleaseServer marks a server idle again once its match is over or a
// pending match fell through.
func (s *Store) ReleaseServer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE game_servers SET in_use = FALSE WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to release game server %s: %w", id, err)
	}
	return nil
}

// SetServerReady flips a server's liveness flag. Driven by the server's own
// coordinator connection coming up or dropping.
func (s *Store) SetServerReady(ctx context.Context, id uuid.UUID, ready bool) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE game_servers SET ready = $2 WHERE id = $1`, id, ready,
	); err != nil {
		return fmt.Errorf("failed to set game server %s ready=%v: %w", id, ready, err)
	}
	return nil
}

// GetServer fetches a game server by id, nil when absent.
func (s *Store) GetServer(ctx context.Context, id uuid.UUID) (*models.GameServer, error) {
	q := `SELECT id, region, connection_string, in_use, ready FROM game_servers WHERE id = $1`
	var server models.GameServer
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&server.ID, &server.Region, &server.ConnectionString, &server.InUse, &server.Ready,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game server %s: %w", id, err)
	}
	return &server, nil
}
