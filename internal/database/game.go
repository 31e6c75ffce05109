// internal/database/game.go
package database

import (
	"context"
	"fmt"

	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertGame persists a committed match: the game row plus one game_players
// row per roster slot, in a single transaction. Fills in the game's ID and
// CreatedAt.
func (s *Store) InsertGame(ctx context.Context, game *models.Game) error {
	if game.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate game id: %w", err)
		}
		game.ID = id
	}
	game.Ongoing = true

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO games (id, game_type, game_server_id, ongoing, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING created_at
		`
		if err := tx.QueryRow(ctx, q, game.ID, game.GameType, game.GameServerID).Scan(&game.CreatedAt); err != nil {
			return err
		}

		insPlayer := `INSERT INTO game_players (game_id, account_id, team) VALUES ($1, $2, $3)`
		for _, accountID := range game.TeamAPlayers {
			if _, err := tx.Exec(ctx, insPlayer, game.ID, accountID, models.TeamA); err != nil {
				return err
			}
		}
		for _, accountID := range game.TeamBPlayers {
			if _, err := tx.Exec(ctx, insPlayer, game.ID, accountID, models.TeamB); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

// GetOngoingGameRoster returns the roster of an ongoing game with player
// display names. Empty (not an error) when the game is absent or finished.
func (s *Store) GetOngoingGameRoster(ctx context.Context, gameID uuid.UUID) ([]models.RosterPlayer, error) {
	q := `
	SELECT gp.account_id, COALESCE(NULLIF(a.display_name, ''), a.username), gp.team
	FROM game_players gp
	JOIN games g ON g.id = gp.game_id
	JOIN accounts a ON a.id = gp.account_id
	WHERE gp.game_id = $1 AND g.ongoing
	`
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for game %s: %w", gameID, err)
	}
	defer rows.Close()

	var roster []models.RosterPlayer
	for rows.Next() {
		var p models.RosterPlayer
		if err := rows.Scan(&p.AccountID, &p.Name, &p.Team); err != nil {
			return nil, err
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}

// SetGameOngoing flips the terminal flag once gameplay reports completion.
func (s *Store) SetGameOngoing(ctx context.Context, gameID uuid.UUID, ongoing bool) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE games SET ongoing = $2 WHERE id = $1`, gameID, ongoing,
	); err != nil {
		return fmt.Errorf("failed to set game %s ongoing=%v: %w", gameID, ongoing, err)
	}
	return nil
}
