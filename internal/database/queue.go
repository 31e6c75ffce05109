// internal/database/queue.go
package database

import (
	"context"
	"fmt"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertQueueSession creates or replaces the queue session for accountID.
// Re-enqueueing an already-queued account overwrites its region/game type and
// replaces any party in the same transaction, so at most one active session
// ever exists per account.
func (s *Store) UpsertQueueSession(ctx context.Context, accountID uuid.UUID, region config.Region, gameType config.GameType, partyMembers []uuid.UUID) (*models.QueueSession, error) {
	session := &models.QueueSession{
		AccountID: accountID,
		Region:    region,
		GameType:  gameType,
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO queue_sessions (id, account_id, region, game_type, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET region = EXCLUDED.region, game_type = EXCLUDED.game_type
		RETURNING id, created_at
		`
		newID, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, q, newID, accountID, region, gameType).Scan(&session.ID, &session.CreatedAt); err != nil {
			return err
		}

		// Re-enqueue drops any previous party before attaching the new one.
		if _, err := tx.Exec(ctx, `DELETE FROM parties WHERE queue_session_id = $1`, session.ID); err != nil {
			return err
		}
		if len(partyMembers) == 0 {
			return nil
		}

		partyID, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO parties (id, queue_session_id) VALUES ($1, $2)`,
			partyID, session.ID,
		); err != nil {
			return err
		}
		party := &models.Party{ID: partyID, QueueSessionID: session.ID}
		for _, memberID := range partyMembers {
			if memberID == accountID {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO party_members (party_id, account_id) VALUES ($1, $2)
				 ON CONFLICT (party_id, account_id) DO NOTHING`,
				partyID, memberID,
			); err != nil {
				return err
			}
			party.Members = append(party.Members, models.PartyMember{AccountID: memberID})
		}
		session.Party = party
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert queue session: %w", err)
	}
	return session, nil
}

// FindQueueSessionByAccount locates the session the account participates in,
// either as the owning account or as a party member, in one query. Returns
// nil, nil when the account is not queued at all.
func (s *Store) FindQueueSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.QueueSession, error) {
	q := `
	SELECT DISTINCT qs.id, qs.account_id, qs.region, qs.game_type, qs.created_at
	FROM queue_sessions qs
	LEFT JOIN parties p ON p.queue_session_id = qs.id
	LEFT JOIN party_members pm ON pm.party_id = p.id
	WHERE qs.account_id = $1 OR pm.account_id = $1
	LIMIT 1
	`
	var session models.QueueSession
	err := s.pool.QueryRow(ctx, q, accountID).Scan(
		&session.ID, &session.AccountID, &session.Region, &session.GameType, &session.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find queue session for account %s: %w", accountID, err)
	}
	if err := s.attachParty(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetQueueSession fetches a session by primary key, nil when absent.
func (s *Store) GetQueueSession(ctx context.Context, id uuid.UUID) (*models.QueueSession, error) {
	q := `SELECT id, account_id, region, game_type, created_at FROM queue_sessions WHERE id = $1`
	var session models.QueueSession
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&session.ID, &session.AccountID, &session.Region, &session.GameType, &session.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue session %s: %w", id, err)
	}
	if err := s.attachParty(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteQueueSession removes a session and its party rows. The deleted
// session (party included) is returned so callers can notify its members;
// nil when no such row existed.
func (s *Store) DeleteQueueSession(ctx context.Context, id uuid.UUID) (*models.QueueSession, error) {
	session, err := s.GetQueueSession(ctx, id)
	if err != nil || session == nil {
		return nil, err
	}

	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// party_members cascades from parties.
		if _, err := tx.Exec(ctx, `DELETE FROM parties WHERE queue_session_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM queue_sessions WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete queue session %s: %w", id, err)
	}
	return session, nil
}

// DeleteQueueSessions removes the given sessions (and their parties) in one
// transaction. Missing ids are ignored.
func (s *Store) DeleteQueueSessions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM parties WHERE queue_session_id = ANY($1)`, ids,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM queue_sessions WHERE id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete queue sessions: %w", err)
	}
	return nil
}

// ListQueueSessions returns every session waiting in the (gameType, region)
// pool, oldest first, with party members and display names attached. The
// assembler depends on the created_at ordering for FIFO fairness.
func (s *Store) ListQueueSessions(ctx context.Context, gameType config.GameType, region config.Region) ([]*models.QueueSession, error) {
	q := `
	SELECT qs.id, qs.account_id, qs.region, qs.game_type, qs.created_at,
	       COALESCE(NULLIF(a.display_name, ''), a.username)
	FROM queue_sessions qs
	JOIN accounts a ON a.id = qs.account_id
	WHERE qs.game_type = $1 AND qs.region = $2
	ORDER BY qs.created_at ASC
	`
	rows, err := s.pool.Query(ctx, q, gameType, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.QueueSession
	for rows.Next() {
		var session models.QueueSession
		if err := rows.Scan(
			&session.ID, &session.AccountID, &session.Region, &session.GameType,
			&session.CreatedAt, &session.OwnerName,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for _, session := range sessions {
		if err := s.attachParty(ctx, session); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// attachParty loads the session's party (with member display names), if any.
func (s *Store) attachParty(ctx context.Context, session *models.QueueSession) error {
	q := `
	SELECT p.id, pm.account_id, COALESCE(NULLIF(a.display_name, ''), a.username)
	FROM parties p
	JOIN party_members pm ON pm.party_id = p.id
	JOIN accounts a ON a.id = pm.account_id
	WHERE p.queue_session_id = $1
	`
	rows, err := s.pool.Query(ctx, q, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load party for session %s: %w", session.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var partyID uuid.UUID
		var member models.PartyMember
		if err := rows.Scan(&partyID, &member.AccountID, &member.Name); err != nil {
			return err
		}
		if session.Party == nil {
			session.Party = &models.Party{ID: partyID, QueueSessionID: session.ID}
		}
		session.Party.Members = append(session.Party.Members, member)
	}
	return rows.Err()
}
