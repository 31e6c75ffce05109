package models

import (
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/google/uuid"
)

// Team labels the two sides of an assembled match.
type Team int

const (
	TeamA Team = iota
	TeamB
)

func (t Team) String() string {
	if t == TeamA {
		return "A"
	}
	return "B"
}

// GameServer is a pre-registered game-hosting process. The allocator flips
// InUse when claiming one; the connection hub flips Ready as the server's
// coordinator socket comes and goes.
type GameServer struct {
	ID               uuid.UUID     `json:"id"`
	Region           config.Region `json:"region"`
	ConnectionString string        `json:"connectionString"`
	InUse            bool          `json:"inUse"`
	Ready            bool          `json:"ready"`
}

// AssignedPlayer is one player slotted onto a team by the assembler.
type AssignedPlayer struct {
	AccountID  uuid.UUID `json:"accountId"`
	PlayerName string    `json:"playerName"`
	Team       Team      `json:"team"`
}

// PendingMatch is a proposed, not-yet-committed match awaiting ready-up
// quorum. It lives only in the ephemeral store under an opaque key, with a
// paired acknowledgement counter at <key>.count.
type PendingMatch struct {
	GameType               config.GameType  `json:"gameType"`
	Region                 config.Region    `json:"region"`
	Players                []AssignedPlayer `json:"players"`
	PlayersNeeded          int              `json:"playersNeeded"`
	ServerConnectionString string           `json:"serverConnectionString"`
	ServerID               uuid.UUID        `json:"serverId"`
	SessionIDs             []uuid.UUID      `json:"sessions"`
	CreatedAt              time.Time        `json:"createdAt"`
}

// TeamRoster returns the account ids assigned to the given team.
func (pm *PendingMatch) TeamRoster(team Team) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range pm.Players {
		if p.Team == team {
			ids = append(ids, p.AccountID)
		}
	}
	return ids
}

// Game is the durable match record, created only after ready-up quorum.
type Game struct {
	ID           uuid.UUID       `json:"id"`
	GameType     config.GameType `json:"gameType"`
	GameServerID uuid.UUID       `json:"gameServerId"`
	TeamAPlayers []uuid.UUID     `json:"teamAPlayers"`
	TeamBPlayers []uuid.UUID     `json:"teamBPlayers"`
	CreatedAt    time.Time       `json:"createdAt"`
	Ongoing      bool            `json:"ongoing"`
}

// RosterPlayer is a player row of an ongoing game, as returned to a game
// server validating a joining player.
type RosterPlayer struct {
	AccountID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Team      Team      `json:"team"`
}
