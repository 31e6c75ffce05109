package models

import (
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/google/uuid"
)

// QueueSession is one unit of players (solo or a party) waiting for a match.
// At most one active QueueSession exists per account; party members ride on
// the owning account's session and never get rows of their own.
type QueueSession struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"accountId"`
	Region    config.Region   `json:"region"`
	GameType  config.GameType `json:"gameType"`
	CreatedAt time.Time       `json:"createdAt"`

	Party *Party `json:"party,omitempty"`

	// OwnerName is the queueing account's display name, joined in when the
	// session is loaded for assembly.
	OwnerName string `json:"-"`
}

// Size is the number of players this session contributes to a match.
func (s *QueueSession) Size() int {
	if s.Party == nil {
		return 1
	}
	return 1 + len(s.Party.Members)
}

// Party is a pre-grouped set of accounts queueing together under one session.
type Party struct {
	ID             uuid.UUID     `json:"id"`
	QueueSessionID uuid.UUID     `json:"queueSessionId"`
	Members        []PartyMember `json:"members"`
}

// PartyMember is a non-owning participant of a party.
type PartyMember struct {
	AccountID uuid.UUID `json:"accountId"`
	Name      string    `json:"-"`
}
