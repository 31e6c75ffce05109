// internal/matchmaker/assembler_test.go
package matchmaker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/models"
)

func soloSession(name string) *models.QueueSession {
	id, _ := uuid.NewRandom()
	accountID, _ := uuid.NewRandom()
	return &models.QueueSession{
		ID:        id,
		AccountID: accountID,
		Region:    config.RegionLocal,
		GameType:  config.GameTypeCustom,
		CreatedAt: time.Now(),
		OwnerName: name,
	}
}

func partySession(name string, memberCount int) *models.QueueSession {
	s := soloSession(name)
	partyID, _ := uuid.NewRandom()
	party := &models.Party{ID: partyID, QueueSessionID: s.ID}
	for i := 0; i < memberCount; i++ {
		memberID, _ := uuid.NewRandom()
		party.Members = append(party.Members, models.PartyMember{AccountID: memberID, Name: name})
	}
	s.Party = party
	return s
}

func TestBuildTeamsSolo(t *testing.T) {
	s := soloSession("alice")
	players, sessionIDs := BuildTeams([]*models.QueueSession{s}, config.TeamSize)

	require.Len(t, players, 1)
	assert.Equal(t, s.AccountID, players[0].AccountID)
	assert.Equal(t, models.TeamA, players[0].Team)
	require.Len(t, sessionIDs, 1)
	assert.Equal(t, s.ID, sessionIDs[0])
}

func TestBuildTeamsFillsAThenB(t *testing.T) {
	var sessions []*models.QueueSession
	for i := 0; i < 7; i++ {
		sessions = append(sessions, soloSession("p"))
	}
	players, _ := BuildTeams(sessions, config.TeamSize)

	require.Len(t, players, 7)
	for i, p := range players {
		if i < config.TeamSize {
			assert.Equal(t, models.TeamA, p.Team, "player %d", i)
		} else {
			assert.Equal(t, models.TeamB, p.Team, "player %d", i)
		}
	}
}

func TestBuildTeamsNeverOverfills(t *testing.T) {
	var sessions []*models.QueueSession
	for i := 0; i < 15; i++ {
		sessions = append(sessions, soloSession("p"))
	}
	players, sessionIDs := BuildTeams(sessions, config.TeamSize)

	require.Len(t, players, 2*config.TeamSize)
	counts := map[models.Team]int{}
	for _, p := range players {
		counts[p.Team]++
	}
	assert.Equal(t, config.TeamSize, counts[models.TeamA])
	assert.Equal(t, config.TeamSize, counts[models.TeamB])
	// only the contributing sessions are recorded
	assert.Len(t, sessionIDs, 2*config.TeamSize)
}

func TestBuildTeamsPartySplitsAcrossBoundary(t *testing.T) {
	// 4 solos fill most of Team A; a 3-player party must split A/B.
	var sessions []*models.QueueSession
	for i := 0; i < 4; i++ {
		sessions = append(sessions, soloSession("solo"))
	}
	party := partySession("party", 2)
	sessions = append(sessions, party)

	players, sessionIDs := BuildTeams(sessions, config.TeamSize)
	require.Len(t, players, 7)

	assert.Equal(t, models.TeamA, players[4].Team, "party owner takes the last Team A slot")
	assert.Equal(t, models.TeamB, players[5].Team)
	assert.Equal(t, models.TeamB, players[6].Team)

	// the party session id is recorded once despite contributing 3 players
	assert.Len(t, sessionIDs, 5)
}

func TestBuildTeamsFIFOOrder(t *testing.T) {
	first := soloSession("first")
	second := soloSession("second")
	players, _ := BuildTeams([]*models.QueueSession{first, second}, 1)

	// team size 1: first session takes Team A, second takes Team B
	require.Len(t, players, 2)
	assert.Equal(t, first.AccountID, players[0].AccountID)
	assert.Equal(t, models.TeamA, players[0].Team)
	assert.Equal(t, second.AccountID, players[1].AccountID)
	assert.Equal(t, models.TeamB, players[1].Team)
}

func TestBuildTeamsEmptyPool(t *testing.T) {
	players, sessionIDs := BuildTeams(nil, config.TeamSize)
	assert.Empty(t, players)
	assert.Empty(t, sessionIDs)
}
