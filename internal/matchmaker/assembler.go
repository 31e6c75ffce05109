// internal/matchmaker/assembler.go
package matchmaker

import (
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
)

// BuildTeams walks the pool's queue sessions oldest-first and greedily slots
// individual players onto Team A until it holds teamSize, then Team B.
// Atomicity is at player granularity: a party may split across the team
// boundary, and players beyond both teams' capacity are simply left queued.
// Returns the assigned players and the deduplicated ids of every session
// that contributed at least one player.
func BuildTeams(sessions []*models.QueueSession, teamSize int) ([]models.AssignedPlayer, []uuid.UUID) {
	var (
		players      []models.AssignedPlayer
		sessionIDs   []uuid.UUID
		seenSessions = make(map[uuid.UUID]bool)
		teamASize    int
		teamBSize    int
	)

	for _, session := range sessions {
		if teamASize >= teamSize && teamBSize >= teamSize {
			break
		}

		candidates := make([]models.AssignedPlayer, 0, session.Size())
		candidates = append(candidates, models.AssignedPlayer{
			AccountID:  session.AccountID,
			PlayerName: session.OwnerName,
		})
		if session.Party != nil {
			for _, member := range session.Party.Members {
				candidates = append(candidates, models.AssignedPlayer{
					AccountID:  member.AccountID,
					PlayerName: member.Name,
				})
			}
		}

		for _, player := range candidates {
			switch {
			case teamASize < teamSize:
				player.Team = models.TeamA
				teamASize++
			case teamBSize < teamSize:
				player.Team = models.TeamB
				teamBSize++
			default:
				continue
			}
			players = append(players, player)
			if !seenSessions[session.ID] {
				seenSessions[session.ID] = true
				sessionIDs = append(sessionIDs, session.ID)
			}
		}
	}

	return players, sessionIDs
}
