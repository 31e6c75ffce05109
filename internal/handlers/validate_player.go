// internal/handlers/validate_player.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Velozity/CastGameCoordinator/internal/auth"
	"github.com/Velozity/CastGameCoordinator/internal/models"
)

// RosterLoader loads the roster of an ongoing game.
type RosterLoader interface {
	GetOngoingGameRoster(ctx context.Context, gameID uuid.UUID) ([]models.RosterPlayer, error)
}

type validatePlayerRequest struct {
	PlayerAuthToken string    `json:"playerAuthToken"`
	GameID          uuid.UUID `json:"gameId"`
}

type validatePlayerResponse struct {
	Success bool                 `json:"success"`
	Player  *models.RosterPlayer `json:"player,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ValidatePlayerHandler lets a game server confirm that a connecting player
// belongs to one of its ongoing games. The server authenticates itself with
// its own bearer token and forwards the player's token; the response carries
// the player's roster entry including team assignment.
func ValidatePlayerHandler(logger *logrus.Logger, roster RosterLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		principal, err := auth.Verify(bearerToken(r))
		if err != nil || principal.Kind != models.PrincipalServer {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req validatePlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerAuthToken == "" || req.GameID == uuid.Nil {
			writeJSON(w, validatePlayerResponse{Success: false, Error: "Bad input"})
			return
		}

		player, err := auth.Verify(req.PlayerAuthToken)
		if err != nil || player.Kind != models.PrincipalPlayer {
			writeJSON(w, validatePlayerResponse{Success: false, Error: "Unauthorized"})
			return
		}

		players, err := roster.GetOngoingGameRoster(r.Context(), req.GameID)
		if err != nil {
			logger.WithError(err).Errorf("Failed to load roster for game %s", req.GameID)
			writeJSON(w, validatePlayerResponse{Success: false, Error: "Game not found"})
			return
		}
		if len(players) == 0 {
			writeJSON(w, validatePlayerResponse{Success: false, Error: "Game not found"})
			return
		}

		for i := range players {
			if players[i].AccountID == player.ID {
				logger.Infof("Validated player %s for game %s", player.ID, req.GameID)
				writeJSON(w, validatePlayerResponse{Success: true, Player: &players[i]})
				return
			}
		}
		writeJSON(w, validatePlayerResponse{Success: false, Error: "Not a player"})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
