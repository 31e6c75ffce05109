// internal/hub/topics.go
package hub

import "github.com/google/uuid"

// Canonical topic names. Every connection joins its principal topic on
// connect; queue and game topics come and go with matchmaking state.

func PlayerTopic(accountID uuid.UUID) string {
	return "player." + accountID.String()
}

func ServerTopic(serverID uuid.UUID) string {
	return "server." + serverID.String()
}

func QueueSessionTopic(sessionID uuid.UUID) string {
	return "queueSession." + sessionID.String()
}

func GameTopic(gameID uuid.UUID) string {
	return "game." + gameID.String()
}
