// internal/hub/hub_test.go
package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Velozity/CastGameCoordinator/internal/models"
)

func playerConn() (*Conn, *bool) {
	cancelled := false
	id, _ := uuid.NewRandom()
	conn := NewConn(models.Principal{Kind: models.PrincipalPlayer, ID: id}, func() {
		cancelled = true
	})
	return conn, &cancelled
}

func drain(conn *Conn) []Event {
	var events []Event
	for {
		select {
		case ev := <-conn.OutChan:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestJoinEmitLeave(t *testing.T) {
	h := New(nil)
	conn, _ := playerConn()

	h.Join(conn, "queueSession.abc")
	h.Emit("queueSession.abc", "gameSessionFound", "payload")

	events := drain(conn)
	require.Len(t, events, 1)
	assert.Equal(t, "gameSessionFound", events[0].Event)
	assert.Equal(t, "payload", events[0].Data)

	h.Leave(conn, "queueSession.abc")
	h.Emit("queueSession.abc", "gameSessionFound", "again")
	assert.Empty(t, drain(conn))
}

func TestEmitReachesAllMembersAndOnlyMembers(t *testing.T) {
	h := New(nil)
	a, _ := playerConn()
	b, _ := playerConn()
	c, _ := playerConn()

	h.Join(a, "game.1")
	h.Join(b, "game.1")
	h.Join(c, "game.2")
	h.Emit("game.1", "gameReady", nil)

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(c))
}

func TestLeaveAllDetachesEveryTopic(t *testing.T) {
	h := New(nil)
	conn, _ := playerConn()

	h.Join(conn, conn.Principal.Topic())
	h.Join(conn, "queueSession.abc")
	h.LeaveAll(conn)

	assert.Empty(t, h.Members(conn.Principal.Topic()))
	assert.Empty(t, h.Members("queueSession.abc"))
}

func TestMoveMembersMigratesTopic(t *testing.T) {
	h := New(nil)
	a, _ := playerConn()
	b, _ := playerConn()

	h.Join(a, "queueSession.abc")
	h.Join(b, "queueSession.abc")
	h.MoveMembers("queueSession.abc", "game.1")

	assert.Empty(t, h.Members("queueSession.abc"))
	assert.Len(t, h.Members("game.1"), 2)

	h.Emit("game.1", "gameReady", nil)
	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestKickTopicDisconnectsExistingConnections(t *testing.T) {
	h := New(nil)
	existing, cancelled := playerConn()
	topic := existing.Principal.Topic()
	h.Join(existing, topic)

	kicked := h.KickTopic(topic, 1000, "Multiple devices connected to coordinator")
	assert.Equal(t, 1, kicked)
	assert.True(t, *cancelled, "existing connection must be force-closed")

	events := drain(existing)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Event)
	payload, ok := events[0].Data.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, 1000, payload.Code)
}

func TestKickTopicEmptyTopic(t *testing.T) {
	h := New(nil)
	assert.Zero(t, h.KickTopic("player.nobody", 1000, "dup"))
}

func TestSendDropsWhenChannelFull(t *testing.T) {
	conn, _ := playerConn()
	for i := 0; i < cap(conn.OutChan)+5; i++ {
		conn.Send("event", i)
	}
	assert.Len(t, drain(conn), cap(conn.OutChan), "overflow frames are dropped, not blocking")
}
