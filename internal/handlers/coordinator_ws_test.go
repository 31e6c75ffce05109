// internal/handlers/coordinator_ws_test.go
package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/hub"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/Velozity/CastGameCoordinator/internal/queue"
)

// fakeQueueStore is an in-memory queue.Store keyed by session id.
type fakeQueueStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.QueueSession
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{sessions: make(map[uuid.UUID]*models.QueueSession)}
}

func (f *fakeQueueStore) UpsertQueueSession(ctx context.Context, accountID uuid.UUID, region config.Region, gameType config.GameType, partyMembers []uuid.UUID) (*models.QueueSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := uuid.NewRandom()
	session := &models.QueueSession{ID: id, AccountID: accountID, Region: region, GameType: gameType}
	if len(partyMembers) > 0 {
		partyID, _ := uuid.NewRandom()
		party := &models.Party{ID: partyID, QueueSessionID: id}
		for _, memberID := range partyMembers {
			party.Members = append(party.Members, models.PartyMember{AccountID: memberID})
		}
		session.Party = party
	}
	f.sessions[id] = session
	return session, nil
}

func (f *fakeQueueStore) FindQueueSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.QueueSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.AccountID == accountID {
			return session, nil
		}
		if session.Party != nil {
			for _, member := range session.Party.Members {
				if member.AccountID == accountID {
					return session, nil
				}
			}
		}
	}
	return nil, nil
}

func (f *fakeQueueStore) DeleteQueueSession(ctx context.Context, id uuid.UUID) (*models.QueueSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	delete(f.sessions, id)
	return session, nil
}

// idleFinder never assembles; disconnect cleanup does not trigger assembly.
type idleFinder struct{}

func (idleFinder) FindMatch(ctx context.Context, gameType config.GameType, region config.Region) {}

type readyCall struct {
	id    uuid.UUID
	ready bool
}

type fakeServerRegistry struct {
	mu    sync.Mutex
	calls []readyCall
}

func (f *fakeServerRegistry) SetServerReady(ctx context.Context, id uuid.UUID, ready bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, readyCall{id: id, ready: ready})
	return nil
}

func drainEvents(conn *hub.Conn) []hub.Event {
	var events []hub.Event
	for {
		select {
		case ev := <-conn.OutChan:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func joinedPlayer(h *hub.Hub, accountID uuid.UUID) *hub.Conn {
	conn := hub.NewConn(models.Principal{Kind: models.PrincipalPlayer, ID: accountID}, func() {})
	h.Join(conn, hub.PlayerTopic(accountID))
	return conn
}

// TestDisconnectCleanupNotifiesOwnerAndParty verifies that a player dropping
// off the coordinator tears down their queue session and notifies everyone
// riding on it: the owner gets leaveSession, each party member joinSession.
func TestDisconnectCleanupNotifiesOwnerAndParty(t *testing.T) {
	store := newFakeQueueStore()
	qs := queue.NewService(store, idleFinder{}, testLogger())
	h := hub.New(testLogger())
	co := &Coordinator{Hub: h, Queue: qs, Servers: &fakeServerRegistry{}}

	ownerID, _ := uuid.NewRandom()
	memberID, _ := uuid.NewRandom()
	session, err := qs.Enqueue(context.Background(), ownerID, config.RegionLocal, config.GameTypeCustom, []uuid.UUID{memberID})
	if err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	ownerConn := joinedPlayer(h, ownerID)
	memberConn := joinedPlayer(h, memberID)

	co.cleanupDisconnect(models.Principal{Kind: models.PrincipalPlayer, ID: ownerID}, testLogger())

	ownerEvents := drainEvents(ownerConn)
	if len(ownerEvents) != 1 || ownerEvents[0].Event != "leaveSession" {
		t.Fatalf("expected one leaveSession for the owner, got %+v", ownerEvents)
	}
	if ownerEvents[0].Data != session.ID {
		t.Fatalf("leaveSession carried %v, want %s", ownerEvents[0].Data, session.ID)
	}

	memberEvents := drainEvents(memberConn)
	if len(memberEvents) != 1 || memberEvents[0].Event != "joinSession" {
		t.Fatalf("expected one joinSession for the party member, got %+v", memberEvents)
	}
	if memberEvents[0].Data != session.ID {
		t.Fatalf("joinSession carried %v, want %s", memberEvents[0].Data, session.ID)
	}

	if remaining, _ := store.FindQueueSessionByAccount(context.Background(), ownerID); remaining != nil {
		t.Fatalf("queue session survived disconnect: %+v", remaining)
	}
}

// TestDisconnectCleanupNotQueuedPlayerIsQuiet covers the player who drops
// without a queue session: nothing to delete, nothing emitted.
func TestDisconnectCleanupNotQueuedPlayerIsQuiet(t *testing.T) {
	store := newFakeQueueStore()
	qs := queue.NewService(store, idleFinder{}, testLogger())
	h := hub.New(testLogger())
	co := &Coordinator{Hub: h, Queue: qs, Servers: &fakeServerRegistry{}}

	accountID, _ := uuid.NewRandom()
	conn := joinedPlayer(h, accountID)

	co.cleanupDisconnect(models.Principal{Kind: models.PrincipalPlayer, ID: accountID}, testLogger())

	if events := drainEvents(conn); len(events) != 0 {
		t.Fatalf("expected no events for a player who was not queued, got %+v", events)
	}
}

// TestDisconnectCleanupMarksServerNotReady verifies the server branch: a game
// server dropping its coordinator socket goes not-ready so the allocator
// stops handing out matches to it.
func TestDisconnectCleanupMarksServerNotReady(t *testing.T) {
	store := newFakeQueueStore()
	qs := queue.NewService(store, idleFinder{}, testLogger())
	registry := &fakeServerRegistry{}
	co := &Coordinator{Hub: hub.New(testLogger()), Queue: qs, Servers: registry}

	serverID, _ := uuid.NewRandom()
	co.cleanupDisconnect(models.Principal{Kind: models.PrincipalServer, ID: serverID}, testLogger())

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if len(registry.calls) != 1 {
		t.Fatalf("expected one ready flip, got %+v", registry.calls)
	}
	if registry.calls[0].id != serverID || registry.calls[0].ready {
		t.Fatalf("expected server %s marked not ready, got %+v", serverID, registry.calls[0])
	}
}
