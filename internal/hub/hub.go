// internal/hub/hub.go
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub owns the topic registry: a mapping from topic name to the set of
// connections joined to it. Join/Leave/Emit are its only mutators; there is
// no other shared connection state in the process.
//
// Topic naming convention: player.<accountID>, server.<serverID>,
// queueSession.<sessionID>, game.<gameID>.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Conn]struct{}
	conns  map[*Conn]map[string]struct{}
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Conn]struct{}),
		conns:  make(map[*Conn]map[string]struct{}),
		logger: logger,
	}
}

// Join adds conn to topic.
func (h *Hub) Join(conn *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(conn, topic)
}

func (h *Hub) joinLocked(conn *Conn, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Conn]struct{})
	}
	h.topics[topic][conn] = struct{}{}
	if h.conns[conn] == nil {
		h.conns[conn] = make(map[string]struct{})
	}
	h.conns[conn][topic] = struct{}{}
}

// Leave removes conn from topic.
func (h *Hub) Leave(conn *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, topic)
}

func (h *Hub) leaveLocked(conn *Conn, topic string) {
	if members, ok := h.topics[topic]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	if topics, ok := h.conns[conn]; ok {
		delete(topics, topic)
	}
}

// LeaveAll detaches conn from every topic it joined. Called on disconnect.
func (h *Hub) LeaveAll(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.conns[conn] {
		h.leaveLocked(conn, topic)
	}
	delete(h.conns, conn)
}

// Emit fans an event out to every current member of topic.
func (h *Hub) Emit(topic, event string, data interface{}) {
	for _, conn := range h.Members(topic) {
		conn.Send(event, data)
	}
}

// Members returns a snapshot of the connections joined to topic.
func (h *Hub) Members(topic string) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := make([]*Conn, 0, len(h.topics[topic]))
	for conn := range h.topics[topic] {
		members = append(members, conn)
	}
	return members
}

// MoveMembers moves every member of the from topic into the to topic and
// drops the from topic. Used on match commit to migrate queue-session topics
// into the single game topic.
func (h *Hub) MoveMembers(from, to string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.topics[from] {
		h.leaveLocked(conn, from)
		h.joinLocked(conn, to)
	}
}

// KickTopic force-disconnects every current member of topic with a
// structured error event. This is the duplicate-device path: a new
// connection kicks the principal's existing sockets before joining the
// topic itself. Returns how many connections were kicked.
func (h *Hub) KickTopic(topic string, code int, msg string) int {
	members := h.Members(topic)
	for _, conn := range members {
		conn.SendError(code, msg)
		conn.Close()
		if h.logger != nil {
			h.logger.WithFields(logrus.Fields{
				"topic": topic,
				"code":  code,
			}).Infof("Kicked %s %s from coordinator", conn.Principal.Kind, conn.Principal.ID)
		}
	}
	return len(members)
}
