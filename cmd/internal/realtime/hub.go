package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// Hub indexes open watches by subject so a logout can reach every tab of the
// same admin.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu        sync.RWMutex
	bySubject map[string]map[string]*Client
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:       log,
		now:       time.Now,
		bySubject: make(map[string]map[string]*Client),
	}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.bySubject[c.SubjectID]
	if !ok {
		m = make(map[string]*Client)
		h.bySubject[c.SubjectID] = m
	}
	m[c.WatchID] = c
}

func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.bySubject[c.SubjectID]
	if !ok {
		return
	}
	delete(m, c.WatchID)
	if len(m) == 0 {
		delete(h.bySubject, c.SubjectID)
	}
}

// EndSession sends session.ended to every watch of subjectID and returns how
// many were notified. Watches with a full queue are closed instead, still
// with the session-ended close status.
func (h *Hub) EndSession(subjectID string) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.bySubject[subjectID]))
	for _, c := range h.bySubject[subjectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	env := newEnvelope(TypeSessionEnded, SessionEndPayload{SubjectID: subjectID, Reason: "logout"}, h.now())
	n := 0
	for _, c := range targets {
		if c.offer(env) {
			n++
			continue
		}
		h.log.Info("ws.session_end.drop", "watch_id", c.WatchID)
		c.closeWith(StatusSessionEnded, "session ended")
	}
	return n
}

// Len is the number of open watches.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.bySubject {
		n += len(m)
	}
	return n
}
