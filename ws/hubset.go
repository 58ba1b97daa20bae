package ws

import (
	"sync"

	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/types"
)

// HubSet owns one hub per room with a live connection. Hubs are created
// on the first subscription and torn down when the room is deleted. It
// is the glue between the engine and the transport: it is the engine's
// event sink and the presence connection source.
type HubSet struct {
	mu        sync.RWMutex
	hubs      map[string]*Hub
	cfg       *config.Config
	persister persistence.Persister
}

func NewHubSet(cfg *config.Config, persister persistence.Persister) *HubSet {
	return &HubSet{
		hubs:      make(map[string]*Hub),
		cfg:       cfg,
		persister: persister,
	}
}

// Get returns the room's hub, or nil if no hub exists.
func (s *HubSet) Get(roomId string) *Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hubs[roomId]
}

// Ensure returns the room's hub, creating and starting it if necessary.
func (s *HubSet) Ensure(roomId string) *Hub {
	s.mu.RLock()
	hub := s.hubs[roomId]
	s.mu.RUnlock()
	if hub != nil {
		return hub
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if hub = s.hubs[roomId]; hub != nil {
		return hub
	}
	hub = NewHub(roomId, s.cfg, s.persister)
	s.hubs[roomId] = hub
	go hub.Run()
	return hub
}

// Remove stops and drops the room's hub, if any.
func (s *HubSet) Remove(roomId string) {
	s.mu.Lock()
	hub := s.hubs[roomId]
	delete(s.hubs, roomId)
	s.mu.Unlock()
	if hub != nil {
		hub.Stop()
	}
}

// PublishEvents hands events to the room's hub. Fire-and-forget: if no
// hub exists or its queue is full, the events are only in the persisted
// history.
func (s *HubSet) PublishEvents(roomId string, events []*types.Event) {
	hub := s.Get(roomId)
	if hub == nil {
		return
	}
	select {
	case hub.BroadcastEvents <- events:
	default:
	}
}

// ConnectedMembers returns the membership ids currently connected to
// the room's hub.
func (s *HubSet) ConnectedMembers(roomId string) []string {
	hub := s.Get(roomId)
	if hub == nil {
		return nil
	}
	return hub.ConnectedMembers()
}
