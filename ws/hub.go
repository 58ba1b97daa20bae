package ws

import (
	"container/ring"
	"encoding/json"
	"sync"
	"time"

	"github.com/antonmedv/expr/vm"
	"github.com/robfig/cron/v3"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/filter"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/types"
)

const (
	maxMessageSize       = 4096
	pongWait             = 2 * time.Minute
	pingPeriod           = time.Minute
	writeWait            = 10 * time.Second
	defaultHistorySize   = 50
	broadcastChannelSize = 1000
	historyChannelSize   = 1000

	// period of the reconciliation broadcast; clients treat it as a
	// hint to refetch the snapshot
	presenceRefreshSpec = "@every 1m"
)

// Hub is the realtime channel of one room. Delivery is best-effort and
// at-most-once: events reach whoever is connected right now, nothing
// is buffered for absent clients. The persisted snapshot is the source
// of truth, an event is only a signal to refetch it.
type Hub struct {
	roomId string

	// Registered clients.
	clients map[*Client]struct{}

	// BroadcastEvents fans typed room events out to all clients.
	BroadcastEvents chan []*types.Event

	// Register a new client to the hub.
	Register chan *Client

	// Unregister a client from the hub.
	Unregister chan *Client

	// keep the event history in a ring buffer
	History                  chan *types.Event
	historyStart, historyEnd *ring.Ring

	// room state as last seen by the hub, only used for filter
	// evaluation
	roomMu    sync.RWMutex
	roomTitle string
	roomRound string

	done chan struct{}

	// global configuration
	Cfg *config.Config

	// persistence
	Persister persistence.Persister

	// mutex for manipulating the clients
	sync.RWMutex
}

func NewHub(roomId string, cfg *config.Config, persister persistence.Persister) *Hub {
	historySize := defaultHistorySize
	if cfg != nil && cfg.HistoryConfig.HistorySize > 0 {
		historySize = cfg.HistoryConfig.HistorySize
	}
	history := ring.New(historySize)
	hub := &Hub{
		roomId:          roomId,
		clients:         make(map[*Client]struct{}),
		BroadcastEvents: make(chan []*types.Event, broadcastChannelSize),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		History:         make(chan *types.Event, historyChannelSize),
		historyStart:    history,
		historyEnd:      history,
		done:            make(chan struct{}),
		Cfg:             cfg,
		Persister:       persister,
	}
	if persister != nil {
		room := types.Room{Id: roomId}
		if err := persister.GetRoom(&room); err == nil {
			hub.roomTitle = room.Title
			hub.roomRound = string(room.CurrentRound)
		}
		var t time.Time
		n := time.Now().Add(time.Minute)
		events, err := persister.GetEventHistory(roomId, t, n, 0, historySize)
		if err != nil {
			globals.AppLogger.Error("could not load persisted events", "room", roomId, "error", err)
		}
		// GetEventHistory returns newest first, the ring wants oldest first
		for i := len(events) - 1; i >= 0; i-- {
			hub.historyEnd.Value = events[i]
			hub.historyEnd = hub.historyEnd.Next()
			if hub.historyEnd == hub.historyStart {
				hub.historyStart = hub.historyStart.Next()
			}
		}
	}
	return hub
}

// NoClients returns the number of clients registered
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// ConnectedMembers returns the membership ids with a live connection.
func (h *Hub) ConnectedMembers() []string {
	h.RLock()
	defer h.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for client := range h.clients {
		ids = append(ids, client.member.Id)
	}
	return ids
}

// Run is the main hub event loop handling register, unregister and broadcast events.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	entryId, err := cronRunner.AddFunc(presenceRefreshSpec, func() {
		if h.NoClients() == 0 {
			return
		}
		h.SendInfo(h.GetInfo())
	})
	if err != nil {
		panic(err)
	}
	defer cronRunner.Remove(entryId)
	defer cronRunner.Stop()
	cronRunner.Start()
	for {
		select {
		case <-h.done:
			globals.AppLogger.Debug("hub done, exiting run loop", "room", h.roomId)
			return

		case client := <-h.Register:
			globals.AppLogger.Debug("register new client", "room", h.roomId)
			h.Lock()
			h.clients[client] = struct{}{}
			h.Unlock()
			client.Done()
			go h.SendInfo(h.GetInfo())

		case client := <-h.Unregister:
			go func() {
				h.RLock()
				if _, ok := h.clients[client]; ok {
					h.RUnlock()
					h.Lock()
					delete(h.clients, client)
					client.conn.Close()
					// wait for all loops and write operations to be
					// finished, then it is safe to close the channel
					client.Wait()
					close(client.Send)
					h.Unlock()
					go h.SendInfo(h.GetInfo())
				} else {
					h.RUnlock()
				}
			}()

		case events := <-h.BroadcastEvents:
			for _, event := range events {
				event.Sent = time.Now()
				h.observeRoomState(event)
				var prog *vm.Program
				if event.TargetFilter != "" {
					var err error
					prog, err = filter.Compile(event.TargetFilter)
					if err != nil {
						globals.AppLogger.Error("could not compile filter", "filter", event.TargetFilter, "error", err)
					}
				}
				h.History <- event
				go func(event *types.Event, prog *vm.Program) {
					var wg sync.WaitGroup
					h.RLock()
					for client := range h.clients {
						if !client.RunFilterEvent(event, prog) {
							continue
						}
						data, err := json.Marshal(types.WireEvent{Event: event})
						if err != nil {
							continue
						}
						wg.Add(1)
						client.Add(1)
						go func(c *Client) {
							defer wg.Done()
							defer c.Done()
							c.Send <- data
						}(client)
					}
					wg.Wait()
					h.RUnlock()
				}(event, prog)
			}

		case event := <-h.History:
			h.historyEnd.Value = event
			h.historyEnd = h.historyEnd.Next()
			if h.historyEnd == h.historyStart {
				h.historyStart = h.historyStart.Next()
			}
		}
	}
}

// observeRoomState keeps the cached room state used in filter
// environments in sync with the events passing through.
func (h *Hub) observeRoomState(event *types.Event) {
	switch event.Name {
	case types.EventRoundChanged:
		if r, ok := event.Tags["round"]; ok {
			h.roomMu.Lock()
			h.roomRound = r
			h.roomMu.Unlock()
		}
	case types.EventRoomUpdated:
		if t, ok := event.Tags["title"]; ok {
			h.roomMu.Lock()
			h.roomTitle = t
			h.roomMu.Unlock()
		}
	}
}

func (h *Hub) roomEnv() filter.Room {
	h.roomMu.RLock()
	defer h.roomMu.RUnlock()
	return filter.Room{
		Id:    h.roomId,
		Title: h.roomTitle,
		Round: h.roomRound,
	}
}

// Stop ends the run loop. Registered clients are not torn down here,
// their connections close via the usual unregister path.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) GetInfo() types.InfoMessage {
	return types.InfoMessage{
		RoomId:        h.roomId,
		NoConnections: h.NoClients(),
		ActiveMembers: h.ConnectedMembers(),
	}
}

// GetHistory returns the buffered event history, oldest first.
func (h *Hub) GetHistory() []*types.Event {
	history := make([]*types.Event, 0)
	current := h.historyStart
	for ; current != h.historyEnd; current = current.Next() {
		history = append(history, current.Value.(*types.Event))
	}
	return history
}

// SendInfo broadcasts hub statistics to all clients.
func (h *Hub) SendInfo(info types.InfoMessage) {
	msg, err := json.Marshal(types.WireInfoMessage{InfoMessage: &info})
	if err != nil {
		globals.AppLogger.Error("could not marshal ws info", "error", err)
		return
	}
	var wg sync.WaitGroup
	h.RLock()
	for client := range h.clients {
		wg.Add(1)
		client.Add(1)
		go func(c *Client) {
			defer wg.Done()
			defer c.Done()
			c.Send <- msg
		}(client)
	}
	wg.Wait()
	h.RUnlock()
}
