package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/types"
)

const sendChannelSize = 1000

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	member *types.Member

	// subscription filter expression, set via an incoming filter
	// message and read by the hub broadcast goroutines
	filterMu sync.RWMutex
	filter   string

	doneChan chan struct{}

	// WaitGroup which keeps track of running read/write loops and write access to Send. If the WaitGroup is done,
	// it is safe to close all channels (all loops are done and there are no more write operations on the channels)
	sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, member *types.Member, doneChan chan struct{}) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		member:   member,
		doneChan: doneChan,
	}
}

func (c *Client) Member() *types.Member {
	return c.member
}

func (c *Client) SetFilter(expression string) {
	c.filterMu.Lock()
	c.filter = expression
	c.filterMu.Unlock()
}

func (c *Client) Filter() string {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	return c.filter
}

// SendHistory replays the buffered event history to this client, oldest
// first. Events carry a content-hash id, so clients that saw an event
// live can deduplicate the replay.
func (c *Client) SendHistory(history []*types.Event, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	for _, event := range history {
		if !c.EvaluateFilterEvent(event) {
			continue
		}
		messageBytes, err := json.Marshal(types.WireEvent{Event: event})
		if err != nil {
			globals.AppLogger.Error("could not marshal event", "error", err)
			continue
		}
		c.hub.RLock()
		if _, ok := c.hub.clients[c]; ok {
			c.Send <- messageBytes
		}
		c.hub.RUnlock()
	}
}

// ReadLoop pumps messages from the websocket connection to the hub.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
		c.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	message := &types.WebsocketMessage{}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Debug("ws closed unexpected", "error", err)
			}
			return
		}

		err = json.Unmarshal(raw, &message)
		if err != nil {
			globals.AppLogger.Error("could not unmarshal ws message", "error", err)
			return
		}

		switch message.Event {
		case types.WireMessageTypeFilter:
			filterMsgMap := make(map[string]interface{})
			err = json.Unmarshal(message.Data, &filterMsgMap)
			if err != nil {
				globals.AppLogger.Error("could not unmarshal filter message", "error", err)
				return
			}
			filterMsg := types.FilterMessage{}
			err = mapstructure.WeakDecode(filterMsgMap, &filterMsg)
			if err != nil {
				globals.AppLogger.Error("could not decode filter message", "error", err)
				return
			}
			c.SetFilter(filterMsg.Filter)
		}
	}
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Done()
	}()
	for {
		select {
		case <-c.doneChan:
			return
		default:
		}
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.doneChan:
			return
		}
	}
}
