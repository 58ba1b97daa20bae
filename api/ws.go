package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/ws"
)

// websocketHandler subscribes a room member to the room channel. The
// connection only delivers events, all mutations go through the REST
// API.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomId := vars["room"]

	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	member, err := s.engine.Membership(roomId, userId)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close() //nolint

	hub := s.hubs.Ensure(roomId)
	doneChan := make(chan struct{})
	c := ws.NewClient(hub, conn, member, doneChan)
	if filterExpr := r.URL.Query().Get("filter"); filterExpr != "" {
		c.SetFilter(filterExpr)
	}

	// Add to the hub, then wait until the run loop has actually
	// registered the client, so the presence broadcast below reaches it.
	c.Add(1)
	hub.Register <- c
	c.Wait()
	defer func() {
		hub.Unregister <- c
		s.engine.MemberDisconnected(roomId, member.Id)
	}()
	c.Add(2)
	go c.ReadLoop()
	go c.WriteLoop()

	s.engine.MemberConnected(roomId, member.Id)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go c.SendHistory(hub.GetHistory(), wg)
	// make sure the replay is done before the send channel may be closed
	wg.Wait()
	<-doneChan
}
