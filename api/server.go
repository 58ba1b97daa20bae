package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/ws"
)

// Server holds the HTTP surface: the REST API and the websocket
// endpoint. All room logic lives in the engine, all fan-out in the hub
// set, the handlers only translate between HTTP and those two.
type Server struct {
	engine   *engine.Engine
	hubs     *ws.HubSet
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, hubs *ws.HubSet, cfg *config.Config) *Server {
	return &Server{
		engine: eng,
		hubs:   hubs,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

const roomPattern = "{room:[a-zA-Z0-9-]+}"

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.createRoomHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/join", s.joinRoomHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern, s.snapshotHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms/"+roomPattern, s.updateTitleHandler).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/"+roomPattern, s.deleteRoomHandler).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/"+roomPattern+"/advance", s.advanceRoundHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/host", s.transferHostHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/leave", s.leaveRoomHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/summary", s.summaryHandler).Methods(http.MethodGet)

	api.HandleFunc("/rooms/"+roomPattern+"/offers", s.createOfferHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/offers/{offer}", s.updateOfferHandler).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/"+roomPattern+"/offers/{offer}", s.deleteOfferHandler).Methods(http.MethodDelete)

	api.HandleFunc("/rooms/"+roomPattern+"/desires", s.createDesireHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/desires/{desire}", s.updateDesireHandler).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/"+roomPattern+"/desires/{desire}", s.deleteDesireHandler).Methods(http.MethodDelete)

	api.HandleFunc("/rooms/"+roomPattern+"/claims", s.createClaimHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/claims/{claim}/withdraw", s.withdrawClaimHandler).Methods(http.MethodPost)
	api.HandleFunc("/rooms/"+roomPattern+"/claims/{claim}/decide", s.decideClaimHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/"+roomPattern, s.websocketHandler).Methods(http.MethodGet)

	return router
}
