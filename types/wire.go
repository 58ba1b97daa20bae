package types

import "encoding/json"

// Message types on the websocket connection. "event" carries a room
// event, "info" carries hub statistics, "filter" (incoming) updates the
// client's subscription filter.
const (
	WireMessageTypeEvent  = "event"
	WireMessageTypeInfo   = "info"
	WireMessageTypeFilter = "filter"
	WireMessageTypeError  = "error"
)

// JSON-serialized WebsocketMessage is what is actually sent via the
// websocket connection.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// FilterMessage is sent by a client to change its subscription filter.
type FilterMessage struct {
	Filter string `json:"filter" mapstructure:"filter"`
}

// InfoMessage carries per-room hub statistics, broadcast on every
// register/unregister and periodically as a reconciliation signal.
type InfoMessage struct {
	RoomId        string   `json:"room_id"`
	NoConnections int      `json:"no_connections"`
	ActiveMembers []string `json:"active_members"`
}

type WireEvent struct {
	*Event
	TargetFilter omit `json:"target_filter,omitempty"` // not exposed to clients
}

type WireInfoMessage struct {
	*InfoMessage
}

type omit *struct{}

func (e WireEvent) MarshalJSON() ([]byte, error) {
	type localWireEvent WireEvent
	data, err := json.Marshal(localWireEvent(e))
	if err != nil {
		return nil, err
	}
	m := WebsocketMessage{
		Event: WireMessageTypeEvent,
		Data:  data,
	}
	return json.Marshal(m)
}

func (i WireInfoMessage) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(i.InfoMessage)
	if err != nil {
		return nil, err
	}
	m := WebsocketMessage{
		Event: WireMessageTypeInfo,
		Data:  data,
	}
	return json.Marshal(m)
}
