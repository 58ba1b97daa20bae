package engine

import "github.com/tcriess/gift-circle/types"

// MemberConnected is called by the transport layer when a membership's
// socket joins the room channel.
func (e *Engine) MemberConnected(roomId, memberId string) {
	e.tracker.TrackActive(roomId, memberId)
	e.publish(roomId, types.NewEvent(roomId, memberId, "", types.EventMemberConnected, presenceTags(memberId, "connected")))
}

// MemberDisconnected is called by the transport layer when the socket
// goes away. The membership stops being active unless a domain event
// tracks it again.
func (e *Engine) MemberDisconnected(roomId, memberId string) {
	e.tracker.ClearActive(roomId, memberId)
	e.publish(roomId, types.NewEvent(roomId, memberId, "", types.EventMemberDisconnected, presenceTags(memberId, "disconnected")))
}
