package api

import (
	"encoding/json"
	"net/http"

	"github.com/folkengine/goname"
	"github.com/gorilla/mux"
	"github.com/tcriess/gift-circle/auth"
	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/types"
)

type createRoomRequest struct {
	Title string `json:"title"`
	Nick  string `json:"nick"`
}

type joinRoomRequest struct {
	Code string `json:"code"`
	Nick string `json:"nick"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type hostRequest struct {
	UserId string `json:"user_id"`
}

type itemRequest struct {
	Title   string `json:"title"`
	Details string `json:"details"`
}

type itemPatchRequest struct {
	Title   *string `json:"title"`
	Details *string `json:"details"`
	Status  *string `json:"status"`
}

type claimRequest struct {
	OfferId  string `json:"offer_id"`
	DesireId string `json:"desire_id"`
	Note     string `json:"note"`
}

type decideRequest struct {
	Decision string `json:"decision"`
}

// memberResponse is returned on create and join, the caller needs its
// own membership id before it can interpret the snapshot.
type memberResponse struct {
	Member   *types.Member    `json:"member"`
	Snapshot *engine.Snapshot `json:"snapshot"`
}

func (s *Server) userId(r *http.Request) string {
	return auth.ResolveUserId(r, s.cfg)
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// guestNick fills in a generated nickname, clients may join without
// choosing one.
func guestNick(nick string) string {
	if nick != "" {
		return nick
	}
	return goname.New(goname.FantasyMap).FirstLast() + " (guest)"
}

// writeSnapshot responds with the room's canonical state. Every
// successful mutation ends here, the response doubles as the refetch
// the broadcast event would have triggered.
func (s *Server) writeSnapshot(w http.ResponseWriter, roomId string, status int) {
	snapshot, err := s.engine.Snapshot(roomId)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, snapshot)
}

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	req := createRoomRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	room, member, err := s.engine.CreateRoom(userId, guestNick(req.Nick), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := s.engine.Snapshot(room.Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{Member: member, Snapshot: snapshot})
}

func (s *Server) joinRoomHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	req := joinRoomRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	room, member, err := s.engine.JoinRoom(req.Code, userId, guestNick(req.Nick))
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := s.engine.Snapshot(room.Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: member, Snapshot: snapshot})
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	s.writeSnapshot(w, mux.Vars(r)["room"], http.StatusOK)
}

func (s *Server) updateTitleHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	req := titleRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.UpdateTitle(roomId, userId, req.Title); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusOK)
}

func (s *Server) deleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	if err := s.engine.DeleteRoom(roomId, userId); err != nil {
		writeError(w, err)
		return
	}
	s.hubs.Remove(roomId)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) advanceRoundHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	if _, err := s.engine.AdvanceRound(roomId, userId); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusOK)
}

func (s *Server) transferHostHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	req := hostRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.TransferHost(roomId, userId, req.UserId); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusOK)
}

func (s *Server) leaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	if err := s.engine.LeaveRoom(roomId, userId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(mux.Vars(r)["room"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) createOfferHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	req := itemRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.CreateOffer(roomId, userId, req.Title, req.Details); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusCreated)
}

func (s *Server) updateOfferHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	req := itemPatchRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	update := engine.ItemUpdate{Title: req.Title, Details: req.Details, Status: req.Status}
	if _, err := s.engine.UpdateOffer(vars["room"], userId, vars["offer"], update); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}

func (s *Server) deleteOfferHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	if err := s.engine.DeleteOffer(vars["room"], userId, vars["offer"]); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}

func (s *Server) createDesireHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	req := itemRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.CreateDesire(roomId, userId, req.Title, req.Details); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusCreated)
}

func (s *Server) updateDesireHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	req := itemPatchRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	update := engine.ItemUpdate{Title: req.Title, Details: req.Details, Status: req.Status}
	if _, err := s.engine.UpdateDesire(vars["room"], userId, vars["desire"], update); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}

func (s *Server) deleteDesireHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	if err := s.engine.DeleteDesire(vars["room"], userId, vars["desire"]); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}

func (s *Server) createClaimHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	roomId := mux.Vars(r)["room"]
	req := claimRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.CreateClaim(roomId, userId, req.OfferId, req.DesireId, req.Note); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, roomId, http.StatusCreated)
}

func (s *Server) withdrawClaimHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	if _, err := s.engine.WithdrawClaim(vars["room"], userId, vars["claim"]); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}

func (s *Server) decideClaimHandler(w http.ResponseWriter, r *http.Request) {
	userId := s.userId(r)
	if userId == "" {
		writeUnauthorized(w)
		return
	}
	vars := mux.Vars(r)
	req := decideRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.engine.DecideClaim(vars["room"], userId, vars["claim"], req.Decision); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, vars["room"], http.StatusOK)
}
