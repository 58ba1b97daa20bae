package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/presence"
	"github.com/tcriess/gift-circle/types"
	"github.com/tcriess/gift-circle/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		HistoryConfig:     config.HistoryConfig{HistorySize: 50},
		PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: ":memory:"},
		RoomConfig:        config.RoomConfig{CodeLength: 6, TTLHours: 72, MaxCodeAttempts: 5},
	}
	persister, err := persistence.NewPersister(cfg)
	require.NoError(t, err)
	require.NotNil(t, persister)
	t.Cleanup(func() { _ = persister.Close() })

	hubs := ws.NewHubSet(cfg, persister)
	tracker := presence.NewTracker(hubs)
	eng := engine.New(persister, tracker, cfg)
	eng.SetSink(hubs)

	srv := httptest.NewServer(NewServer(eng, hubs, cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, userId string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if userId != "" {
		req.Header.Set("X-User-Id", userId)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createTestRoom(t *testing.T, srv *httptest.Server) memberResponse {
	t.Helper()
	created := memberResponse{}
	status := doJSON(t, srv, http.MethodPost, "/api/rooms", "host-user", createRoomRequest{Title: "Spring circle", Nick: "Hilda"}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, created.Snapshot)
	return created
}

func TestCreateAndJoinRoom(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv)

	assert.Equal(t, types.RoleHost, created.Member.Role)
	assert.Equal(t, types.RoundWaiting, created.Snapshot.Room.CurrentRound)
	require.NotEmpty(t, created.Snapshot.Room.Code)

	joined := memberResponse{}
	status := doJSON(t, srv, http.MethodPost, "/api/rooms/join", "user-a", joinRoomRequest{Code: created.Snapshot.Room.Code, Nick: "Ann"}, &joined)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, types.RoleParticipant, joined.Member.Role)
	assert.Len(t, joined.Snapshot.Members, 2)

	// empty nickname gets a generated one
	guest := memberResponse{}
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/join", "user-b", joinRoomRequest{Code: created.Snapshot.Room.Code}, &guest)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, guest.Member.Nick, "(guest)")
}

func TestIdentityRequired(t *testing.T) {
	srv := newTestServer(t)
	status := doJSON(t, srv, http.MethodPost, "/api/rooms", "", createRoomRequest{Title: "Circle"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv)
	roomId := created.Snapshot.Room.Id

	// validation -> 400
	status := doJSON(t, srv, http.MethodPost, "/api/rooms", "host-user", createRoomRequest{Title: "  ", Nick: "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// conflict (wrong round) -> 409
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/offers", "host-user", itemRequest{Title: "Ladder"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// authorization -> 403
	doJSON(t, srv, http.MethodPost, "/api/rooms/join", "user-a", joinRoomRequest{Code: created.Snapshot.Room.Code, Nick: "Ann"}, nil)
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "user-a", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// not found -> 404
	status = doJSON(t, srv, http.MethodGet, "/api/rooms/no-such-room", "host-user", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOfferClaimFlow(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv)
	roomId := created.Snapshot.Room.Id
	code := created.Snapshot.Room.Code

	joined := memberResponse{}
	status := doJSON(t, srv, http.MethodPost, "/api/rooms/join", "user-a", joinRoomRequest{Code: code, Nick: "Ann"}, &joined)
	require.Equal(t, http.StatusOK, status)

	// WAITING -> OFFERS
	snapshot := engine.Snapshot{}
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "host-user", nil, &snapshot)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, types.RoundOffers, snapshot.Room.CurrentRound)

	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/offers", "host-user", itemRequest{Title: "Ladder", Details: "3m"}, &snapshot)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, snapshot.Offers, 1)
	offerId := snapshot.Offers[0].Id

	// OFFERS -> DESIRES -> CONNECTIONS
	doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "host-user", nil, nil)
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "host-user", nil, &snapshot)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, types.RoundConnections, snapshot.Room.CurrentRound)

	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/claims", "user-a", claimRequest{OfferId: offerId, Note: "weekends"}, &snapshot)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, snapshot.Claims, 1)
	claimId := snapshot.Claims[0].Id
	assert.Equal(t, types.ClaimStatusPending, snapshot.Claims[0].Status)

	// CONNECTIONS -> DECISIONS, then the offer author accepts
	doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "host-user", nil, nil)
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/claims/"+claimId+"/decide", "host-user", decideRequest{Decision: types.ClaimStatusAccepted}, &snapshot)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, types.ClaimStatusAccepted, snapshot.Claims[0].Status)

	// deciding again is a conflict
	status = doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/claims/"+claimId+"/decide", "host-user", decideRequest{Decision: types.ClaimStatusDeclined}, nil)
	assert.Equal(t, http.StatusConflict, status)

	var summary []engine.MemberSummary
	status = doJSON(t, srv, http.MethodGet, "/api/rooms/"+roomId+"/summary", "user-a", nil, &summary)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, summary, 2)
}

func TestUpdateAndDeleteOffer(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv)
	roomId := created.Snapshot.Room.Id

	snapshot := engine.Snapshot{}
	doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/advance", "host-user", nil, nil)
	status := doJSON(t, srv, http.MethodPost, "/api/rooms/"+roomId+"/offers", "host-user", itemRequest{Title: "Ladder"}, &snapshot)
	require.Equal(t, http.StatusCreated, status)
	offerId := snapshot.Offers[0].Id

	newTitle := "Taller ladder"
	status = doJSON(t, srv, http.MethodPatch, "/api/rooms/"+roomId+"/offers/"+offerId, "host-user", itemPatchRequest{Title: &newTitle}, &snapshot)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, newTitle, snapshot.Offers[0].Title)

	status = doJSON(t, srv, http.MethodDelete, "/api/rooms/"+roomId+"/offers/"+offerId, "host-user", nil, &snapshot)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, snapshot.Offers)
}

func TestDeleteRoomEndpoint(t *testing.T) {
	srv := newTestServer(t)
	created := createTestRoom(t, srv)
	roomId := created.Snapshot.Room.Id

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/rooms/"+roomId, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "host-user")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	status := doJSON(t, srv, http.MethodGet, "/api/rooms/"+roomId, "host-user", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
