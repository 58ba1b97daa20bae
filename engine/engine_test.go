package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/presence"
	"github.com/tcriess/gift-circle/types"
)

func testConfig() *config.Config {
	return &config.Config{
		HistoryConfig:     config.HistoryConfig{HistorySize: 50},
		PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: ":memory:"},
		RoomConfig:        config.RoomConfig{CodeLength: 6, TTLHours: 72, MaxCodeAttempts: 5},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := testConfig()
	persister, err := persistence.NewPersister(cfg)
	require.NoError(t, err)
	require.NotNil(t, persister)
	t.Cleanup(func() { _ = persister.Close() })
	return New(persister, presence.NewTracker(nil), cfg)
}

// newSqliteEngine runs the engine against the gorm backend, some rules
// depend on SQL behavior (primary key lookups, unique indexes).
func newSqliteEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.PersistenceConfig = config.PersistenceConfig{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "gift-circle.db")}
	persister, err := persistence.NewPersister(cfg)
	require.NoError(t, err)
	require.NotNil(t, persister)
	t.Cleanup(func() { _ = persister.Close() })
	return New(persister, presence.NewTracker(nil), cfg)
}

// setupRoom creates a room with a host and n additional participants.
func setupRoom(t *testing.T, e *Engine, n int) (*types.Room, []*types.Member) {
	t.Helper()
	room, host, err := e.CreateRoom("host-user", "Hilda", "Spring circle")
	require.NoError(t, err)
	members := []*types.Member{host}
	for i := 0; i < n; i++ {
		userId := "user-" + string(rune('a'+i))
		_, member, err := e.JoinRoom(room.Code, userId, "Guest "+string(rune('A'+i)))
		require.NoError(t, err)
		members = append(members, member)
	}
	return room, members
}

// advanceTo walks the room forward to the wanted round as the host.
func advanceTo(t *testing.T, e *Engine, room *types.Room, want types.Round) {
	t.Helper()
	for i := 0; i < len(types.RoundSequence); i++ {
		current, err := e.room(room.Id)
		require.NoError(t, err)
		if current.CurrentRound == want {
			room.CurrentRound = want
			return
		}
		_, err = e.AdvanceRound(room.Id, room.HostId)
		require.NoError(t, err)
	}
	t.Fatalf("could not reach round %s", want)
}
