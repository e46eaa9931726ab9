package chat

import (
	"context"
	"encoding/json"
	"testing"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule() *Module {
	m := NewModule(EngineConfig{Scheduler: &manualScheduler{}}, newMockLogger())
	m.SetTransport(&recordingTransport{})
	return m
}

func TestModule_Name(t *testing.T) {
	m := newTestModule()

	if name := m.Name(); name != "chat" {
		t.Errorf("Name() = %q, want 'chat'", name)
	}
}

func TestModule_EmitEvents(t *testing.T) {
	m := newTestModule()

	assert.Len(t, m.EmitEvents(), 4)
}

func TestModule_StartStopWithoutBus(t *testing.T) {
	m := newTestModule()
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	m.Dispatch(Connect{ConnID: "c1"})
	m.Dispatch(Announce{ConnID: "c1", Name: "Alice"})
	require.NoError(t, m.Stop(ctx))

	assert.Len(t, m.Engine().Users(), 1)
}

func TestModule_Health(t *testing.T) {
	m := newTestModule()
	m.Dispatch(Connect{ConnID: "c1"})
	m.Dispatch(Announce{ConnID: "c1", Name: "Alice"})

	health := m.Health(context.Background())

	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["users"])
	assert.Equal(t, 0, health.Details["private_rooms"])
	assert.Equal(t, 0, health.Details["typing"])
}

func TestModule_handleListUsers(t *testing.T) {
	m := newTestModule()
	m.Dispatch(Connect{ConnID: "c1"})
	m.Dispatch(Announce{ConnID: "c1", Name: "Alice"})
	m.Dispatch(Connect{ConnID: "c2"})

	data, err := m.handleListUsers(context.Background(), &types.Msg{})
	require.NoError(t, err)

	var resp ListUsersResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, []UserView{{ID: "c1", Name: "Alice"}}, resp.Users)
}

func TestModule_handleGetRoom(t *testing.T) {
	m := newTestModule()
	for _, id := range []string{"c1", "c2"} {
		m.Dispatch(Connect{ConnID: id})
		m.Dispatch(Announce{ConnID: id, Name: id})
	}
	m.Dispatch(StartPrivateChat{ConnID: "c2", TargetID: "c1"})
	m.Dispatch(SendMessage{ConnID: "c1", Message: domain.Message{Text: "secret", IsPrivate: true, RoomID: "c1-c2"}})

	tests := []struct {
		name      string
		roomID    string
		wantFound bool
		wantCount int
	}{
		{name: "existing room", roomID: "c1-c2", wantFound: true, wantCount: 1},
		{name: "unknown room", roomID: "c1-c9", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqData, _ := json.Marshal(GetRoomRequest{RoomID: tt.roomID})
			data, err := m.handleGetRoom(context.Background(), &types.Msg{Data: reqData})
			require.NoError(t, err)

			var resp GetRoomResponse
			require.NoError(t, json.Unmarshal(data, &resp))
			assert.Equal(t, tt.wantFound, resp.Found)
			assert.Equal(t, tt.wantCount, resp.MessageCount)
			assert.NotContains(t, string(data), "secret")
		})
	}
}

func TestModule_handleGetRoom_InvalidJSON(t *testing.T) {
	m := newTestModule()

	_, err := m.handleGetRoom(context.Background(), &types.Msg{Data: []byte("invalid json")})
	assert.Error(t, err)
}

func TestModule_PublishUnsupported(t *testing.T) {
	m := newTestModule()

	assert.Error(t, m.Publish("not an event"))
}
