package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
}

func (c *recordingClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false
	}
	c.messages = append(c.messages, message)
	return true
}

func (c *recordingClient) Close() {}

func TestPublish_OnlyReachesWorkspaceSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, b := &recordingClient{}, &recordingClient{}
	hub.Register("ws-1", a)
	hub.Register("ws-2", b)

	hub.Publish(Event{Type: "task.created", WorkspaceID: "ws-1", Entity: "task", EntityID: "t-1", ActorID: "u-1"})

	require.Len(t, a.messages, 1)
	require.Empty(t, b.messages)

	var evt Event
	require.NoError(t, json.Unmarshal(a.messages[0], &evt))
	require.Equal(t, "task.created", evt.Type)
	require.Equal(t, 1, evt.Version)
}

func TestUnregister_DropsEmptyWorkspace(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &recordingClient{}
	hub.Register("ws-1", c)
	require.Equal(t, 1, hub.Subscribers("ws-1"))

	hub.Unregister("ws-1", c)
	require.Zero(t, hub.Subscribers("ws-1"))

	hub.Publish(Event{Type: "task.deleted", WorkspaceID: "ws-1"})
	require.Empty(t, c.messages)
}

func TestPublish_FailingClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	bad, good := &recordingClient{fail: true}, &recordingClient{}
	hub.Register("ws-1", bad)
	hub.Register("ws-1", good)

	hub.Publish(Event{Type: "label.created", WorkspaceID: "ws-1"})
	require.Len(t, good.messages, 1)
}
