package tracker

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackedUUID = "069a79f444e94726a5befca90e38aaf5"

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.Default())
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func newTestClient(id string) *Client {
	return &Client{
		id:     id,
		send:   make(chan []byte, 8),
		logger: slog.Default(),
	}
}

func waitForTracked(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(h.TrackedPlayers()) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("tracked player count never reached %d", want)
}

func receiveMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	h := startTestHub(t)
	c1 := newTestClient("c1")
	h.Register(c1)
	h.Subscribe(c1, trackedUUID)
	waitForTracked(t, h, 1)

	h.BroadcastStatus(trackedUUID, map[string]bool{"online": true})

	msg := receiveMessage(t, c1)
	assert.Equal(t, MessageTypeStatusUpdate, msg.Type)
	assert.Equal(t, trackedUUID, msg.PlayerUUID)
}

func TestHubReplaysLastStatusToNewSubscriber(t *testing.T) {
	h := startTestHub(t)
	c1 := newTestClient("c1")
	h.Register(c1)
	h.Subscribe(c1, trackedUUID)
	waitForTracked(t, h, 1)

	h.BroadcastStatus(trackedUUID, map[string]bool{"online": true})
	receiveMessage(t, c1)

	// A subscriber arriving after the broadcast gets the last status without
	// waiting for the next one.
	c2 := newTestClient("c2")
	h.Register(c2)
	h.Subscribe(c2, trackedUUID)

	msg := receiveMessage(t, c2)
	assert.Equal(t, MessageTypeStatusUpdate, msg.Type)
	assert.Equal(t, trackedUUID, msg.PlayerUUID)
}

func TestHubForgetsStatusWhenUntracked(t *testing.T) {
	h := startTestHub(t)
	c1 := newTestClient("c1")
	h.Register(c1)
	h.Subscribe(c1, trackedUUID)
	waitForTracked(t, h, 1)

	h.BroadcastStatus(trackedUUID, map[string]bool{"online": true})
	receiveMessage(t, c1)

	// Dropping the last subscriber forgets the stored status; the next
	// subscriber must wait for a fresh broadcast.
	h.Unsubscribe(c1, trackedUUID)
	waitForTracked(t, h, 0)

	c2 := newTestClient("c2")
	h.Register(c2)
	h.Subscribe(c2, trackedUUID)
	waitForTracked(t, h, 1)

	select {
	case <-c2.send:
		t.Fatal("stale status replayed after the player became untracked")
	case <-time.After(100 * time.Millisecond):
	}
}
