package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPayload(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	leaf := Event{
		Name: LeafStatusEvent, Pass: "p1", Campaign: "schannel",
		Leaf: "analysis/2j/enu/nominal/MCB/001", Stage: "analysis", Outcome: "submitted",
		Time: at,
	}
	assert.Equal(t, map[string]any{
		"pass":     "p1",
		"campaign": "schannel",
		"time":     "2024-03-01T12:00:00Z",
		"leaf":     "analysis/2j/enu/nominal/MCB/001",
		"stage":    "analysis",
		"outcome":  "submitted",
	}, leaf.Payload())

	done := Event{Name: PassFinishedEvent, Pass: "p1", Counts: map[string]int{"submitted": 4}, Reason: "aborted", Time: at}
	p := done.Payload()
	assert.Equal(t, map[string]any{"submitted": 4}, p["counts"])
	assert.Equal(t, "aborted", p["reason"])
	assert.NotContains(t, p, "leaf")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(context.Background(), Event{Name: LeafStatusEvent})
	assert.NoError(t, p.Close())
}

func TestDialSocketIOFailures(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())

	t.Run("bad url", func(t *testing.T) {
		_, err := DialSocketIO(ctx, SocketIOConfig{URL: "not a url"})
		require.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := DialSocketIO(ctx, SocketIOConfig{URL: "http://127.0.0.1:1/socket.io/", ConnectTimeout: 2 * time.Second})
		require.Error(t, err)
	})
}
