package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/models"
)

func TestRedisRelayFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	newInstance := func() (*Hub, *RedisRelay) {
		hub := NewHub(nil, nil)
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		relay := NewRedisRelayFromClient(rdb, "test-events", hub, nil)
		require.NoError(t, relay.Start(ctx))
		t.Cleanup(func() { _ = relay.Close() })
		return hub, relay
	}

	hubA, relayA := newInstance()
	hubB, _ := newInstance()

	onA := hubA.Register()
	onB := hubB.Register()
	other := hubB.Register()
	require.NoError(t, hubA.Authenticate(onA.ID, "u1"))
	require.NoError(t, hubB.Authenticate(onB.ID, "u1"))
	require.NoError(t, hubB.Authenticate(other.ID, "u2"))

	relayA.Publish(ctx, "u1", models.DocumentEvent(&models.Document{ID: "d1", UserID: "u1"}))

	assert.Equal(t, "d1", recvEvent(t, onA, 2*time.Second).Document.ID)
	assert.Equal(t, "d1", recvEvent(t, onB, 2*time.Second).Document.ID)
	assertNoEvent(t, other)
}

func TestRedisRelayFallsBackToLocalDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	hub := NewHub(nil, nil)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	relay := NewRedisRelayFromClient(rdb, "", hub, nil)
	t.Cleanup(func() { _ = relay.Close() })

	c := hub.Register()
	require.NoError(t, hub.Authenticate(c.ID, "u1"))
	mr.Close()

	relay.Publish(context.Background(), "u1", models.DocumentEvent(&models.Document{ID: "d2"}))
	assert.Equal(t, "d2", recvEvent(t, c, time.Second).Document.ID)
}
