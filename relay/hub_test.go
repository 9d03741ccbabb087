package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SetEchoesToWriter(t *testing.T) {
	hub := NewHub()
	c := hub.JoinAs("a", "Alice")

	var got []Update
	c.Subscribe(func(u Update) { got = append(got, u) })

	c.Set("k", []byte("v"))

	require.Len(t, got, 1, "the writer must receive its own write back")
	assert.Equal(t, "a", got[0].Origin)
	assert.Equal(t, []byte("v"), got[0].Payload)
}

func TestHub_LastWriteWins(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAs("a", "Alice")
	b := hub.JoinAs("b", "Bob")

	a.Set("k", []byte("from-a"))
	b.Set("k", []byte("from-b"))

	payload, ok := a.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("from-b"), payload)
}

func TestHub_BufferedDeliveryOrder(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAs("a", "Alice")
	b := hub.JoinAs("b", "Bob")

	var order []string
	b.Subscribe(func(u Update) { order = append(order, u.Origin) })

	hub.SetBuffered(true)
	a.Set("k", []byte("1"))
	b.Set("k", []byte("2"))
	assert.Empty(t, order, "buffered writes must not deliver before Flush")

	hub.Flush()
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestHub_RosterEvents(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAs("a", "Alice")

	var lastIds []string
	var lastNicks map[string]string
	a.OnRoster(func(ids []string, nicks map[string]string) {
		lastIds = ids
		lastNicks = nicks
	})

	b := hub.JoinAs("b", "Bob")
	assert.Equal(t, []string{"a", "b"}, lastIds)
	assert.Equal(t, "Bob", lastNicks["b"])

	b.SetNickname("Bobby")
	assert.Equal(t, "Bobby", lastNicks["b"])

	require.NoError(t, b.Close())
	assert.Equal(t, []string{"a"}, lastIds)
}

func TestHub_Chat(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAs("a", "Alice")
	b := hub.JoinAs("b", "Bob")

	var got []ChatMessage
	b.OnChat(func(msg ChatMessage) { got = append(got, msg) })

	a.SendChat("hello")

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].SenderId)
	assert.Equal(t, "Alice", got[0].Nickname)
	assert.Equal(t, "hello", got[0].Text)
	assert.False(t, got[0].SentAt.IsZero())
}

func TestHub_SubscribeCancel(t *testing.T) {
	hub := NewHub()
	c := hub.JoinAs("a", "Alice")

	count := 0
	cancel := c.Subscribe(func(Update) { count++ })

	c.Set("k", []byte("1"))
	cancel()
	c.Set("k", []byte("2"))

	assert.Equal(t, 1, count)
}

func TestHub_ClosedClientDropsWrites(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAs("a", "Alice")
	b := hub.JoinAs("b", "Bob")
	require.NoError(t, a.Close())

	a.Set("k", []byte("v"))

	_, ok := b.Get("k")
	assert.False(t, ok)
}
