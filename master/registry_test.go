package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	reg := NewRegistry(time.Minute, zerolog.Nop())
	defer reg.Stop()

	id := reg.Register(SessionInfo{Name: "alpha", Address: "host:7373", MaxPlayers: 16})
	require.NotEmpty(t, id)

	sessions := reg.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, "alpha", sessions[0].Name)
}

func TestRegistry_Heartbeat(t *testing.T) {
	reg := NewRegistry(time.Minute, zerolog.Nop())
	defer reg.Stop()

	id := reg.Register(SessionInfo{Name: "alpha", Address: "host:7373"})

	assert.True(t, reg.Heartbeat(id, 5))
	sessions := reg.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, 5, sessions[0].Players)

	assert.False(t, reg.Heartbeat("unknown", 1))
}

func TestRegistry_UniqueIds(t *testing.T) {
	reg := NewRegistry(time.Minute, zerolog.Nop())
	defer reg.Stop()

	a := reg.Register(SessionInfo{Name: "a", Address: "x"})
	b := reg.Register(SessionInfo{Name: "b", Address: "y"})

	assert.NotEqual(t, a, b)
	assert.Len(t, reg.List(), 2)
}
