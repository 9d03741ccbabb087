package messages

// SetValue is sent by a client to overwrite one shared key. The relay stores
// it last-write-wins and echoes it back to every client, the writer included.
type SetValue struct {
	Key     string
	Payload []byte
}

// ValueSync is broadcast by the relay for every accepted SetValue. Origin is
// the user id of the writing client; receivers use it to tell their own
// echoes from genuine remote changes.
type ValueSync struct {
	Key     string
	Origin  string
	Payload []byte
}

// RosterSync is broadcast whenever the set of connected users or any
// nickname changes.
type RosterSync struct {
	UserIds   []string
	Nicknames map[string]string
}

// SetNickname is sent by a client to change its display name.
type SetNickname struct {
	Nickname string
}

// Heartbeat is sent periodically by clients; the relay's sweep loop drops
// clients that stay silent past the liveness window.
type Heartbeat struct{}
