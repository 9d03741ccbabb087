// Package relay abstracts the shared-state transport: a key/value store
// replicated to every connected peer with last-write-wins semantics and no
// server-side logic. Two implementations exist: the in-process Hub for
// local sessions and tests, and the websocket client backed by the
// reference relay server.
package relay

import "time"

// Update is one replicated key/value delivery. Origin is the user id of the
// writing client; every write is echoed back to its writer, and consumers
// reconcile by value rather than assuming any cross-peer ordering.
type Update struct {
	Key     string
	Origin  string
	Payload []byte
}

// ChatMessage is one delivered chat line. SentAt is stamped by the relay so
// all peers agree on ordering.
type ChatMessage struct {
	SenderId string
	Nickname string
	Text     string
	SentAt   time.Time
}

// Client is the session layer's view of the relay. Set is fire-and-forget;
// subscription callbacks arrive on transport goroutines, not on the frame
// loop, so handlers must be safe for concurrent use.
type Client interface {
	// Id returns the user id the relay assigned to this client.
	Id() string
	// Nickname returns this client's current display name.
	Nickname() string
	// SetNickname changes the display name, replicated via the roster.
	SetNickname(nickname string)

	// Set overwrites one shared key for every peer, last write wins.
	Set(key string, payload []byte)
	// Get returns the locally known value of a key.
	Get(key string) ([]byte, bool)
	// Subscribe registers a callback for every delivered update, echoes
	// included. The returned func detaches it.
	Subscribe(fn func(Update)) (cancel func())

	// Roster returns the connected user ids in join order.
	Roster() []string
	// Nicknames returns the display name of every connected user.
	Nicknames() map[string]string
	// OnRoster registers a callback for roster and nickname changes.
	OnRoster(fn func(userIds []string, nicknames map[string]string)) (cancel func())

	// SendChat posts a chat line to the session.
	SendChat(text string)
	// OnChat registers a callback for delivered chat lines.
	OnChat(fn func(ChatMessage)) (cancel func())

	// Close detaches from the relay.
	Close() error
}
