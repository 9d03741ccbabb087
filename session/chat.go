package session

import (
	"sync"

	"github.com/automoto/stardrift-mp/relay"
)

const defaultChatLimit = 100

// Chat keeps a bounded log of session chat messages and sends local ones
// through the relay. The local message shows up when the relay broadcasts it
// back, so everyone sees the same ordering.
type Chat struct {
	mu     sync.Mutex
	client relay.Client
	limit  int
	msgs   []relay.ChatMessage
}

func NewChat(client relay.Client, limit int) *Chat {
	if limit <= 0 {
		limit = defaultChatLimit
	}
	return &Chat{client: client, limit: limit}
}

// Send publishes a chat line. Empty lines are dropped.
func (c *Chat) Send(text string) {
	if text == "" {
		return
	}
	c.client.SendChat(text)
}

func (c *Chat) append(msg relay.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	if len(c.msgs) > c.limit {
		c.msgs = c.msgs[len(c.msgs)-c.limit:]
	}
}

// Messages returns the retained log, oldest first.
func (c *Chat) Messages() []relay.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]relay.ChatMessage(nil), c.msgs...)
}

// Len reports the number of retained messages.
func (c *Chat) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}
