package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub is an in-process relay: every accepted write is stored last-write-wins
// and replayed to all attached clients, the writer included (the echo).
// Delivery is synchronous by default; SetBuffered switches to a manual queue
// so tests can interleave concurrent writes before any peer observes them.
type Hub struct {
	mu       sync.Mutex
	values   map[string]Update
	clients  []*HubClient
	buffered bool
	queue    []func()
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{values: make(map[string]Update)}
}

// SetBuffered toggles manual delivery. While buffered, deliveries queue up
// until Flush runs them in write order — modelling relay latency.
func (h *Hub) SetBuffered(buffered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffered = buffered
}

// Flush delivers all queued events in order. Events generated during the
// flush are appended behind the existing queue.
func (h *Hub) Flush() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		next := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()
		next()
	}
}

// Join attaches a new client with a generated user id.
func (h *Hub) Join(nickname string) *HubClient {
	return h.JoinAs(uuid.NewString(), nickname)
}

// JoinAs attaches a new client under a caller-chosen user id; tests use it
// for stable identities.
func (h *Hub) JoinAs(userId, nickname string) *HubClient {
	c := &HubClient{
		hub:      h,
		id:       userId,
		nickname: nickname,
	}
	h.mu.Lock()
	h.clients = append(h.clients, c)
	h.mu.Unlock()
	h.broadcastRoster()
	return c
}

func (h *Hub) dispatch(fn func()) {
	h.mu.Lock()
	if h.buffered {
		h.queue = append(h.queue, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn()
}

func (h *Hub) publish(origin, key string, payload []byte) {
	u := Update{Key: key, Origin: origin, Payload: payload}

	h.mu.Lock()
	h.values[key] = u
	targets := make([]*HubClient, len(h.clients))
	copy(targets, h.clients)
	h.mu.Unlock()

	h.dispatch(func() {
		for _, c := range targets {
			c.deliverUpdate(u)
		}
	})
}

func (h *Hub) broadcastRoster() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.clients))
	nicknames := make(map[string]string, len(h.clients))
	for _, c := range h.clients {
		ids = append(ids, c.id)
		nicknames[c.id] = c.currentNickname()
	}
	targets := make([]*HubClient, len(h.clients))
	copy(targets, h.clients)
	h.mu.Unlock()

	h.dispatch(func() {
		for _, c := range targets {
			c.deliverRoster(ids, nicknames)
		}
	})
}

func (h *Hub) broadcastChat(msg ChatMessage) {
	h.mu.Lock()
	targets := make([]*HubClient, len(h.clients))
	copy(targets, h.clients)
	h.mu.Unlock()

	h.dispatch(func() {
		for _, c := range targets {
			c.deliverChat(msg)
		}
	})
}

func (h *Hub) leave(client *HubClient) {
	h.mu.Lock()
	for i, c := range h.clients {
		if c == client {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	h.broadcastRoster()
}

func (h *Hub) roster() ([]string, map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.clients))
	nicknames := make(map[string]string, len(h.clients))
	for _, c := range h.clients {
		ids = append(ids, c.id)
		nicknames[c.id] = c.currentNickname()
	}
	return ids, nicknames
}

var _ Client = (*HubClient)(nil)

// HubClient implements Client against an in-process Hub.
type HubClient struct {
	hub *Hub
	id  string

	mu         sync.Mutex
	nickname   string
	closed     bool
	nextSub    int
	updateSubs map[int]func(Update)
	rosterSubs map[int]func([]string, map[string]string)
	chatSubs   map[int]func(ChatMessage)
}

// Id implements Client.
func (c *HubClient) Id() string { return c.id }

// Nickname implements Client.
func (c *HubClient) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

func (c *HubClient) currentNickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// SetNickname implements Client.
func (c *HubClient) SetNickname(nickname string) {
	c.mu.Lock()
	c.nickname = nickname
	c.mu.Unlock()
	c.hub.broadcastRoster()
}

// Set implements Client.
func (c *HubClient) Set(key string, payload []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.hub.publish(c.id, key, payload)
}

// Get implements Client.
func (c *HubClient) Get(key string) ([]byte, bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	u, ok := c.hub.values[key]
	if !ok {
		return nil, false
	}
	return u.Payload, true
}

// Subscribe implements Client.
func (c *HubClient) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateSubs == nil {
		c.updateSubs = make(map[int]func(Update))
	}
	id := c.nextSub
	c.nextSub++
	c.updateSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.updateSubs, id)
	}
}

// Roster implements Client.
func (c *HubClient) Roster() []string {
	ids, _ := c.hub.roster()
	return ids
}

// Nicknames implements Client.
func (c *HubClient) Nicknames() map[string]string {
	_, nicknames := c.hub.roster()
	return nicknames
}

// OnRoster implements Client.
func (c *HubClient) OnRoster(fn func([]string, map[string]string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rosterSubs == nil {
		c.rosterSubs = make(map[int]func([]string, map[string]string))
	}
	id := c.nextSub
	c.nextSub++
	c.rosterSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.rosterSubs, id)
	}
}

// SendChat implements Client.
func (c *HubClient) SendChat(text string) {
	c.hub.broadcastChat(ChatMessage{
		SenderId: c.id,
		Nickname: c.Nickname(),
		Text:     text,
		SentAt:   time.Now(),
	})
}

// OnChat implements Client.
func (c *HubClient) OnChat(fn func(ChatMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatSubs == nil {
		c.chatSubs = make(map[int]func(ChatMessage))
	}
	id := c.nextSub
	c.nextSub++
	c.chatSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.chatSubs, id)
	}
}

// Close implements Client. Closing twice is a no-op.
func (c *HubClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.updateSubs = nil
	c.rosterSubs = nil
	c.chatSubs = nil
	c.mu.Unlock()
	c.hub.leave(c)
	return nil
}

func (c *HubClient) deliverUpdate(u Update) {
	c.mu.Lock()
	fns := make([]func(Update), 0, len(c.updateSubs))
	for _, fn := range c.updateSubs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (c *HubClient) deliverRoster(ids []string, nicknames map[string]string) {
	c.mu.Lock()
	fns := make([]func([]string, map[string]string), 0, len(c.rosterSubs))
	for _, fn := range c.rosterSubs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ids, nicknames)
	}
}

func (c *HubClient) deliverChat(msg ChatMessage) {
	c.mu.Lock()
	fns := make([]func(ChatMessage), 0, len(c.chatSubs))
	for _, fn := range c.chatSubs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}
