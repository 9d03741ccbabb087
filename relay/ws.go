package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/automoto/stardrift-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoined
	StateError
)

var _ Client = (*WsClient)(nil)

// WsClient manages a WebSocket connection to a relay server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type WsClient struct {
	mu sync.RWMutex

	log zerolog.Logger

	state       ClientState
	lastError   error
	userId      string
	sessionName string
	sweepRate   int
	nickname    string
	conn        *websocket.Conn

	values       map[string][]byte
	rosterIds    []string
	nicknames    map[string]string
	nextSub      int
	updateSubs   map[int]func(Update)
	rosterSubs   map[int]func([]string, map[string]string)
	chatSubs     map[int]func(ChatMessage)
	joinedCh     chan struct{}
	joinedClosed bool
	done         chan struct{}
	doneClosed   bool
}

func NewWsClient(log zerolog.Logger) *WsClient {
	return &WsClient{
		log:        log.With().Str("component", "relay-client").Logger(),
		state:      StateDisconnected,
		values:     make(map[string][]byte),
		nicknames:  make(map[string]string),
		updateSubs: make(map[int]func(Update)),
		rosterSubs: make(map[int]func([]string, map[string]string)),
		chatSubs:   make(map[int]func(ChatMessage)),
		joinedCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Dial connects, completes the join handshake and blocks until the session is
// joined, the context expires or the handshake fails.
func Dial(ctx context.Context, address, version, nickname string, log zerolog.Logger) (*WsClient, error) {
	c := NewWsClient(log)
	c.Connect(address, version, nickname)

	select {
	case <-c.joinedCh:
		return c, nil
	case <-ctx.Done():
		_ = c.Close()
		return nil, ctx.Err()
	case <-time.After(10 * time.Second):
		_ = c.Close()
		return nil, fmt.Errorf("join timed out")
	}
}

// Connect dials the relay in a background goroutine and initiates the join
// handshake. State transitions are observable through State and joined
// completion through Dial.
func (c *WsClient) Connect(address, version, nickname string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.nickname = nickname
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("address", address).Msg("connected to relay")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		payload, err := router.Serialize(messages.JoinRequest{
			Version:  version,
			Nickname: nickname,
		})
		if err != nil {
			c.setError(fmt.Errorf("failed to serialize join request: %w", err))
			return
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn != nil {
			if err := conn.Write(context.Background(), websocket.MessageBinary, payload); err != nil {
				c.setError(fmt.Errorf("failed to send join request: %w", err))
			}
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		c.log.Info().
			Str("userId", msg.UserId).
			Str("session", msg.SessionName).
			Int("sweepRate", msg.SweepRate).
			Msg("join accepted")

		c.mu.Lock()
		c.userId = msg.UserId
		c.sessionName = msg.SessionName
		c.sweepRate = msg.SweepRate
		for _, kv := range msg.Values {
			c.values[kv.Key] = kv.Payload
		}
		c.rosterIds = append([]string(nil), msg.UserIds...)
		c.nicknames = make(map[string]string, len(msg.Nicknames))
		for id, nick := range msg.Nicknames {
			c.nicknames[id] = nick
		}
		c.state = StateJoined
		if !c.joinedClosed {
			c.joinedClosed = true
			close(c.joinedCh)
		}
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		c.log.Warn().Str("reason", msg.Reason).Msg("join rejected")
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, msg messages.ValueSync) {
		c.mu.Lock()
		c.values[msg.Key] = msg.Payload
		fns := subscriberList(c.updateSubs)
		c.mu.Unlock()

		u := Update{Key: msg.Key, Origin: msg.Origin, Payload: msg.Payload}
		for _, fn := range fns {
			fn(u)
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.RosterSync) {
		c.mu.Lock()
		c.rosterIds = append([]string(nil), msg.UserIds...)
		c.nicknames = make(map[string]string, len(msg.Nicknames))
		for id, nick := range msg.Nicknames {
			c.nicknames[id] = nick
		}
		ids := append([]string(nil), c.rosterIds...)
		nicknames := copyNicknames(c.nicknames)
		fns := subscriberList(c.rosterSubs)
		c.mu.Unlock()

		for _, fn := range fns {
			fn(ids, nicknames)
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.ChatSync) {
		c.mu.Lock()
		fns := subscriberList(c.chatSubs)
		c.mu.Unlock()

		chat := ChatMessage{
			SenderId: msg.SenderId,
			Nickname: msg.Nickname,
			Text:     msg.Text,
			SentAt:   time.UnixMilli(msg.SentAt),
		}
		for _, fn := range fns {
			fn(chat)
		}
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.log.Warn().Err(err).Msg("disconnected from relay")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Error().Err(err).Msg("relay transport error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()

	go c.heartbeatLoop()
}

func (c *WsClient) heartbeatLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(messages.Heartbeat{}); err != nil {
				c.log.Debug().Err(err).Msg("heartbeat send failed")
			}
		}
	}
}

func (c *WsClient) send(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

// Id implements Client.
func (c *WsClient) Id() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userId
}

// SessionName reports the name announced by the relay during the handshake.
func (c *WsClient) SessionName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionName
}

// SweepRate reports the relay's stale-connection sweep rate in seconds.
func (c *WsClient) SweepRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sweepRate
}

func (c *WsClient) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *WsClient) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Nickname implements Client.
func (c *WsClient) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// SetNickname implements Client.
func (c *WsClient) SetNickname(nickname string) {
	c.mu.Lock()
	c.nickname = nickname
	c.mu.Unlock()
	if err := c.send(messages.SetNickname{Nickname: nickname}); err != nil {
		c.log.Warn().Err(err).Msg("nickname update failed")
	}
}

// Set implements Client. The write is applied when the relay echoes it back.
func (c *WsClient) Set(key string, payload []byte) {
	if err := c.send(messages.SetValue{Key: key, Payload: payload}); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("value write failed")
	}
}

// Get implements Client. It reads the local replica of the shared state.
func (c *WsClient) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.values[key]
	return payload, ok
}

// Subscribe implements Client.
func (c *WsClient) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
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
func (c *WsClient) Roster() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.rosterIds...)
}

// Nicknames implements Client.
func (c *WsClient) Nicknames() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyNicknames(c.nicknames)
}

// OnRoster implements Client.
func (c *WsClient) OnRoster(fn func([]string, map[string]string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
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
func (c *WsClient) SendChat(text string) {
	if err := c.send(messages.ChatSend{Text: text}); err != nil {
		c.log.Warn().Err(err).Msg("chat send failed")
	}
}

// OnChat implements Client.
func (c *WsClient) OnChat(fn func(ChatMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.chatSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.chatSubs, id)
	}
}

// Close implements Client. It tears down the connection and resets the
// process-wide router registrations.
func (c *WsClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	if !c.doneClosed {
		c.doneClosed = true
		close(c.done)
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
	return nil
}

func (c *WsClient) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

func subscriberList[T any](subs map[int]T) []T {
	out := make([]T, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func copyNicknames(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for id, nick := range src {
		out[id] = nick
	}
	return out
}
