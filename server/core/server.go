// Package core implements the reference relay: a last-write-wins key/value
// table broadcast to every connected client, plus roster and chat fanout.
// The relay holds no world logic; clients converge on the replayed writes.
package core

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/shared/messages"
	"github.com/automoto/stardrift-mp/shared/wire"
)

type storedValue struct {
	origin  string
	payload []byte
}

type clientInfo struct {
	userId   string
	nickname string
	joined   bool
	seq      uint64
	lastSeen time.Time
}

// Server manages the shared state and the connected clients.
type Server struct {
	mu sync.RWMutex

	name      string
	version   string
	sweepRate int
	log       zerolog.Logger

	transport *transports.WsServerTransport
	sweeper   *Sweeper

	values  map[string]storedValue
	clients map[*router.NetworkClient]*clientInfo
	joinSeq uint64
}

// NewServer creates a relay session server. An empty version accepts any
// client.
func NewServer(name, version string, sweepRate int, log zerolog.Logger) *Server {
	s := &Server{
		name:      name,
		version:   version,
		sweepRate: sweepRate,
		log:       log.With().Str("component", "relay").Logger(),
		values:    make(map[string]storedValue),
		clients:   make(map[*router.NetworkClient]*clientInfo),
	}
	s.sweeper = NewSweeper(s, sweepRate)
	s.setupRouterCallbacks()
	return s
}

// Start begins serving on the given port. It blocks until the transport
// stops.
func (s *Server) Start(port uint) error {
	go s.sweeper.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop shuts the sweep loop down.
func (s *Server) Stop() {
	s.sweeper.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		s.onConnect(client)
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.onDisconnect(client, err)
	})

	router.On(func(client *router.NetworkClient, msg messages.JoinRequest) {
		s.onJoin(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.SetValue) {
		s.onSetValue(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.SetNickname) {
		s.onSetNickname(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.ChatSend) {
		s.onChat(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.Heartbeat) {
		s.touch(client)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		s.log.Warn().Err(err).Msg("client transport error")
	})
}

func (s *Server) onConnect(client *router.NetworkClient) {
	s.log.Info().Str("clientId", client.Id()).Msg("client connected")

	s.mu.Lock()
	s.clients[client] = &clientInfo{lastSeen: time.Now()}
	s.mu.Unlock()
}

func (s *Server) onJoin(client *router.NetworkClient, msg messages.JoinRequest) {
	if s.version != "" && msg.Version != s.version {
		s.log.Warn().
			Str("clientId", client.Id()).
			Str("got", msg.Version).
			Str("want", s.version).
			Msg("version mismatch")
		s.send(client, messages.JoinRejected{Reason: "version mismatch, update your client"})
		return
	}

	userId := uuid.NewString()
	nickname := strings.TrimSpace(msg.Nickname)
	if nickname == "" {
		nickname = "player-" + userId[:8]
	}

	s.mu.Lock()
	info, ok := s.clients[client]
	if !ok {
		info = &clientInfo{}
		s.clients[client] = info
	}
	if info.joined {
		// Repeat join keeps the original identity.
		userId = info.userId
	} else {
		s.joinSeq++
		info.seq = s.joinSeq
	}
	info.userId = userId
	info.nickname = nickname
	info.joined = true
	info.lastSeen = time.Now()

	values := make([]messages.KeyValue, 0, len(s.values))
	for key, v := range s.values {
		values = append(values, messages.KeyValue{Key: key, Origin: v.origin, Payload: v.payload})
	}
	userIds, nicknames := s.rosterLocked()
	s.mu.Unlock()

	s.send(client, messages.JoinAccepted{
		UserId:      userId,
		SessionName: s.name,
		SweepRate:   s.sweepRate,
		Values:      values,
		UserIds:     userIds,
		Nicknames:   nicknames,
	})
	s.broadcastRoster()

	s.log.Info().
		Str("userId", userId).
		Str("nickname", nickname).
		Msg("client joined")
}

func (s *Server) onSetValue(client *router.NetworkClient, msg messages.SetValue) {
	s.mu.Lock()
	info, ok := s.clients[client]
	if !ok || !info.joined {
		s.mu.Unlock()
		return
	}
	info.lastSeen = time.Now()
	origin := info.userId
	s.values[msg.Key] = storedValue{origin: origin, payload: msg.Payload}
	s.mu.Unlock()

	// The write is echoed to every client, the writer included.
	s.broadcast(messages.ValueSync{Key: msg.Key, Origin: origin, Payload: msg.Payload})
}

func (s *Server) onSetNickname(client *router.NetworkClient, msg messages.SetNickname) {
	nickname := strings.TrimSpace(msg.Nickname)
	if nickname == "" {
		return
	}

	s.mu.Lock()
	info, ok := s.clients[client]
	if !ok || !info.joined {
		s.mu.Unlock()
		return
	}
	info.nickname = nickname
	info.lastSeen = time.Now()
	s.mu.Unlock()

	s.broadcastRoster()
}

func (s *Server) onChat(client *router.NetworkClient, msg messages.ChatSend) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	s.mu.RLock()
	info, ok := s.clients[client]
	if !ok || !info.joined {
		s.mu.RUnlock()
		return
	}
	senderId := info.userId
	nickname := info.nickname
	s.mu.RUnlock()

	s.broadcast(messages.ChatSync{
		SenderId: senderId,
		Nickname: nickname,
		Text:     text,
		SentAt:   time.Now().UnixMilli(),
	})
}

func (s *Server) touch(client *router.NetworkClient) {
	s.mu.Lock()
	if info, ok := s.clients[client]; ok {
		info.lastSeen = time.Now()
	}
	s.mu.Unlock()
}

func (s *Server) onDisconnect(client *router.NetworkClient, err error) {
	s.mu.Lock()
	info, ok := s.clients[client]
	delete(s.clients, client)
	var userId string
	if ok && info.joined {
		userId = info.userId
		// The avatar keys of a departed player are dead weight; drop them
		// so late joiners do not see ghosts.
		for key := range s.values {
			if _, owner := wire.KindOf(key); owner == userId {
				delete(s.values, key)
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Info().Str("clientId", client.Id()).Err(err).Msg("client disconnected")
	} else {
		s.log.Info().Str("clientId", client.Id()).Msg("client disconnected")
	}

	if userId != "" {
		s.broadcastRoster()
	}
}

// rosterLocked lists joined users in join order. Caller holds s.mu.
func (s *Server) rosterLocked() ([]string, map[string]string) {
	joined := make([]*clientInfo, 0, len(s.clients))
	for _, info := range s.clients {
		if info.joined {
			joined = append(joined, info)
		}
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].seq < joined[j].seq })

	userIds := make([]string, 0, len(joined))
	nicknames := make(map[string]string, len(joined))
	for _, info := range joined {
		userIds = append(userIds, info.userId)
		nicknames[info.userId] = info.nickname
	}
	return userIds, nicknames
}

func (s *Server) broadcastRoster() {
	s.mu.RLock()
	userIds, nicknames := s.rosterLocked()
	s.mu.RUnlock()

	s.broadcast(messages.RosterSync{UserIds: userIds, Nicknames: nicknames})
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	targets := make([]*router.NetworkClient, 0, len(s.clients))
	for client, info := range s.clients {
		if info.joined {
			targets = append(targets, client)
		}
	}
	s.mu.RUnlock()

	for _, client := range targets {
		s.send(client, msg)
	}
}

func (s *Server) send(client *router.NetworkClient, msg any) {
	payload, err := router.Serialize(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("serialize failed")
		return
	}
	if err := client.SendMessageBytes(payload); err != nil {
		s.log.Warn().Str("clientId", client.Id()).Err(err).Msg("send failed")
	}
}

// PlayerCount returns the number of joined clients.
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, info := range s.clients {
		if info.joined {
			n++
		}
	}
	return n
}

// staleClients returns the clients silent for longer than cutoff.
func (s *Server) staleClients(cutoff time.Duration) []*router.NetworkClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var stale []*router.NetworkClient
	for client, info := range s.clients {
		if now.Sub(info.lastSeen) > cutoff {
			stale = append(stale, client)
		}
	}
	return stale
}
