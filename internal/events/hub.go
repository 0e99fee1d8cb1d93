package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type subscriber struct {
	owner string
	send  chan []byte
}

// Hub pushes ledger events to the websocket connections of their owner.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Publish queues the event for every connection of the event owner.
// Connections whose buffer is full miss the event.
func (h *Hub) Publish(ctx context.Context, event domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subscribers {
		if s.owner != event.Owner {
			continue
		}

		select {
		case s.send <- data:
		default:
			zerolog.Ctx(ctx).Warn().Str("owner", s.owner).Msg("websocket subscriber is too slow, event dropped")
		}
	}

	return nil
}

// Subscribers returns the number of connections of the owner.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0

	for s := range h.subscribers {
		if s.owner == owner {
			n++
		}
	}

	return n
}

func (h *Hub) register(owner string) *subscriber {
	s := &subscriber{owner: owner, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	h.mu.Unlock()
}

// Serve streams the owner events to conn until the peer goes away or ctx is done.
// It closes conn before returning.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, owner string) {
	l := zerolog.Ctx(ctx)

	s := h.register(owner)
	defer h.unregister(s)
	defer conn.Close()

	l.Info().Str("owner", owner).Msg("websocket subscriber connected")

	done := make(chan struct{})

	// Reads are only needed to process control frames and detect closing.
	go func() {
		defer close(done)

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			l.Info().Str("owner", owner).Msg("websocket subscriber disconnected")
			return
		case data := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.Error().Err(err).Msg("write websocket message")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
