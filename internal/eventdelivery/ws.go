// Package eventdelivery streams committed ledger events to websocket clients.
package eventdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
)

// Streamer serves the owner event stream over an upgraded connection.
type Streamer interface {
	Serve(ctx context.Context, conn *websocket.Conn, owner string)
}

// Handler facilitates websocket delivery of ledger events.
type Handler struct {
	streamer Streamer
	upgrader websocket.Upgrader
}

// NewHandler returns event handler.
func NewHandler(s Streamer) Handler {
	return Handler{
		streamer: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Subscribe upgrades the request and streams the caller's ledger events.
func (h *Handler) Subscribe(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	conn, err := h.upgrader.Upgrade(gctx.Writer, gctx.Request, nil)
	if err != nil {
		// The upgrader has already replied with an http error.
		zerolog.Ctx(ctx).Info().Err(err).Msg("websocket upgrade")
		return
	}

	h.streamer.Serve(ctx, conn, middleware.Owner(gctx))
}
