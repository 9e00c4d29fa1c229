package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/transcribe-service/internal/domain"
	"github.com/cuongbtq/transcribe-service/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamHandler upgrades connections to WebSocket and feeds binary audio
// frames into a per-connection stream session.
type StreamHandler struct {
	logger   *slog.Logger
	deps     *Dependencies
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler instance
func NewStreamHandler(deps *Dependencies) *StreamHandler {
	return &StreamHandler{
		logger: deps.Logger,
		deps:   deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Stream handles GET /api/v1/stream
// Binary frames are buffered by the session; protocol messages
// (partial/final/error) are written back as JSON.
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	h.logger.Info("Stream session opened",
		slog.String("remote", conn.RemoteAddr().String()),
	)

	session := stream.NewSession(h.deps.StreamConfig, &stream.Dependencies{
		Pool:         h.deps.Pool,
		Artifacts:    h.deps.Artifacts,
		NewConverter: h.deps.NewConverter,
		NewEngine:    h.deps.NewEngine,
		Logger:       h.logger,
	})

	// Suppress the automatic close-frame echo: the final flush result must
	// be written before this side completes the close handshake.
	conn.SetCloseHandler(func(code int, text string) error { return nil })

	ctx := c.Request.Context()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Connection closed by the client: one final flush over any
			// remaining buffered audio.
			if final, closeErr := session.Close(ctx); closeErr == nil && final != nil {
				_ = conn.WriteJSON(final)
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			h.logger.Info("Stream session closed",
				slog.String("remote", conn.RemoteAddr().String()),
			)
			return
		}

		if msgType != websocket.BinaryMessage {
			continue
		}

		msg, pushErr := session.Push(ctx, data)
		if msg != nil {
			if writeErr := conn.WriteJSON(msg); writeErr != nil {
				h.logger.Warn("Failed to write stream message",
					slog.String("error", writeErr.Error()),
				)
			}
		}

		if errors.Is(pushErr, domain.ErrBufferOverflow) {
			h.logger.Warn("Stream session terminated on buffer overflow",
				slog.String("remote", conn.RemoteAddr().String()),
			)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "buffer overflow"))
			return
		}
	}
}
