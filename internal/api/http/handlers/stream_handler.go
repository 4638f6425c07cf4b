package handlers

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-sync/internal/auth"
	"github.com/spec-kit/task-sync/internal/events"
	"github.com/spec-kit/task-sync/internal/stream"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

const streamSubjectKey = "stream_subject_id"

// StreamHandler upgrades connections and runs one stream session per socket.
type StreamHandler struct {
	ctx          context.Context
	bus          *events.Bus
	verifier     *auth.Verifier
	requireToken bool
	writeTimeout time.Duration
	logger       *zap.Logger
}

// StreamOptions configures the stream endpoint.
type StreamOptions struct {
	RequireToken bool
	WriteTimeout time.Duration
}

// NewStreamHandler builds the handler. Sessions stop when ctx is cancelled.
func NewStreamHandler(ctx context.Context, bus *events.Bus, verifier *auth.Verifier, opts StreamOptions, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		ctx:          ctx,
		bus:          bus,
		verifier:     verifier,
		requireToken: opts.RequireToken,
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
	}
}

// Upgrade rejects non-websocket requests and, when configured, checks ?token=.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if h.requireToken {
		identity, err := h.verifier.Verify(c.Query("token"))
		if err != nil {
			return apperrors.NewUnauthorized()
		}
		c.Locals(streamSubjectKey, identity.SubjectID)
	}
	return c.Next()
}

// Serve returns the websocket handler for GET /ws.
func (h *StreamHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		logger := h.logger
		if subjectID, ok := conn.Locals(streamSubjectKey).(int64); ok {
			logger = logger.With(zap.Int64("subject_id", subjectID))
		}
		session := stream.NewSession(conn, h.bus, stream.Options{
			WriteTimeout: h.writeTimeout,
			Logger:       logger,
		})
		if err := session.Run(h.ctx); err != nil {
			logger.Debug("stream session ended with error", zap.String("session_id", session.ID()), zap.Error(err))
		}
	})
}
