// Package stream relays change events from the bus to one websocket peer.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-sync/internal/events"
)

// Conn is the part of a websocket connection a session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// State is the lifecycle position of a session.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Options tunes a session.
type Options struct {
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Session owns one streaming connection and its bus subscription.
type Session struct {
	id           string
	conn         Conn
	bus          *events.Bus
	writeTimeout time.Duration
	logger       *zap.Logger
	state        atomic.Int32
}

// NewSession prepares a session in the connecting state.
func NewSession(conn Conn, bus *events.Bus, opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:           id,
		conn:         conn,
		bus:          bus,
		writeTimeout: opts.WriteTimeout,
		logger:       logger.With(zap.String("session_id", id)),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

type activityResult struct {
	name string
	err  error
}

// Run streams until the relay or the drain ends. Whichever finishes first
// cancels the other; Run returns after both have stopped and the
// subscription is released. The returned error is the first activity's.
func (s *Session) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.state.Store(int32(StateStreaming))
	s.logger.Info("stream session opened")

	results := make(chan activityResult, 2)
	go func() {
		results <- activityResult{name: "relay", err: s.relay(ctx, sub)}
	}()
	go func() {
		results <- activityResult{name: "drain", err: s.drain()}
	}()

	first := <-results
	cancel()
	// Close unblocks a pending read or write in the other activity.
	_ = s.conn.Close()
	<-results

	s.state.Store(int32(StateClosed))
	fields := []zap.Field{zap.String("ended_by", first.name)}
	if first.err != nil {
		fields = append(fields, zap.Error(first.err))
	}
	s.logger.Info("stream session closed", fields...)
	return first.err
}

func (s *Session) relay(ctx context.Context, sub *events.Subscription) error {
	for {
		event, missed, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, events.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if missed > 0 {
			s.logger.Warn("stream subscriber lagged", zap.Uint64("missed", missed))
			if err := s.writeJSON(events.MissedPayload{Missed: missed}); err != nil {
				return err
			}
		}
		if err := s.writeJSON(event); err != nil {
			return err
		}
	}
}

func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// drain reads and discards client messages until close or a read error.
func (s *Session) drain() error {
	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		switch messageType {
		case websocket.CloseMessage:
			return nil
		case websocket.TextMessage:
			s.logger.Debug("ignoring client message", zap.Int("bytes", len(payload)))
		}
	}
}
