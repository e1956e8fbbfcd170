package lighthouse

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/houseflow/houseflow/internal/logging"
	"github.com/houseflow/houseflow/internal/registry"
	"github.com/houseflow/houseflow/internal/telemetry"
)

// ErrConnectionClosed is returned to every caller awaiting a reply slot
// when the session tears down, and to any outbound dispatch attempted
// after teardown has begun.
var ErrConnectionClosed = errors.New("lighthouse: connection closed")

const outboundQueueSize = 64

// Config carries the session's heartbeat tuning.
type Config struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// Session owns one device's WebSocket connection. It is a small actor
// split into a reader and a writer goroutine: the writer is the only
// goroutine that ever calls conn.WriteMessage, so request tasks never
// contend on the socket directly.
type Session struct {
	DeviceID string

	conn      *websocket.Conn
	cfg       Config
	reg       *registry.Registry
	telemetry *telemetry.Recorder
	logger    *logging.Logger

	outbound chan Frame

	pendingMu sync.Mutex
	pending   map[uint32]chan Frame

	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a session for an already-upgraded connection. Call Run
// to start its pumps; it is not registered or usable for RPCs until Run
// has begun.
func New(deviceID string, conn *websocket.Conn, cfg Config, reg *registry.Registry, rec *telemetry.Recorder, logger *logging.Logger) *Session {
	return &Session{
		DeviceID:  deviceID,
		conn:      conn,
		cfg:       cfg,
		reg:       reg,
		telemetry: rec,
		logger:    logger,
		outbound:  make(chan Frame, outboundQueueSize),
		pending:   make(map[uint32]chan Frame),
		done:      make(chan struct{}),
	}
}

// Run inserts the session into the registry (rejecting a duplicate
// device id), then blocks running the read and write pumps until the
// connection ends. It always removes itself from the registry and fails
// every pending slot before returning.
func (s *Session) Run(ctx context.Context) error {
	if err := s.reg.Insert(s.DeviceID, s); err != nil {
		return err
	}
	s.telemetry.SessionConnected(s.DeviceID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.writePump() }()
	go func() { defer wg.Done(); s.readPump(ctx) }()
	wg.Wait()

	s.teardown()
	return nil
}

// Close initiates orderly shutdown: the write pump exits, the read pump's
// next read fails, and the pending table is drained. Safe to call more
// than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) teardown() {
	s.reg.Remove(s.DeviceID, s)
	s.telemetry.SessionDisconnected(s.DeviceID)

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, slot := range s.pending {
		close(slot)
		delete(s.pending, id)
	}
}

// Execute dispatches an Execute frame and awaits its ExecuteResponse,
// bounded by ctx.
func (s *Session) Execute(ctx context.Context, command Command, params json.RawMessage) (Frame, error) {
	return s.rpc(ctx, Frame{Kind: KindExecute, Command: command, Params: params})
}

// Query dispatches a Query frame and awaits its QueryResponse.
func (s *Session) Query(ctx context.Context) (Frame, error) {
	return s.rpc(ctx, Frame{Kind: KindQuery})
}

func (s *Session) rpc(ctx context.Context, req Frame) (Frame, error) {
	id, slot := s.register()
	req.ID = id
	defer s.unregister(id)

	select {
	case s.outbound <- req:
	case <-s.done:
		return Frame{}, ErrConnectionClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}

	select {
	case reply, ok := <-slot:
		if !ok {
			return Frame{}, ErrConnectionClosed
		}
		return reply, nil
	case <-s.done:
		return Frame{}, ErrConnectionClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// register installs a fresh reply slot, regenerating the FrameID on
// collision with an in-flight request.
func (s *Session) register() (uint32, chan Frame) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	for {
		id := randomFrameID()
		if _, exists := s.pending[id]; exists {
			continue
		}
		slot := make(chan Frame, 1)
		s.pending[id] = slot
		return id, slot
	}
}

func (s *Session) unregister(id uint32) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, id)
}

// fulfill delivers a response frame to its pending slot, if one exists.
func (s *Session) fulfill(f Frame) {
	s.pendingMu.Lock()
	slot, ok := s.pending[f.ID]
	if ok {
		delete(s.pending, f.ID)
	}
	s.pendingMu.Unlock()

	if !ok {
		s.logger.Debug("dropping reply with no matching pending request", "device_id", s.DeviceID, "frame_id", f.ID)
		return
	}
	slot <- f
}

func (s *Session) readPump(ctx context.Context) {
	defer s.Close()

	pongWait := s.cfg.PingInterval + s.cfg.PongTimeout
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("lighthouse read error", "device_id", s.DeviceID, "error", err)
			} else {
				s.logger.Debug("lighthouse session closed", "device_id", s.DeviceID, "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("lighthouse protocol error: malformed frame", "device_id", s.DeviceID, "error", err)
			return
		}

		if !f.IsResponse() {
			s.logger.Warn("lighthouse protocol error: unexpected request frame from device", "device_id", s.DeviceID, "kind", f.Kind)
			return
		}
		s.fulfill(f)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Session) writePump() {
	defer s.Close()
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	writeDeadline := s.cfg.PingInterval + s.cfg.PongTimeout

	for {
		select {
		case frame, ok := <-s.outbound:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck
			data, err := json.Marshal(frame)
			if err != nil {
				s.logger.Error("encoding outbound frame failed", "device_id", s.DeviceID, "error", err)
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func randomFrameID() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
