package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	vderrors "github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/mounting"
	"github.com/vango-dev/viewdiff/pkg/protocol"
)

// errStreamClosed ends a stream that the client closed.
var errStreamClosed = errors.New("server: stream closed by client")

// handleStream upgrades to a WebSocket and streams the surface's
// transactions: a Hello and a mount transaction first, then every
// committed transaction in order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.surfaces.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.streams.Add(1)
	s.mu.Unlock()
	defer s.streams.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "surface", id, "error", err)
		return
	}
	s.metrics.streamOpened()
	defer s.metrics.streamClosed()

	st := &stream{
		server:  s,
		c:       c,
		conn:    conn,
		logger:  s.logger.With("surface", id, "remote", r.RemoteAddr),
		pongs:   make(chan uint64, 4),
		resyncs: make(chan struct{}, 1),
	}
	st.run()
}

// stream is one WebSocket subscriber. The read loop handles client
// control frames; the write loop owns every write to conn.
type stream struct {
	server *Server
	c      *mounting.Coordinator
	conn   *websocket.Conn
	logger *slog.Logger

	pongs   chan uint64
	resyncs chan struct{}
	acked   atomic.Uint64
	closing atomic.Bool

	sent uint64 // last transaction written; writer only
}

func (st *stream) run() {
	defer st.conn.Close()

	sub, snap, err := st.c.Subscribe()
	if err != nil {
		_ = st.writeErrorFrame(protocol.NewFatalError(protocol.ErrSurfaceNotFound, err.Error()))
		st.writeClose(protocol.CloseGoingAway, "surface stopped")
		return
	}
	if err := st.writeSnapshot(snap); err != nil {
		sub.Close()
		st.server.metrics.streamError("setup")
		st.logger.Warn("stream setup failed", "error", err)
		return
	}
	st.logger.Info("stream opened", "transaction", snap.Mount.Number)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return st.readLoop(ctx)
	})
	g.Go(func() error {
		return st.writeLoop(ctx, sub)
	})
	err = g.Wait()

	switch {
	case err == nil, errors.Is(err, errStreamClosed):
		st.logger.Info("stream closed", "acked", st.acked.Load())
	case vderrors.HasCode(err, "E240"):
		st.server.metrics.streamError("protocol")
		st.logger.Warn("stream ended by a malformed client frame", "error", err, "acked", st.acked.Load())
	default:
		st.server.metrics.streamError("transport")
		st.logger.Warn("stream ended", "error", err, "acked", st.acked.Load())
	}
}

func (st *stream) readLoop(ctx context.Context) error {
	cfg := st.server.config
	for {
		_ = st.conn.SetReadDeadline(time.Now().Add(2 * cfg.PingInterval))
		msgType, data, err := st.conn.ReadMessage()
		if err != nil {
			if st.closing.Load() || ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return err
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return errStreamClosed
			}
			return err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			return malformed("frame", err)
		}

		switch frame.Type {
		case protocol.FrameControl:
			ctrl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				return malformed("control message", err)
			}
			switch ctrl.Type {
			case protocol.ControlPing:
				select {
				case st.pongs <- ctrl.Timestamp:
				case <-ctx.Done():
					return nil
				}
			case protocol.ControlPong:
				// The read deadline was already extended.
			case protocol.ControlResyncRequest:
				st.logger.Debug("resync requested", "last", ctrl.LastNumber)
				select {
				case st.resyncs <- struct{}{}:
				default:
				}
			case protocol.ControlClose:
				return errStreamClosed
			}

		case protocol.FrameAck:
			ack, err := protocol.DecodeAck(frame.Payload)
			if err != nil {
				return malformed("ack", err)
			}
			st.acked.Store(ack.Number)
			committed := st.c.Number()
			st.logger.Debug("ack", "transaction", ack.Number, "committed", committed, "lag", ackLag(committed, ack.Number))

		default:
			st.logger.Debug("ignoring client frame", "type", frame.Type)
		}
	}
}

// malformed reports a client frame the stream cannot decode.
func malformed(what string, err error) error {
	return vderrors.New("E240").WithDetailf("The client sent a %s that could not be decoded.", what).Wrap(err)
}

// ackLag is how many committed transactions the client has not acked. A
// client acking ahead of the coordinator has none.
func ackLag(committed, acked uint64) uint64 {
	if acked >= committed {
		return 0
	}
	return committed - acked
}

// writeLoop sends transactions, pings and pongs until the subscription
// ends, the client goes away or the server shuts down.
func (st *stream) writeLoop(ctx context.Context, sub *mounting.Subscription) error {
	defer func() { sub.Close() }()
	// Unblocks the read loop once writing stops.
	defer func() {
		st.closing.Store(true)
		_ = st.conn.Close()
	}()

	ticker := time.NewTicker(st.server.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case tx, ok := <-sub.C():
			if !ok {
				reason, msg := protocol.CloseGoingAway, "surface stopped"
				if errors.Is(sub.Err(), mounting.ErrSlowSubscriber) {
					reason, msg = protocol.CloseSlowConsumer, "subscriber fell behind"
					st.server.metrics.streamError("slow_consumer")
					_ = st.writeErrorFrame(protocol.NewFatalError(protocol.ErrSlowConsumer, msg).At(st.sent))
				}
				st.writeClose(reason, msg)
				return nil
			}
			if err := st.writeTransaction(tx.Wire()); err != nil {
				return err
			}

		case <-st.resyncs:
			sub.Close()
			next, snap, err := st.c.Subscribe()
			if err != nil {
				st.writeClose(protocol.CloseGoingAway, "surface stopped")
				return nil
			}
			sub = next
			if err := st.writeSnapshot(snap); err != nil {
				return err
			}

		case ts := <-st.pongs:
			if err := st.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(ts)))); err != nil {
				return err
			}

		case <-ticker.C:
			ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
			if err := st.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping))); err != nil {
				return err
			}

		case <-st.server.done:
			st.writeClose(protocol.CloseServerShutdown, "server shutting down")
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

// writeSnapshot sends a Hello with the root view followed by the mount
// transaction.
func (st *stream) writeSnapshot(snap *mounting.Snapshot) error {
	hello, err := protocol.EncodeHello(&protocol.Hello{
		Version:    protocol.CurrentVersion,
		Surface:    st.c.ID(),
		Number:     snap.Mount.Number,
		ServerTime: uint64(time.Now().UnixMilli()),
		Root:       snap.Root,
	})
	if err != nil {
		return err
	}
	frames, err := protocol.SplitFrames(protocol.FrameHello, hello)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := st.writeFrame(f); err != nil {
			return err
		}
	}
	return st.writeTransaction(snap.Mount.Wire())
}

func (st *stream) writeTransaction(tx *protocol.Transaction) error {
	frames, err := protocol.TransactionFrames(tx)
	if err != nil {
		st.logger.Error("transaction not encodable", "transaction", tx.Number, "error", err)
		_ = st.writeErrorFrame(protocol.NewFatalError(protocol.ErrUnencodable, err.Error()).At(st.sent))
		return err
	}
	for _, f := range frames {
		if err := st.writeFrame(f); err != nil {
			return err
		}
	}
	st.sent = tx.Number
	return nil
}

func (st *stream) writeErrorFrame(em *protocol.ErrorMessage) error {
	return st.writeFrame(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)))
}

// writeClose sends a Close control frame and a WebSocket close message.
func (st *stream) writeClose(reason protocol.CloseReason, msg string) {
	_ = st.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewClose(reason, msg))))
	code := websocket.CloseNormalClosure
	if reason != protocol.CloseNormal {
		code = websocket.CloseGoingAway
	}
	deadline := time.Now().Add(st.server.config.WriteTimeout)
	_ = st.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason.String()), deadline)
}

func (st *stream) writeFrame(f *protocol.Frame) error {
	_ = st.conn.SetWriteDeadline(time.Now().Add(st.server.config.WriteTimeout))
	return st.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}
