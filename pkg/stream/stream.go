// Package stream implements the live-tail SSE channel (C8): strict
// per-run sequence numbers, a heartbeat so idle connections don't look
// dead to intermediate proxies, and a bounded buffer that closes a
// consumer which falls behind — adapted from the teacher's
// ConnectionManager (pkg/events/manager.go), whose write-timeout-bounded
// send and per-connection context/cancel shape this package reuses for a
// single-subscriber SSE stream instead of a multi-channel WebSocket
// broadcast.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/codeready-toolchain/logwatch/pkg/orchestrator"
)

// Frame is one SSE event written to the wire: `id: <Seq>\nevent:
// <Event>\ndata: <JSON Data>\n\n`.
type Frame struct {
	Seq   int    `json:"seq"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Stream is a single run's live-tail channel: the orchestrator writes via
// Emit, possibly from several goroutines at once (concurrent tool calls),
// and one reader (the HTTP handler's flush loop) drains it. emitMu
// serializes Emit so frames enter buf in sequence-number order.
type Stream struct {
	emitMu          sync.Mutex
	runID           string
	buf             chan Frame
	done            chan struct{}
	closeOnce       sync.Once
	heartbeat       time.Duration
	slowConsumer    time.Duration
	seq             int
	mu              sync.Mutex
	closed          bool
	slowConsumerErr error
}

// New builds a Stream with the configured heartbeat interval and
// slow-consumer close timeout (spec §6: STREAM_HEARTBEAT_SECONDS default
// 15s, STREAM_SLOW_CONSUMER_SECONDS default 30s).
func New(runID string, heartbeat, slowConsumer time.Duration) *Stream {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if slowConsumer <= 0 {
		slowConsumer = 30 * time.Second
	}
	return &Stream{
		runID:        runID,
		buf:          make(chan Frame, 256),
		done:         make(chan struct{}),
		heartbeat:    heartbeat,
		slowConsumer: slowConsumer,
	}
}

// Emit implements orchestrator.Emitter: it assigns the next sequence
// number and enqueues the frame, closing the stream if the consumer has
// not drained within slowConsumer.
func (s *Stream) Emit(ctx context.Context, e orchestrator.Event) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("stream %s: already closed", s.runID)
	}
	s.seq++
	frame := Frame{Seq: s.seq, Event: e.Type, Data: e}
	s.mu.Unlock()

	timer := time.NewTimer(s.slowConsumer)
	defer timer.Stop()

	select {
	case s.buf <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.closeSlow()
		return fmt.Errorf("stream %s: slow consumer, closed after %s", s.runID, s.slowConsumer)
	}
}

func (s *Stream) closeSlow() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.slowConsumerErr = fmt.Errorf("slow consumer")
		s.mu.Unlock()
		close(s.done)
	})
}

// Close marks the stream finished, unblocking ServeHTTP's flush loop. Safe
// to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

// ServeHTTP drains frames to w as Server-Sent Events until the stream
// closes, the client disconnects, or a heartbeat comment keeps the
// connection alive between frames.
func (s *Stream) ServeHTTP(ctx context.Context, w http.ResponseWriter) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("stream: response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			s.drainRemaining(w, flusher)
			return nil
		case frame, ok := <-s.buf:
			if !ok {
				return nil
			}
			if err := writeFrame(w, frame); err != nil {
				return err
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func (s *Stream) drainRemaining(w http.ResponseWriter, flusher http.Flusher) {
	for {
		select {
		case frame, ok := <-s.buf:
			if !ok {
				return
			}
			_ = writeFrame(w, frame)
			flusher.Flush()
		default:
			return
		}
	}
}

// ServeWS drains frames over a WebSocket connection instead of SSE, for
// clients behind intermediaries that buffer or strip text/event-stream
// responses. Framing is otherwise identical: one JSON Frame per message,
// a periodic heartbeat ping in place of the SSE comment line.
func (s *Stream) ServeWS(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			s.drainRemainingWS(ctx, conn)
			return nil
		case frame, ok := <-s.buf:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) drainRemainingWS(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case frame, ok := <-s.buf:
			if !ok {
				return
			}
			_ = wsjson.Write(ctx, conn, frame)
		default:
			return
		}
	}
}

func writeFrame(w http.ResponseWriter, frame Frame) error {
	body, err := json.Marshal(frame.Data)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", frame.Seq, frame.Event, body)
	return err
}
