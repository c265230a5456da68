package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/reload"
)

// handleEvents streams reload notifications as server-sent events. The
// stream has no read deadline, each frame gets a bounded write deadline, and
// an idle stream gets a comment frame every keepalive interval.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// not every writer supports deadlines (httptest recorders do not)
	_ = rc.SetReadDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	ctx := r.Context()
	write := func(frame string) bool {
		_ = rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if _, err := fmt.Fprint(w, frame); err != nil {
			s.logger.Debug(ctx, "Event stream closed", "subscriber", sub.ID, "error", err.Error())
			return false
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug(ctx, "Event stream flush failed", "subscriber", sub.ID, "error", err.Error())
			return false
		}
		return true
	}

	if !write(sseData(reload.MessageConnected)) {
		return
	}
	s.logger.Debug(ctx, "Event stream opened", "subscriber", sub.ID, "remote", r.RemoteAddr)

	keepAlive := time.NewTimer(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok || !write(sseData(msg)) {
				return
			}
		case <-keepAlive.C:
			if !write(": keepalive\n\n") {
				return
			}
		}
		keepAlive.Reset(s.keepAlive)
	}
}

func sseData(msg string) string {
	return "data: " + msg + "\n\n"
}

// handleWebSocket is the alternate reload transport: the same tokens as the
// event stream, one text frame each.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	_ = http.NewResponseController(w).SetReadDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), shtmlerrors.NewConnectionError("WS_ACCEPT", "websocket upgrade failed", err), "Rejected websocket")
		return
	}
	defer conn.CloseNow()

	// reads are only used to notice the peer closing
	ctx := conn.CloseRead(r.Context())

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	send := func(msg string) error {
		wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, []byte(msg))
	}

	if err := send(reload.MessageConnected); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-sub.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := send(msg); err != nil {
				s.logger.Debug(ctx, "Websocket write failed", "subscriber", sub.ID, "error", err.Error())
				return
			}
		}
	}
}
