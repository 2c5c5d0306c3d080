package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"corefi/services/lendform"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) streamNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// The stream is write-only; CloseRead handles pings and notices the client leaving.
	ctx := conn.CloseRead(r.Context())
	toasts, cancel := s.notifications.Subscribe()
	defer cancel()

	if err := streamToasts(ctx, conn, toasts); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamToasts(ctx context.Context, conn *websocket.Conn, toasts <-chan lendform.Toast) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case toast, ok := <-toasts:
			if !ok {
				return nil
			}
			if err := writeToast(ctx, conn, toast); err != nil {
				return err
			}
		}
	}
}

func writeToast(ctx context.Context, conn *websocket.Conn, toast lendform.Toast) error {
	data, err := json.Marshal(toast)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
