package http

import (
	"bufio"
	"context"
	"iter"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type logEvent struct {
	line string
	err  error
}

// pump moves a log sequence onto a channel so writers can select on it
// alongside heartbeats. It stops iterating, which closes the underlying
// follow request, as soon as ctx is done.
func pump(ctx context.Context, seq iter.Seq2[string, error]) <-chan logEvent {
	ch := make(chan logEvent)
	go func() {
		defer close(ch)
		for line, err := range seq {
			select {
			case ch <- logEvent{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// lineBreaks maps every SSE line terminator to "\n" so a stray carriage
// return cannot end a data field early.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func writeEvent(w *bufio.Writer, event, data string) {
	if event != "" {
		w.WriteString("event: " + event + "\n")
	}
	for _, line := range strings.Split(lineBreaks.Replace(data), "\n") {
		w.WriteString("data: " + line + "\n")
	}
	w.WriteString("\n")
}

// StreamLogs tails the container's output as server-sent events, one event
// per line. A failed write means the client went away, which cancels the
// runtime follow request.
func (h *ContainerHandler) StreamLogs(c *fiber.Ctx) error {
	id := c.Params("id")

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := pump(ctx, h.logs.Follow(ctx, id))
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					writeEvent(w, "end", "")
					w.Flush()
					return
				}
				if ev.err != nil {
					writeEvent(w, "error", ev.err.Error())
					w.Flush()
					return
				}
				writeEvent(w, "", ev.line)
				if err := w.Flush(); err != nil {
					h.log.Debug("log stream client disconnected", zap.String("container_id", id))
					return
				}
			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

// RequireUpgrade rejects plain HTTP requests to WebSocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StreamLogsWS tails the container's output over a WebSocket, one text
// message per line.
func (h *ContainerHandler) StreamLogsWS(conn *websocket.Conn) {
	id := conn.Params("id")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends anything useful; reading detects it leaving.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range pump(ctx, h.logs.Follow(ctx, id)) {
		if ev.err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ev.err.Error()))
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ev.line)); err != nil {
			h.log.Debug("log socket client disconnected", zap.String("container_id", id))
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log stream ended"))
}
