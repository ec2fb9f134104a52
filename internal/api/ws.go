package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The service carries no credentials, so cross-origin dashboards
	// may subscribe directly.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEventsWS streams job events over a websocket, starting after
// the optional ?since= sequence and pushing each new event as JSON.
func (s *Server) handleEventsWS(c echo.Context) error {
	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return writeError(c, http.StatusBadRequest, "since must be a non-negative integer")
		}
		since = parsed
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Drain reads so close frames from the client are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request().Context()
	seq := since
	for {
		for _, event := range s.orch.Events(seq) {
			if err := conn.WriteJSON(event); err != nil {
				return nil
			}
			seq = event.Seq
		}

		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case <-s.orch.WaitEvents(seq):
		}
	}
}
