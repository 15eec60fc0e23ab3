package web

import (
	"github.com/labstack/echo/v4"

	"github.com/ilievs/beatbox/core"
)

// NotifySnapshot is the first message on an event stream: the full mirrored
// state at the time of connecting.
const NotifySnapshot core.NotificationKind = "state"

// handleEvents streams the session's notifications to a websocket client as
// JSON until either side goes away.
func (s *Server) handleEvents(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied to the client
		s.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	notifications, unsubscribe := session.Subscribe()
	defer unsubscribe()

	// Reads only to notice the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(&core.Notification{Kind: NotifySnapshot, Value: session.Snapshot()}); err != nil {
		return nil
	}

	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(n); err != nil {
				s.logger.Debug("websocket write failed", "device", session.Id(), "error", err)
				return nil
			}
		case <-closed:
			return nil
		case <-session.Done():
			return nil
		}
	}
}
