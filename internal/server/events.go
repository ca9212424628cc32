package server

import (
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scribe/pkg/progress"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type eventMessage struct {
	progress.Event
	Percent int `json:"percent"`
}

// events streams a session's progress over a websocket until the run
// finishes, the session is cleared or the client goes away.
func (s *Server) events(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "session", sess.ID, "err", err)
		return
	}
	defer conn.Close()

	ch, release := sess.Subscribe()
	defer release()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				closeNormal(conn, "session cleared")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(eventMessage{Event: e, Percent: e.Percent()}); err != nil {
				log.Debug("Websocket write failed", "session", sess.ID, "err", err)
				return
			}
			if e.Stage == progress.StageDone || e.Stage == progress.StageError {
				closeNormal(conn, e.Stage)
				return
			}
		}
	}
}

func closeNormal(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
