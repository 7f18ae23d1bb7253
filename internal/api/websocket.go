package api

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// handleFrameSocket streams composite frames to one websocket client. Each
// client polls the latest frame at the push interval and receives only new
// sequence numbers, so a slow client skips frames instead of queueing them.
func (s *Server) handleFrameSocket(conn *websocket.Conn) {
	id := uuid.NewString()
	s.log.Infof("frame socket connected: %s (%s)", id, conn.RemoteAddr())
	defer s.log.Infof("frame socket closed: %s", id)

	// The read pump discards client messages and unblocks the writer when
	// the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Warnf("frame socket read: %s: %v", id, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			frame := s.control.LatestFrame()
			if frame == nil || frame.Seq == lastSeq {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				s.log.Debugf("frame socket write: %s: %v", id, err)
				return
			}
			lastSeq = frame.Seq
		}
	}
}
