package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/roach88/collabflow/internal/notify"
	"github.com/roach88/collabflow/internal/workflow"
)

// handleEvents upgrades to a websocket and streams every event emitted
// after the upgrade as one JSON text frame. ?workflow_id= narrows the
// stream to one workflow. The stream ends when the client goes away or
// the server shuts down.
func (s *Server) handleEvents(c *gin.Context) {
	filter := c.Query("workflow_id")
	if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		sendError(c, http.StatusUpgradeRequired, "websocket upgrade required")
		return
	}

	// Subscribe before upgrading so nothing emitted after the handshake is lost.
	sub := s.events.Subscribe()
	defer sub.Close()

	conn, _, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The reader only watches for the client closing the connection.
	go func() {
		defer cancel()
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("event stream opened", "remote", c.Request.RemoteAddr, "workflow_id", filter)
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, notify.ErrClosed) {
				_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusGoingAway, "server shutting down"))
			}
			return
		}
		if filter != "" && ev.WorkflowID != filter {
			continue
		}
		if err := writeEvent(conn, ev); err != nil {
			s.logger.Debug("event stream closed", "error", err)
			return
		}
	}
}

func writeEvent(w io.Writer, ev workflow.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return wsutil.WriteServerText(w, data)
}
