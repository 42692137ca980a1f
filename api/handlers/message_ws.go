package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/chat"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the cors handler in front of the router
	},
}

// wsEvent is every frame the server pushes
type wsEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// wsCommand is every frame a client may send
type wsCommand struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointmentId"`
}

// wsConn serializes writes, gorilla allows one writer at a time
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(wsEvent{Event: event, Data: data})
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// MessagesWebSocketHandler streams live snapshots of an appointment's
// conversation. Clients switch conversations with
// {"type":"switch","appointmentId":"..."}.
func (m Message) MessagesWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]
	viewerID := callerID(r, r.URL.Query().Get("viewerId"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("WebSocket upgrade error", "error", err)
		return
	}
	c := &wsConn{conn: conn}
	defer conn.Close()

	// subscriptions end with the socket
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := m.Sync.NewView(viewerID, chat.Listener{
		OnSnapshot: func(s chat.Snapshot) {
			if err := c.send("snapshot", s); err != nil {
				zap.S().Debugw("failed to push snapshot", "appointmentId", s.AppointmentID, "error", err)
			}
		},
		OnError: func(err error) {
			if err := c.send("error", map[string]string{"message": err.Error()}); err != nil {
				zap.S().Debugw("failed to push error", "error", err)
			}
		},
	})
	defer view.Close()

	if err := view.SetAppointment(ctx, appointmentID); err != nil {
		_ = c.send("error", map[string]string{"message": err.Error()})
		return
	}
	zap.S().Infow("viewer connected to /ws/messages", "viewerId", viewerID, "appointmentId", appointmentID)

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Warnw("websocket closed unexpectedly", "viewerId", viewerID, "error", err)
			}
			zap.S().Infow("viewer disconnected from /ws/messages", "viewerId", viewerID)
			return
		}
		if cmd.Type != "switch" {
			_ = c.send("error", map[string]string{"message": "unknown command " + cmd.Type})
			continue
		}
		if err := view.SetAppointment(ctx, cmd.AppointmentID); err != nil {
			_ = c.send("error", map[string]string{"message": err.Error()})
		}
	}
}
