package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local tool; pages on any origin may drive their own timeline.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// wsMessage is a pointer event sent by the client. Type is one of wheel,
// drag_start, drag_move, drag_end, hover, resize or frame.
type wsMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	DeltaY float64 `json:"delta_y"`
}

// wsReply is what the server sends back for every message.
type wsReply struct {
	Type    string `json:"type"` // frame, hover or error
	Changed bool   `json:"changed,omitempty"`
	Hit     bool   `json:"hit,omitempty"`
	Marker  any    `json:"marker,omitempty"`
	Frame   any    `json:"frame,omitempty"`
	Error   string `json:"error,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	ss   *session
	srv  *Server
	send chan []byte
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ss, ok := s.sessions.get(id)
	if !ok {
		http.Error(w, `{"error":"timeline not found"}`, http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] ws upgrade failed: %v", err)
		return
	}

	c := &wsClient{conn: conn, ss: ss, srv: s, send: make(chan []byte, 64)}

	ss.mu.Lock()
	c.queue(wsReply{Type: "frame", Frame: ss.frame()})
	ss.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[server] ws read error session=%s: %v", c.ss.id, err)
			}
			return
		}
		c.queue(c.handle(data))
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// queue drops the reply when the client is not keeping up; the next
// reply carries a full frame anyway.
func (c *wsClient) queue(reply wsReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("[server] ws marshal: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) handle(data []byte) wsReply {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return wsReply{Type: "error", Error: "invalid json"}
	}
	if _, ok := c.srv.sessions.get(c.ss.id); !ok {
		return wsReply{Type: "error", Error: "timeline not found"}
	}

	ss := c.ss
	ss.mu.Lock()
	defer ss.mu.Unlock()

	rect := ss.rect(msg.Left, msg.Width)
	var changed bool
	switch msg.Type {
	case "wheel":
		changed = ss.tl.Wheel(msg.X, rect, msg.DeltaY)
	case "drag_start":
		changed = ss.tl.DragStart(msg.X, rect)
	case "drag_move":
		changed = ss.tl.DragMove(msg.X, rect)
	case "drag_end":
		ss.tl.DragEnd()
	case "hover":
		m, hit := ss.tl.Hover(msg.X, rect)
		reply := wsReply{Type: "hover", Hit: hit}
		if hit {
			reply.Marker = m
		}
		return reply
	case "resize", "frame":
	default:
		return wsReply{Type: "error", Error: "unknown message type " + msg.Type}
	}
	return wsReply{Type: "frame", Changed: changed, Frame: ss.frame()}
}
