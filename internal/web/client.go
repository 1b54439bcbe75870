package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/controller"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 16 * 1024
	sendBuffer = 64
)

type queryRequest struct {
	key   string
	value string
}

// client is one websocket connection with its own presenter and controller.
// Queries run one at a time on runQueries, so renders reach the page in the
// order they were requested.
type client struct {
	conn       *websocket.Conn
	send       chan []byte
	queries    chan queryRequest
	presenter  *presenter.Presenter
	controller *controller.Controller
	logger     *slog.Logger

	mu        sync.Mutex
	lastQuery string
	lastGen   uint64
	closed    bool
}

func newClient(conn *websocket.Conn, ctrl func(*presenter.Presenter) *controller.Controller, log *slog.Logger) *client {
	p := presenter.New()
	c := &client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		queries:   make(chan queryRequest, sendBuffer),
		presenter: p,
		logger:    log,
	}
	c.controller = ctrl(p)
	p.Subscribe(func(records []presenter.DisplayRecord) {
		c.enqueue(encode(resultsMessage(records)))
	})
	return c
}

// enqueue drops the message when it is nil or the client is too slow or gone.
func (c *client) enqueue(data []byte) {
	if data == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket send buffer full, message dropped")
	}
}

func (c *client) request(q queryRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestLocked(q)
}

// requestLocked queues q and makes it the query a new generation re-runs.
// Keys other than Enter never query and are dropped here.
func (c *client) requestLocked(q queryRequest) {
	if c.closed || (q.key != "" && q.key != controller.KeyEnter) {
		return
	}
	c.lastQuery = q.value
	select {
	case c.queries <- q:
	default:
		c.logger.Warn("websocket query buffer full, query dropped")
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
		close(c.queries)
	}
}

// onStatus forwards lifecycle changes and re-runs the last query once a new
// generation is installed.
func (c *client) onStatus(st app.Status) {
	c.enqueue(encode(statusMessage(st)))
	if st.State != app.StateReady {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.Generation != c.lastGen {
		c.lastGen = st.Generation
		c.requestLocked(queryRequest{value: c.lastQuery})
	}
}

func (c *client) readPump() {
	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(encode(ErrorMessage{Type: MsgError, Message: "invalid message format"}))
			continue
		}
		switch msg.Type {
		case MsgKey:
			c.request(queryRequest{key: msg.Key, value: msg.Query})
		case MsgSubmit:
			c.request(queryRequest{value: msg.Query})
		default:
			c.enqueue(encode(ErrorMessage{Type: MsgError, Message: "unknown message type: " + msg.Type}))
		}
	}
}

func (c *client) runQueries(ctx context.Context) {
	for q := range c.queries {
		var err error
		if q.key != "" {
			_, err = c.controller.KeyPress(ctx, q.key, q.value)
		} else {
			err = c.controller.Submit(ctx, q.value)
		}
		if err != nil {
			logger.FromContext(ctx).Debug("websocket query failed", "query", q.value, "error", err)
			c.enqueue(encode(ErrorMessage{Type: MsgError, Message: err.Error()}))
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
