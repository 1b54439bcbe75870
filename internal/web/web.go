// Package web serves the search page and pushes results to it over a
// websocket. Every connection gets its own presenter and controller; the
// page only sends keypresses and submits and renders what it is pushed.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/controller"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/metrics"
)

//go:embed static
var staticFiles embed.FS

// Lifecycle is satisfied by *app.App.
type Lifecycle interface {
	Status() app.Status
	Subscribe(fn func(app.Status)) (unsubscribe func())
}

type Server struct {
	querier   controller.Querier
	lifecycle Lifecycle
	formatter presenter.DateFormatter
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// New builds the page server. m may be nil. An empty allowOrigins or one
// containing "*" accepts any origin.
func New(q controller.Querier, l Lifecycle, f presenter.DateFormatter, m *metrics.Metrics, allowOrigins []string) *Server {
	s := &Server{
		querier:   q,
		lifecycle: l,
		formatter: f,
		metrics:   m,
		logger:    slog.Default().With("component", "web"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowOrigins),
	}
	return s
}

func (s *Server) Register(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("GET /", http.FileServer(http.FS(static)))
	mux.HandleFunc("GET /ws", s.ServeWS)
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	log := logger.FromContext(ctx).With("component", "web", "remote", r.RemoteAddr)
	c := newClient(conn, func(p *presenter.Presenter) *controller.Controller {
		return controller.New(s.querier, p, s.formatter)
	}, log)

	if s.metrics != nil {
		s.metrics.WebsocketClients.Inc()
	}
	log.Debug("websocket connected")

	unsubscribe := s.lifecycle.Subscribe(c.onStatus)
	c.onStatus(s.lifecycle.Status())

	go c.writePump()
	go c.runQueries(ctx)
	go func() {
		c.readPump()
		unsubscribe()
		cancel()
		c.close()
		if s.metrics != nil {
			s.metrics.WebsocketClients.Dec()
		}
		log.Debug("websocket disconnected")
	}()
}

func originChecker(allow []string) func(*http.Request) bool {
	if len(allow) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allow))
	for _, o := range allow {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
