package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
)

// Message types exchanged over the websocket.
const (
	MsgKey     = "key"
	MsgSubmit  = "submit"
	MsgResults = "results"
	MsgStatus  = "status"
	MsgError   = "error"
)

// ClientMessage is sent by the page.
type ClientMessage struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	Query string `json:"query"`
}

// ResultsMessage replaces the page's result list.
type ResultsMessage struct {
	Type          string                    `json:"type"`
	SearchResults []presenter.DisplayRecord `json:"search_results"`
}

type StatusMessage struct {
	Type       string     `json:"type"`
	State      string     `json:"state"`
	Generation uint64     `json:"generation"`
	Documents  int        `json:"documents"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	Message    string     `json:"message,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func resultsMessage(records []presenter.DisplayRecord) ResultsMessage {
	if records == nil {
		records = []presenter.DisplayRecord{}
	}
	return ResultsMessage{Type: MsgResults, SearchResults: records}
}

func statusMessage(st app.Status) StatusMessage {
	msg := StatusMessage{
		Type:       MsgStatus,
		State:      st.State.String(),
		Generation: st.Generation,
		Documents:  st.Documents,
		Message:    st.Message,
	}
	if !st.LoadedAt.IsZero() {
		loaded := st.LoadedAt
		msg.LoadedAt = &loaded
	}
	return msg
}

// encode returns nil when v cannot be marshalled; enqueue drops nil payloads.
func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding websocket message failed", "component", "web", "type", fmt.Sprintf("%T", v), "error", err)
		return nil
	}
	return b
}
