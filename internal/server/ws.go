package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"agridetect/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsQuestion struct {
	Question string `json:"question"`
}

type wsAnswer struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleChatWS streams the remedy assistant over a websocket: the client
// sends one JSON question per message and receives one answer per message.
// Session conversation state is shared with the plain HTTP chat endpoint.
func (h *Handlers) handleChatWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Sessions.Get(id); err != nil {
		h.sessionError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("chat ws: upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var q wsQuestion
		if err := conn.ReadJSON(&q); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("chat ws: read: %v", err)
			}
			return
		}

		answer, _, err := h.Sessions.Ask(r.Context(), id, q.Question)
		var reply wsAnswer
		switch {
		case err == nil:
			reply.Answer = answer
		case errors.Is(err, session.ErrChatBusy):
			reply.Error = "please wait for the previous answer"
		case errors.Is(err, session.ErrNoDiagnosis):
			reply.Error = "no diagnosis available yet"
		case errors.Is(err, session.ErrNotFound):
			reply.Error = "session not found"
		default:
			reply.Error = "internal error"
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("chat ws: write: %v", err)
			return
		}
	}
}
