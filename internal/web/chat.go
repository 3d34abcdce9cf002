package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"notedesk/internal/chat"
	"notedesk/internal/docctx"
	appLog "notedesk/internal/log"
)

type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
	Context  string          `json:"context,omitempty"`
}

type chatReply struct {
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
	// HTML is Content rendered from Markdown; empty if rendering failed.
	HTML         string `json:"html"`
	ContextTitle string `json:"contextTitle,omitempty"`
}

func newChatReply(m chat.Message) chatReply {
	html, err := chat.RenderMarkdown(m.Content)
	if err != nil {
		appLog.Error("markdown render failed", err)
	}
	return chatReply{Role: m.Role, Content: m.Content, HTML: html}
}

// writeChatError maps the chat error taxonomy to HTTP responses.
func writeChatError(w http.ResponseWriter, err error) {
	var upstream *chat.UpstreamError
	switch {
	case errors.Is(err, chat.ErrNoMessages):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &upstream):
		appLog.Error("completion failed", err, "status", upstream.StatusCode)
		writeError(w, http.StatusInternalServerError, "failed to get a response from the assistant")
	default:
		appLog.Error("chat failed", err)
		writeError(w, http.StatusInternalServerError, "failed to get a response from the assistant")
	}
}

func (s *Server) complete(r *http.Request, messages []chat.Message) (chat.Message, error) {
	if s.completer == nil {
		return chat.Message{}, chat.ErrNotConfigured
	}
	return s.completer.Complete(r.Context(), messages)
}

// handleChat is the stateless endpoint: the client owns the history.
//
// POST /api/chat {"messages": [{role, content}], "context": "..."}
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var messages []chat.Message
	if len(req.Messages) == 0 || json.Unmarshal(req.Messages, &messages) != nil {
		writeChatError(w, chat.ErrNoMessages)
		return
	}
	if err := chat.Validate(messages); err != nil {
		if errors.Is(err, chat.ErrNoMessages) {
			writeChatError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.complete(r, chat.Assemble(messages, req.Context))
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatReply(reply))
}

type sessionHistory struct {
	Messages []chat.Message   `json:"messages"`
	Context  *docctx.Document `json:"context"`
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(s.userID(r))
	resp := sessionHistory{Messages: sess.Chat.Messages()}
	if c, ok := sess.Docs.CurrentContext(); ok {
		doc := c.Document
		resp.Context = &doc
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionSendRequest struct {
	Message string `json:"message"`
	// DocumentID, when set, becomes the active context before sending.
	DocumentID *string `json:"documentId,omitempty"`
}

// handleSessionSend sends one user turn of the stateful conversation with
// the session's active document injected.
func (s *Server) handleSessionSend(w http.ResponseWriter, r *http.Request) {
	var req sessionSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.completer == nil {
		writeChatError(w, chat.ErrNotConfigured)
		return
	}

	sess := s.sessions.Get(s.userID(r))
	if req.DocumentID != nil {
		sess.Docs.SetCurrent(*req.DocumentID)
	}

	var active docctx.Context
	if c, ok := sess.Docs.CurrentContext(); ok {
		active = c
	}

	reply, err := sess.Chat.Send(r.Context(), req.Message, active.Text)
	if err != nil {
		writeChatError(w, err)
		return
	}
	resp := newChatReply(reply)
	resp.ContextTitle = active.Document.Title
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.sessions.Get(s.userID(r)).Chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}
