package web

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"notedesk/internal/docctx"
)

type addDocumentRequest struct {
	// ID replaces an existing document when set.
	ID      string      `json:"id,omitempty"`
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Type    docctx.Type `json:"type"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.sessions.Get(s.userID(r)).Docs
	writeJSON(w, http.StatusOK, docs.Documents())
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Type == "" {
		req.Type = docctx.TypeNote
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "type must be one of note, task, page, meeting")
		return
	}

	doc := docctx.Document{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		LastUpdated: s.now(),
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	docs := s.sessions.Get(s.userID(r)).Docs
	docs.Put(doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	s.sessions.Get(s.userID(r)).Docs.Remove(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecentDocuments(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), docctx.DefaultRecentLimit)
	docs := s.sessions.Get(s.userID(r)).Docs
	writeJSON(w, http.StatusOK, docs.RecentDocuments(limit))
}

type currentContextView struct {
	ID       string           `json:"id"`
	Document *docctx.Document `json:"document"`
	Text     string           `json:"text"`
}

func currentView(docs *docctx.Store) currentContextView {
	v := currentContextView{ID: docs.CurrentID()}
	if c, ok := docs.CurrentContext(); ok {
		doc := c.Document
		v.Document = &doc
		v.Text = c.Text
	}
	return v
}

func (s *Server) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentView(s.sessions.Get(s.userID(r)).Docs))
}

// handleSetCurrent accepts {"id": "..."}; null or "" clears the selection.
// Unknown ids are stored and read back as no context.
func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID *string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	docs := s.sessions.Get(s.userID(r)).Docs
	id := ""
	if req.ID != nil {
		id = *req.ID
	}
	docs.SetCurrent(id)
	writeJSON(w, http.StatusOK, currentView(docs))
}
