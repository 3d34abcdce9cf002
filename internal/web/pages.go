package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	appLog "notedesk/internal/log"
	"notedesk/internal/model"
	"notedesk/internal/store"
)

const upcomingMentionLimit = 10

// ownedPage loads the page named in the route and hides other users' pages
// as not found.
func (s *Server) ownedPage(w http.ResponseWriter, r *http.Request, id string) (model.Page, bool) {
	p, err := s.store.GetPage(r.Context(), id)
	if err == nil && p.UserID != s.userID(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeStoreError(w, err, "page")
		return model.Page{}, false
	}
	return p, true
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.store.ListPages(r.Context(), s.userID(r))
	if err != nil {
		writeStoreError(w, err, "pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled"
	}
	p, err := s.store.CreatePage(r.Context(), s.userID(r), title)
	if err != nil {
		writeStoreError(w, err, "page")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRecentPages(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 5)
	pages, err := s.store.RecentlyVisited(r.Context(), s.userID(r), limit)
	if err != nil {
		writeStoreError(w, err, "pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var patch model.PagePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.store.UpdatePage(r.Context(), p.ID, patch)
	if err != nil {
		writeStoreError(w, err, "page")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := s.store.DeletePage(r.Context(), p.ID); err != nil {
		writeStoreError(w, err, "page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVisitPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := s.store.RecordVisit(r.Context(), p.UserID, p.ID); err != nil {
		writeStoreError(w, err, "page visit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	blocks, err := s.store.ListBlocks(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "blocks")
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

var blockTypes = map[string]bool{
	model.BlockHeading:    true,
	model.BlockParagraph:  true,
	model.BlockChecklist:  true,
	model.BlockTable:      true,
	model.BlockGallery:    true,
	model.BlockImage:      true,
	model.BlockBulletList: true,
}

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPage(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var b model.Block
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !blockTypes[b.Type] {
		writeError(w, http.StatusBadRequest, "unknown block type")
		return
	}
	b.PageID = p.ID
	created, err := s.store.CreateBlock(r.Context(), b)
	if err != nil {
		writeStoreError(w, err, "block")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ownedBlock resolves a block through its page's owner.
func (s *Server) ownedBlock(w http.ResponseWriter, r *http.Request) (model.Block, bool) {
	b, err := s.store.GetBlock(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "block")
		return model.Block{}, false
	}
	if _, ok := s.ownedPage(w, r, b.PageID); !ok {
		return model.Block{}, false
	}
	return b, true
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownedBlock(w, r)
	if !ok {
		return
	}
	var patch model.BlockPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.Type != nil && !blockTypes[*patch.Type] {
		writeError(w, http.StatusBadRequest, "unknown block type")
		return
	}
	updated, err := s.store.UpdateBlock(r.Context(), b.ID, patch)
	if err != nil {
		writeStoreError(w, err, "block")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownedBlock(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteBlock(r.Context(), b.ID); err != nil {
		writeStoreError(w, err, "block")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMentions returns the "@" suggestions for q from the user's pages
// and, with calendar access, upcoming events.
func (s *Server) handleMentions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)

	pages, err := s.store.ListPages(ctx, user)
	if err != nil {
		writeStoreError(w, err, "pages")
		return
	}

	var events []model.Event
	if s.cfg.CalendarAccess {
		events, err = s.store.UpcomingEvents(ctx, user, s.now().UnixMilli(), upcomingMentionLimit)
		if err != nil {
			// Page and date options are still useful without events.
			appLog.Error("upcoming events for mentions failed", err)
			events = nil
		}
	}

	writeJSON(w, http.StatusOK, s.resolver().Resolve(r.URL.Query().Get("q"), pages, events))
}
