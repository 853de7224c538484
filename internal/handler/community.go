package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cocktail-club/internal/service"
)

// CommunityHandler serves the board: posts, comments and replies.
// Reads are public; writes need a session and only touch the caller's own
// content.
type CommunityHandler struct {
	community *service.CommunityService
	logger    *slog.Logger
}

func NewCommunityHandler(community *service.CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{community: community, logger: logger}
}

// HandleLatest → GET /api/posts/latest?limit=
func (h *CommunityHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	posts, err := h.community.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(posts))
}

// HandleList → GET /api/posts?page=&limit=
func (h *CommunityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page, err := h.community.List(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGet → GET /api/posts/{id}
func (h *CommunityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.community.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate → POST /api/posts
func (h *CommunityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.PostInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	post, err := h.community.Create(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate → PUT /api/posts/{id}
func (h *CommunityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.PostInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	post, err := h.community.Update(r.Context(), id.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete → DELETE /api/posts/{id}
func (h *CommunityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.community.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListComments → GET /api/comment/{id}, where id is the post's.
func (h *CommunityHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.community.ListForPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(comments))
}

// HandleCreateComment → POST /api/comment
func (h *CommunityHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.CommentInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	comment, err := h.community.CreateComment(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleUpdateComment → PUT /api/comment/{id}
func (h *CommunityHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.ReplyInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	comment, err := h.community.UpdateComment(r.Context(), id.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HandleDeleteComment → DELETE /api/comment/{id}
func (h *CommunityHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.community.DeleteComment(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReply → POST /api/comment/{id}/replies
func (h *CommunityHandler) HandleReply(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.ReplyInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	reply, err := h.community.Reply(r.Context(), id.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func pageRequest(r *http.Request) (service.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.PageRequest{}, err
	}
	return service.PageRequest{Page: page, Limit: limit}, nil
}
