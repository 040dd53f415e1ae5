package handlers

import (
	"net/http"

	"hackergrows/internal/middleware"
	"hackergrows/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	forum *services.Forum
}

func NewVoteHandler(forum *services.Forum) *VoteHandler {
	return &VoteHandler{forum: forum}
}

// Vote handles upvotes.
func (h *VoteHandler) Vote(c *gin.Context) {
	h.cast(c, 1)
}

// Downvote is routed through the engine, which refuses it.
func (h *VoteHandler) Downvote(c *gin.Context) {
	h.cast(c, -1)
}

func (h *VoteHandler) cast(c *gin.Context, sign int) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	vote, err := h.forum.CastVote(ctx, id, middleware.CurrentUserID(c), sign)
	if err != nil {
		RenderError(c, err)
		return
	}
	item, err := h.forum.GetItem(ctx, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": vote, "tally": item.Tally()})
}

func (h *VoteHandler) Unvote(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.forum.RetractVote(ctx, id, middleware.CurrentUserID(c)); err != nil {
		RenderError(c, err)
		return
	}
	item, err := h.forum.GetItem(ctx, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tally": item.Tally()})
}
