package handlers

import (
	"net/http"

	"hackergrows/internal/store"

	"github.com/gin-gonic/gin"
)

const karmaLogLimit = 30

type UserHandler struct {
	users store.UserStore
}

func NewUserHandler(users store.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// Profile shows a user with karma and the latest karma changes.
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	logs, err := h.users.ListKarmaLogs(ctx, id, karmaLogLimit)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      gin.H{"id": user.ID, "username": user.Username, "karma": user.Karma, "created_at": user.CreatedAt},
		"karma_log": logs,
	})
}
