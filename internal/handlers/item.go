package handlers

import (
	"net/http"

	"hackergrows/internal/middleware"
	"hackergrows/internal/services"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	forum *services.Forum
}

func NewItemHandler(forum *services.Forum) *ItemHandler {
	return &ItemHandler{forum: forum}
}

type submitForm struct {
	OriginalURL string `form:"original_url" json:"original_url"`
	ProductURL  string `form:"product_url" json:"product_url"`
	Title       string `form:"title" json:"title"`
	Text        string `form:"text" json:"text"`
}

// Detail shows an item; for a story the whole comment thread comes along.
func (h *ItemHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actorID := middleware.CurrentUserID(c)

	item, err := h.forum.GetItem(ctx, id)
	if err != nil {
		RenderError(c, err)
		return
	}
	view := newItemView(item)
	if view.CanEdit, view.CanDelete, err = h.forum.Permissions(ctx, item, actorID); err != nil {
		RenderError(c, err)
		return
	}

	resp := gin.H{"item": view}
	if item.IsStory() {
		comments, err := h.forum.ListComments(ctx, item.ID)
		if err != nil {
			RenderError(c, err)
			return
		}
		views := make([]ItemView, 0, len(comments))
		for i := range comments {
			v := newItemView(&comments[i])
			if v.CanEdit, v.CanDelete, err = h.forum.Permissions(ctx, &comments[i], actorID); err != nil {
				RenderError(c, err)
				return
			}
			views = append(views, v)
		}
		resp["comments"] = views
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) Submit(c *gin.Context) {
	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.forum.SubmitStory(c.Request.Context(), middleware.CurrentUserID(c), services.SubmitStoryInput{
		OriginalURL: form.OriginalURL,
		ProductURL:  form.ProductURL,
		Title:       form.Title,
		Text:        form.Text,
	})
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": newItemView(item)})
}

func (h *ItemHandler) Comment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form textForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.forum.Reply(c.Request.Context(), middleware.CurrentUserID(c), id, form.Text)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": newItemView(item)})
}

func (h *ItemHandler) Edit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form textForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.forum.EditItem(c.Request.Context(), id, middleware.CurrentUserID(c), form.Text)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": newItemView(item)})
}

func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.forum.DeleteItem(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
