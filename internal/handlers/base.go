package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"hackergrows/internal/models"
	"hackergrows/internal/services"
	"hackergrows/internal/store"
	"hackergrows/internal/utils"

	"github.com/gin-gonic/gin"
)

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrAlreadySelf),
		errors.Is(err, services.ErrForbiddenSign):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrInvalidToken):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RenderError writes err as a JSON error body. Unexpected errors are logged
// and not shown to the client.
func RenderError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// idParam reads a numeric path parameter, answering 404 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id := utils.ParseID(c.Param(name))
	if id == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// ItemView is an item as returned to clients, with its text rendered.
type ItemView struct {
	*models.Item
	By        string        `json:"by"`
	TextHTML  template.HTML `json:"text_html"`
	CanEdit   bool          `json:"can_edit"`
	CanDelete bool          `json:"can_delete"`
}

func newItemView(item *models.Item) ItemView {
	return ItemView{Item: item, By: item.User.Username, TextHTML: utils.RenderMarkdown(item.Text)}
}

type textForm struct {
	Text string `form:"text" json:"text"`
}
