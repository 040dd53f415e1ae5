package services

import (
	"context"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// Policy decides who may edit or delete an item. An item is locked once
// anyone has replied to it: a comment with a reply, or a story with any
// comment at all.
type Policy struct{}

func (Policy) hasChildren(ctx context.Context, st store.ItemStore, item *models.Item) (bool, error) {
	var (
		n   int64
		err error
	)
	if item.IsStory() {
		n, err = st.CountStoryComments(ctx, item.ID)
	} else {
		n, err = st.CountChildComments(ctx, item.ID)
	}
	return n > 0, err
}

func (p Policy) ownerWithoutReplies(ctx context.Context, st store.ItemStore, item *models.Item, actorID uint) (bool, error) {
	if actorID == 0 || item.UserID != actorID {
		return false, nil
	}
	has, err := p.hasChildren(ctx, st, item)
	if err != nil {
		return false, err
	}
	return !has, nil
}

func (p Policy) CanEdit(ctx context.Context, st store.ItemStore, item *models.Item, actorID uint) (bool, error) {
	return p.ownerWithoutReplies(ctx, st, item, actorID)
}

func (p Policy) CanDelete(ctx context.Context, st store.ItemStore, item *models.Item, actorID uint) (bool, error) {
	return p.ownerWithoutReplies(ctx, st, item, actorID)
}
