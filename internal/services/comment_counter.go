package services

import (
	"context"
	"fmt"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// CommentCounter keeps num_comments equal to the subtree size on a story and
// on every comment above a changed one.
type CommentCounter struct{}

func NewCommentCounter() *CommentCounter {
	return &CommentCounter{}
}

// Propagate adds delta to the comment's story and to each ancestor comment,
// walking parent links until a top-level comment is reached. The comment
// itself is left alone.
func (c *CommentCounter) Propagate(ctx context.Context, tx store.Store, comment *models.Item, delta int) error {
	if !comment.IsComment() || comment.Comment == nil {
		return fmt.Errorf("item %d is not a comment", comment.ID)
	}

	if err := tx.AdjustNumComments(ctx, comment.Comment.ToStoryID, delta); err != nil {
		return fmt.Errorf("recount story %d: %w", comment.Comment.ToStoryID, err)
	}

	seen := map[uint]bool{comment.ID: true}
	parentID := comment.Comment.ParentID
	for parentID != nil {
		id := *parentID
		if seen[id] {
			return fmt.Errorf("%w at comment %d", ErrCommentCycle, id)
		}
		seen[id] = true

		if err := tx.AdjustNumComments(ctx, id, delta); err != nil {
			return fmt.Errorf("recount comment %d: %w", id, err)
		}

		parent, err := tx.GetItem(ctx, id)
		if err != nil {
			return fmt.Errorf("load parent %d: %w", id, err)
		}
		if parent.Comment == nil {
			break
		}
		parentID = parent.Comment.ParentID
	}
	return nil
}
