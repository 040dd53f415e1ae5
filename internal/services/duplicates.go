package services

import (
	"context"
	"fmt"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// DuplicateResolver links a freshly submitted story to an earlier
// submission of the same link pair and redirects the submitter's vote there.
type DuplicateResolver struct {
	ledger *Ledger
}

func NewDuplicateResolver(ledger *Ledger) *DuplicateResolver {
	return &DuplicateResolver{ledger: ledger}
}

// Resolve returns the canonical story when story is a duplicate, nil
// otherwise. Links stay one hop deep: the canonical story is whichever match
// changed most recently, even if it is a duplicate itself.
func (r *DuplicateResolver) Resolve(ctx context.Context, tx store.Store, story *models.Item) (*models.Item, error) {
	s := story.Story
	if s == nil || s.OriginalURL == "" || s.ProductURL == "" || s.DuplicateOfID != nil {
		return nil, nil
	}

	matches, err := tx.FindDuplicateStories(ctx, s.OriginalURL, s.ProductURL, story.ID)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	canonical, err := tx.GetItemForUpdate(ctx, matches[0].ID)
	if err != nil {
		return nil, fmt.Errorf("lock canonical story %d: %w", matches[0].ID, err)
	}

	if _, err := r.ledger.Cast(ctx, tx, canonical, story.UserID, 1); err != nil {
		return nil, fmt.Errorf("upvote canonical story %d: %w", canonical.ID, err)
	}

	if err := tx.SetDuplicateOf(ctx, story.ID, &canonical.ID); err != nil {
		return nil, fmt.Errorf("link duplicate: %w", err)
	}
	s.DuplicateOfID = &canonical.ID
	return canonical, nil
}
