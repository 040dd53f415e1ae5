package services

import (
	"context"
	"fmt"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// Karma log actions.
const (
	ActionUpvoteReceived    = "upvote received"
	ActionDownvoteReceived  = "downvote received"
	ActionUpvoteWithdrawn   = "upvote withdrawn"
	ActionDownvoteWithdrawn = "downvote withdrawn"
	ActionItemDeleted       = "item deleted"
	ActionReconcile         = "reconcile"
)

// Ledger is the vote accounting primitive. It keeps tallies and karma in
// line with vote rows and enforces no authorization of its own: callers
// decide who may vote.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// tallyDelta is the counter change one vote of the given sign causes.
func tallyDelta(sign int) models.Tally {
	d := models.Tally{Points: sign}
	if sign > 0 {
		d.Upvotes = sign
	} else {
		d.Downvotes = -sign
	}
	return d
}

func negate(t models.Tally) models.Tally {
	return models.Tally{Upvotes: -t.Upvotes, Downvotes: -t.Downvotes, Points: -t.Points}
}

// Cast stores a vote row and, when it is the first of its sign for this
// (item, voter) pair, applies it to the item's tally and the owner's karma.
// A voter never earns karma from their own item.
func (l *Ledger) Cast(ctx context.Context, tx store.Store, item models.Tallied, voterID uint, sign int) (*models.Vote, error) {
	if sign != 1 && sign != -1 {
		return nil, fmt.Errorf("%w: %d", ErrForbiddenSign, sign)
	}

	vote := &models.Vote{
		ItemID: item.ItemID(),
		UserID: voterID,
		Value:  sign,
	}
	if err := tx.CreateVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("create vote: %w", err)
	}

	others, err := tx.CountOtherVotes(ctx, vote.ItemID, voterID, sign, vote.ID)
	if err != nil {
		return nil, fmt.Errorf("count prior votes: %w", err)
	}
	if others > 0 {
		return vote, nil
	}

	if err := tx.MarkVoteEffective(ctx, vote.ID); err != nil {
		return nil, fmt.Errorf("mark vote effective: %w", err)
	}
	vote.Effective = true

	if err := tx.AdjustTally(ctx, vote.ItemID, tallyDelta(sign)); err != nil {
		return nil, fmt.Errorf("apply tally: %w", err)
	}

	if item.OwnerID() != voterID {
		action := ActionUpvoteReceived
		if sign < 0 {
			action = ActionDownvoteReceived
		}
		itemID := vote.ItemID
		if err := tx.AdjustKarma(ctx, item.OwnerID(), &itemID, sign, action); err != nil {
			return nil, fmt.Errorf("apply karma: %w", err)
		}
	}
	return vote, nil
}

// Uncast deletes a vote row and reverses whatever Cast applied for it.
// Removing the owner's own vote lowers the tally but never touches karma,
// mirroring creation. Inert rows only disappear.
func (l *Ledger) Uncast(ctx context.Context, tx store.Store, item models.Tallied, vote *models.Vote, action string) error {
	if err := tx.DeleteVote(ctx, vote.ID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if !vote.Effective {
		return nil
	}

	if err := tx.AdjustTally(ctx, vote.ItemID, negate(tallyDelta(vote.Value))); err != nil {
		return fmt.Errorf("revert tally: %w", err)
	}

	if vote.UserID == item.OwnerID() {
		return nil
	}
	itemID := vote.ItemID
	if err := tx.AdjustKarma(ctx, item.OwnerID(), &itemID, -vote.Value, action); err != nil {
		return fmt.Errorf("revert karma: %w", err)
	}
	return nil
}

// withdrawAction names the karma log entry for a voter taking a vote back.
func withdrawAction(sign int) string {
	if sign < 0 {
		return ActionDownvoteWithdrawn
	}
	return ActionUpvoteWithdrawn
}
