package services

import (
	"context"
	"fmt"
	"log"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// Drift is one denormalized counter that disagrees with the rows it is
// derived from. ItemID or UserID is set depending on Field.
type Drift struct {
	ItemID uint   `json:"item_id,omitempty"`
	UserID uint   `json:"user_id,omitempty"`
	Field  string `json:"field"`
	Stored int    `json:"stored"`
	Actual int    `json:"actual"`
}

func (d Drift) String() string {
	if d.UserID != 0 {
		return fmt.Sprintf("user %d %s: stored %d, actual %d", d.UserID, d.Field, d.Stored, d.Actual)
	}
	return fmt.Sprintf("item %d %s: stored %d, actual %d", d.ItemID, d.Field, d.Stored, d.Actual)
}

// Reconciler recomputes tallies, comment counts and karma from the vote and
// comment rows and optionally writes the results back.
type Reconciler struct {
	store store.Store
}

func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// Run checks every item and user. With repair set, drifted items are
// overwritten and karma is corrected through a reconcile ledger entry.
func (r *Reconciler) Run(ctx context.Context, repair bool) ([]Drift, error) {
	var drifts []Drift

	itemIDs, err := r.store.ListItemIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range itemIDs {
		found, err := r.checkItem(ctx, id, repair)
		if err != nil {
			return drifts, fmt.Errorf("item %d: %w", id, err)
		}
		drifts = append(drifts, found...)
	}

	userIDs, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return drifts, err
	}
	for _, id := range userIDs {
		found, err := r.checkUser(ctx, id, repair)
		if err != nil {
			return drifts, fmt.Errorf("user %d: %w", id, err)
		}
		drifts = append(drifts, found...)
	}

	for _, d := range drifts {
		counterDrift.WithLabelValues(d.Field).Inc()
	}
	return drifts, nil
}

func (r *Reconciler) checkItem(ctx context.Context, id uint, repair bool) ([]Drift, error) {
	var drifts []Drift
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}

		up, err := tx.CountEffectiveVotes(ctx, id, 1)
		if err != nil {
			return err
		}
		down, err := tx.CountEffectiveVotes(ctx, id, -1)
		if err != nil {
			return err
		}
		actual := models.Tally{Upvotes: int(up), Downvotes: int(down), Points: int(up - down)}

		comments, err := subtreeSize(ctx, tx, item)
		if err != nil {
			return err
		}

		stored := item.Tally()
		for _, c := range []struct {
			field          string
			stored, actual int
		}{
			{"upvotes", stored.Upvotes, actual.Upvotes},
			{"downvotes", stored.Downvotes, actual.Downvotes},
			{"points", stored.Points, actual.Points},
			{"num_comments", item.NumComments, comments},
		} {
			if c.stored != c.actual {
				drifts = append(drifts, Drift{ItemID: id, Field: c.field, Stored: c.stored, Actual: c.actual})
			}
		}

		if !repair || len(drifts) == 0 {
			return nil
		}
		log.Printf("reconcile: repairing item %d", id)
		return tx.OverwriteCounters(ctx, id, actual, comments)
	})
	return drifts, err
}

func (r *Reconciler) checkUser(ctx context.Context, id uint, repair bool) ([]Drift, error) {
	user, err := r.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	actual, err := r.store.SumReceivedKarma(ctx, id)
	if err != nil {
		return nil, err
	}
	if int(actual) == user.Karma {
		return nil, nil
	}

	d := Drift{UserID: id, Field: "karma", Stored: user.Karma, Actual: int(actual)}
	if repair {
		log.Printf("reconcile: repairing karma of user %d", id)
		if err := r.store.AdjustKarma(ctx, id, nil, d.Actual-d.Stored, ActionReconcile); err != nil {
			return nil, err
		}
	}
	return []Drift{d}, nil
}

// subtreeSize counts every comment below item: the whole thread for a
// story, all descendants for a comment.
func subtreeSize(ctx context.Context, tx store.Store, item *models.Item) (int, error) {
	if item.IsStory() {
		n, err := tx.CountStoryComments(ctx, item.ID)
		return int(n), err
	}

	total := 0
	seen := map[uint]bool{item.ID: true}
	queue := []uint{item.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := tx.ListChildCommentIDs(ctx, id)
		if err != nil {
			return 0, err
		}
		for _, c := range children {
			if seen[c] {
				return 0, fmt.Errorf("%w at comment %d", ErrCommentCycle, c)
			}
			seen[c] = true
			total++
			queue = append(queue, c)
		}
	}
	return total, nil
}
