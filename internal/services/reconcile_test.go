package services

import (
	"testing"

	"hackergrows/internal/models"
	"hackergrows/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerFindsNoDriftAfterEngineOperations(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")

	a := f.story(alice.ID, "https://hn.example.com/1", "https://p.example.com")
	f.story(bob.ID, "https://hn.example.com/1", "https://p.example.com")
	c1 := f.comment(bob.ID, a.ID, "hi")
	c2 := f.comment(alice.ID, c1.ID, "hello")
	_, err := f.forum.CastVote(f.ctx, c1.ID, alice.ID, 1)
	require.NoError(t, err)
	_, err = f.forum.CastVote(f.ctx, c1.ID, alice.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.forum.DeleteItem(f.ctx, c2.ID, alice.ID))

	drifts, err := NewReconciler(f.store).Run(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReconcilerRepairsCorruption(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")

	a := f.story(alice.ID, "https://hn.example.com/1", "https://p.example.com")
	c1 := f.comment(bob.ID, a.ID, "hi")
	f.comment(alice.ID, c1.ID, "hello")
	_, err := f.forum.CastVote(f.ctx, a.ID, bob.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.store.OverwriteCounters(f.ctx, a.ID, models.Tally{Upvotes: 9, Downvotes: 1, Points: 3}, 0))
	require.NoError(t, f.store.OverwriteCounters(f.ctx, c1.ID, models.Tally{Upvotes: 1, Points: 1}, 5))
	require.NoError(t, f.store.AdjustKarma(f.ctx, alice.ID, nil, 10, "manual"))

	r := NewReconciler(f.store)
	drifts, err := r.Run(f.ctx, true)
	require.NoError(t, err)

	fields := map[string]int{}
	for _, d := range drifts {
		fields[d.Field]++
	}
	assert.Equal(t, map[string]int{"upvotes": 1, "downvotes": 1, "points": 1, "num_comments": 2, "karma": 1}, fields)

	gotA := f.reload(a.ID)
	assert.Equal(t, models.Tally{Upvotes: 2, Points: 2}, gotA.Tally())
	assert.Equal(t, 2, gotA.NumComments)
	assert.Equal(t, 1, f.reload(c1.ID).NumComments)
	assert.Equal(t, 1, f.reloadUser(alice.ID).Karma)

	drifts, err = r.Run(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReconcilerDryRunLeavesCounters(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	a := f.story(alice.ID, "https://hn.example.com/1", "https://p.example.com")
	require.NoError(t, f.store.OverwriteCounters(f.ctx, a.ID, models.Tally{}, 0))

	drifts, err := NewReconciler(f.store).Run(f.ctx, false)
	require.NoError(t, err)
	assert.Len(t, drifts, 2)
	assert.Equal(t, models.Tally{}, f.reload(a.ID).Tally())
	assert.Contains(t, drifts[0].String(), "item")
}

func TestCommentCycleIsReported(t *testing.T) {
	f := newFixture(t)
	author := f.user("author")
	story := f.story(author.ID, "https://hn.example.com/1", "https://p.example.com")
	c1 := f.comment(author.ID, story.ID, "one")
	c2 := f.comment(author.ID, c1.ID, "two")

	// c1 -> c2 -> c1
	require.NoError(t, f.db.Model(&models.Comment{}).
		Where("item_id = ?", c1.ID).
		Update("parent_id", c2.ID).Error)

	reply := f.reload(c2.ID)
	err := f.store.Transaction(f.ctx, func(tx store.Store) error {
		return NewCommentCounter().Propagate(f.ctx, tx, reply, 1)
	})
	assert.ErrorIs(t, err, ErrCommentCycle)
	assert.Equal(t, 2, f.reload(story.ID).NumComments, "failed walk rolls back")

	_, err = NewReconciler(f.store).Run(f.ctx, false)
	assert.ErrorIs(t, err, ErrCommentCycle)
}
