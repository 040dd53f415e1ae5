package services

import (
	"testing"

	"hackergrows/internal/models"
	"hackergrows/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepeatSameSignIsInert(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	voter := f.user("voter")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	ledger := NewLedger()
	first, err := ledger.Cast(f.ctx, f.store, item, voter.ID, 1)
	require.NoError(t, err)
	assert.True(t, first.Effective)

	second, err := ledger.Cast(f.ctx, f.store, item, voter.ID, 1)
	require.NoError(t, err)
	assert.False(t, second.Effective)

	got := f.reload(item.ID)
	assert.Equal(t, models.Tally{Upvotes: 2, Points: 2}, got.Tally())
	assert.Equal(t, 1, f.reloadUser(owner.ID).Karma)
	assert.Len(t, f.votes(item.ID), 3)
}

func TestLedgerOppositeSignsBothApply(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	voter := f.user("voter")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	ledger := NewLedger()
	_, err := ledger.Cast(f.ctx, f.store, item, voter.ID, 1)
	require.NoError(t, err)
	down, err := ledger.Cast(f.ctx, f.store, item, voter.ID, -1)
	require.NoError(t, err)
	assert.True(t, down.Effective)

	got := f.reload(item.ID)
	assert.Equal(t, models.Tally{Upvotes: 2, Downvotes: 1, Points: 1}, got.Tally())
	assert.Equal(t, 0, f.reloadUser(owner.ID).Karma)
}

func TestLedgerRejectsBadSign(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	_, err := NewLedger().Cast(f.ctx, f.store, item, owner.ID, 2)
	assert.ErrorIs(t, err, ErrForbiddenSign)
	assert.Len(t, f.votes(item.ID), 1)
}

func TestLedgerCastUncastRestoresState(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	voter := f.user("voter")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")
	before := f.reload(item.ID).Tally()

	ledger := NewLedger()
	for _, sign := range []int{1, -1} {
		vote, err := ledger.Cast(f.ctx, f.store, item, voter.ID, sign)
		require.NoError(t, err)
		require.NoError(t, ledger.Uncast(f.ctx, f.store, item, vote, withdrawAction(sign)))

		assert.Equal(t, before, f.reload(item.ID).Tally())
		assert.Equal(t, 0, f.reloadUser(owner.ID).Karma)
	}

	logs, err := f.store.ListKarmaLogs(f.ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, ActionDownvoteWithdrawn, logs[0].Action)
	assert.Equal(t, ActionDownvoteReceived, logs[1].Action)
}

func TestLedgerUncastInertVoteChangesNothing(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	voter := f.user("voter")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	ledger := NewLedger()
	_, err := ledger.Cast(f.ctx, f.store, item, voter.ID, 1)
	require.NoError(t, err)
	repeat, err := ledger.Cast(f.ctx, f.store, item, voter.ID, 1)
	require.NoError(t, err)
	require.False(t, repeat.Effective)

	require.NoError(t, ledger.Uncast(f.ctx, f.store, item, repeat, ActionUpvoteWithdrawn))
	assert.Equal(t, models.Tally{Upvotes: 2, Points: 2}, f.reload(item.ID).Tally())
	assert.Equal(t, 1, f.reloadUser(owner.ID).Karma)
}

func TestLedgerUncastSelfVoteSkipsKarma(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	votes := f.votes(item.ID)
	require.Len(t, votes, 1)
	require.NoError(t, NewLedger().Uncast(f.ctx, f.store, item, &votes[0], ActionItemDeleted))

	assert.Equal(t, models.Tally{}, f.reload(item.ID).Tally())
	assert.Equal(t, 0, f.reloadUser(owner.ID).Karma)
	logs, err := f.store.ListKarmaLogs(f.ctx, owner.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLedgerRollsBackWithTransaction(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	voter := f.user("voter")
	item := f.story(owner.ID, "https://hn.example.com/1", "https://p.example.com")

	err := f.store.Transaction(f.ctx, func(tx store.Store) error {
		if _, err := NewLedger().Cast(f.ctx, tx, item, voter.ID, 1); err != nil {
			return err
		}
		return ErrForbidden
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.Tally{Upvotes: 1, Points: 1}, f.reload(item.ID).Tally())
	assert.Equal(t, 0, f.reloadUser(owner.ID).Karma)
}
