package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"hackergrows/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(
		&models.User{}, &models.Item{}, &models.Story{}, &models.Comment{},
		&models.Vote{}, &models.KarmaLog{}, &models.EmailVerification{}, &models.PasswordResetRequest{},
	))
	return New(conn)
}

func seedUser(t *testing.T, s *GormStore, email string) *models.User {
	t.Helper()
	u := &models.User{Username: email, Email: email, Password: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedStory(t *testing.T, s *GormStore, userID uint, original, product string) *models.Item {
	t.Helper()
	item := &models.Item{
		Kind:   models.KindStory,
		UserID: userID,
		Story:  &models.Story{OriginalURL: original, ProductURL: product, Title: "t"},
	}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func TestUserEmailIsStoredLowercase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "Mixed.Case@Example.COM")
	assert.Equal(t, "mixed.case@example.com", u.Email)

	found, err := s.GetUserByEmail(ctx, "MIXED.case@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	found.Email = "Other@Example.com"
	require.NoError(t, s.SaveUser(ctx, found))
	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", again.Email)
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "a@example.com")

	err := s.CreateUser(context.Background(), &models.User{Username: "b", Email: "A@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetItem(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustTallyAndNumComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	item := seedStory(t, s, u.ID, "https://news.example.com/1", "https://product.example.com")

	require.NoError(t, s.AdjustTally(ctx, item.ID, models.Tally{Upvotes: 1, Points: 1}))
	require.NoError(t, s.AdjustTally(ctx, item.ID, models.Tally{Downvotes: 1, Points: -1}))
	require.NoError(t, s.AdjustNumComments(ctx, item.ID, 3))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Upvotes: 1, Downvotes: 1, Points: 0}, got.Tally())
	assert.Equal(t, 3, got.NumComments)
	require.NotNil(t, got.Story)
	assert.Equal(t, "https://news.example.com/1", got.Story.OriginalURL)

	assert.ErrorIs(t, s.AdjustTally(ctx, 999, models.Tally{Points: 1}), ErrNotFound)
}

func TestAdjustKarmaWritesLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	itemID := uint(7)

	require.NoError(t, s.AdjustKarma(ctx, u.ID, &itemID, 1, "upvote received"))
	require.NoError(t, s.AdjustKarma(ctx, u.ID, nil, -3, "reconcile"))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, got.Karma)

	logs, err := s.ListKarmaLogs(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "reconcile", logs[0].Action)
	assert.Equal(t, -3, logs[0].Amount)
}

func TestFindDuplicateStoriesOrdersByChangedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")

	older := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")
	newer := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")
	seedStory(t, s, u.ID, "https://hn.example.com/2", "https://p.example.com")

	// touch the older one so it becomes the most recently changed
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.AdjustTally(ctx, older.ID, models.Tally{Upvotes: 1, Points: 1}))

	probe := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")
	matches, err := s.FindDuplicateStories(ctx, "https://hn.example.com/1", "https://p.example.com", probe.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, older.ID, matches[0].ID)
	assert.Equal(t, newer.ID, matches[1].ID)
	require.NotNil(t, matches[0].Story)
}

func TestDetachDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")

	canonical := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")
	dup := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")
	require.NoError(t, s.SetDuplicateOf(ctx, dup.ID, &canonical.ID))

	n, err := s.DetachDuplicates(ctx, canonical.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.GetItem(ctx, dup.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Story.DuplicateOfID)
}

func TestCommentQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	story := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")

	c1 := &models.Item{Kind: models.KindComment, UserID: u.ID, Text: "one", Comment: &models.Comment{ToStoryID: story.ID}}
	require.NoError(t, s.CreateItem(ctx, c1))
	c2 := &models.Item{Kind: models.KindComment, UserID: u.ID, Text: "two", Comment: &models.Comment{ToStoryID: story.ID, ParentID: &c1.ID}}
	require.NoError(t, s.CreateItem(ctx, c2))

	all, err := s.ListComments(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c1.ID, all[0].ID)

	children, err := s.ListChildCommentIDs(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{c2.ID}, children)

	n, err := s.CountStoryComments(ctx, story.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.CountChildComments(ctx, c2.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.DeleteItem(ctx, c2.ID))
	_, err = s.GetItem(ctx, c2.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountOtherVotesExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.Vote{ItemID: 1, UserID: 2, Value: 1}
	require.NoError(t, s.CreateVote(ctx, first))
	n, err := s.CountOtherVotes(ctx, 1, 2, 1, first.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	second := &models.Vote{ItemID: 1, UserID: 2, Value: 1}
	require.NoError(t, s.CreateVote(ctx, second))
	n, err = s.CountOtherVotes(ctx, 1, 2, 1, second.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.CountOtherVotes(ctx, 1, 2, -1, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")

	err := s.Transaction(ctx, func(tx Store) error {
		if err := tx.AdjustKarma(ctx, u.ID, nil, 5, "test"); err != nil {
			return err
		}
		return ErrConflict
	})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Karma)
}

func TestGetItemForUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com")
	story := seedStory(t, s, u.ID, "https://hn.example.com/1", "https://p.example.com")

	err := s.Transaction(ctx, func(tx Store) error {
		item, err := tx.GetItemForUpdate(ctx, story.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, u.ID, item.User.ID)
		require.NotNil(t, item.Story)
		assert.Equal(t, "https://hn.example.com/1", item.Story.OriginalURL)

		_, err = tx.GetItemForUpdate(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestListUserVotesFiltersBySign(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []models.Vote{
		{ItemID: 1, UserID: 2, Value: 1, Effective: true},
		{ItemID: 1, UserID: 2, Value: -1},
		{ItemID: 1, UserID: 2, Value: 1},
		{ItemID: 1, UserID: 3, Value: 1},
		{ItemID: 4, UserID: 2, Value: 1},
	} {
		require.NoError(t, s.CreateVote(ctx, &v))
	}

	votes, err := s.ListUserVotes(ctx, 1, 2, 1)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.True(t, votes[0].Effective)
	assert.False(t, votes[1].Effective)
	assert.Less(t, votes[0].ID, votes[1].ID)
}
