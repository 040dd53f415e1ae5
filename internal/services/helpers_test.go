package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"hackergrows/internal/models"
	"hackergrows/internal/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *store.GormStore {
	t.Helper()
	return store.New(newTestDB(t))
}

// newTestDB opens a migrated in-memory database. Tests that need to corrupt
// rows behind the store's back keep the connection.
func newTestDB(t *testing.T) *gorm.DB {
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
	return conn
}

// stubTitles answers from a fixed map and records every lookup.
type stubTitles struct {
	mu     sync.Mutex
	titles map[string]string
	asked  []string
}

func (s *stubTitles) Title(ctx context.Context, rawURL, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, rawURL)
	if t, ok := s.titles[rawURL]; ok {
		return t
	}
	return fallback
}

// recordingNotifier keeps every link it was asked to send.
type recordingNotifier struct {
	mu           sync.Mutex
	verification map[string][]string
	reset        map[string][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verification: map[string][]string{}, reset: map[string][]string{}}
}

func (n *recordingNotifier) NotifyVerification(email, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification[email] = append(n.verification[email], link)
}

func (n *recordingNotifier) NotifyPasswordReset(email, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[email] = append(n.reset[email], link)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	store *store.GormStore
	forum *Forum
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	st := store.New(db)
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		store: st,
		forum: NewForum(st, &stubTitles{titles: map[string]string{}}),
	}
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(f.t, f.store.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) reloadUser(id uint) *models.User {
	f.t.Helper()
	u, err := f.store.GetUser(f.ctx, id)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) reload(id uint) *models.Item {
	f.t.Helper()
	item, err := f.store.GetItem(f.ctx, id)
	require.NoError(f.t, err)
	return item
}

func (f *fixture) story(userID uint, original, product string) *models.Item {
	f.t.Helper()
	item, err := f.forum.SubmitStory(f.ctx, userID, SubmitStoryInput{
		OriginalURL: original,
		ProductURL:  product,
		Title:       "A story",
	})
	require.NoError(f.t, err)
	return item
}

func (f *fixture) comment(userID, targetID uint, text string) *models.Item {
	f.t.Helper()
	item, err := f.forum.Reply(f.ctx, userID, targetID, text)
	require.NoError(f.t, err)
	return item
}

func (f *fixture) votes(itemID uint) []models.Vote {
	f.t.Helper()
	votes, err := f.store.ListVotes(f.ctx, itemID)
	require.NoError(f.t, err)
	return votes
}
