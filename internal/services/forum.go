package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"hackergrows/internal/models"
	"hackergrows/internal/store"

	"github.com/go-playground/validator/v10"
)

const maxTitleRunes = 500

// TitleSource looks up a page title, returning fallback on any failure.
type TitleSource interface {
	Title(ctx context.Context, rawURL, fallback string) string
}

type SubmitStoryInput struct {
	OriginalURL string
	ProductURL  string
	Title       string
	Text        string
}

// Forum is the entry point for every mutation of stories, comments and
// votes. Each action runs as one transaction through an ordered pipeline:
// self-vote, duplicate check, tally and karma (inside the ledger), then
// comment recount.
type Forum struct {
	store      store.Store
	ledger     *Ledger
	duplicates *DuplicateResolver
	comments   *CommentCounter
	policy     Policy
	titles     TitleSource
	validate   *validator.Validate

	createStory   pipeline
	createComment pipeline
	deleteItem    pipeline
}

func NewForum(st store.Store, titles TitleSource) *Forum {
	ledger := NewLedger()
	f := &Forum{
		store:      st,
		ledger:     ledger,
		duplicates: NewDuplicateResolver(ledger),
		comments:   NewCommentCounter(),
		titles:     titles,
		validate:   validator.New(),
	}

	f.createStory = pipeline{
		{"insert", f.insertItem},
		{"self-vote", f.bootstrapSelfVote},
		{"duplicate-check", f.resolveDuplicate},
	}
	f.createComment = pipeline{
		{"insert", f.insertItem},
		{"self-vote", f.bootstrapSelfVote},
		{"comment-recount", f.countNewComment},
	}
	f.deleteItem = pipeline{
		{"authorize", f.authorizeDelete},
		{"uncast-votes", f.uncastVotes},
		{"comment-recount", f.countRemovedComment},
		{"detach-duplicates", f.detachDuplicates},
		{"remove", f.removeItem},
	}
	return f
}

// SubmitStory validates and stores a new story. Validation happens before
// anything is written; remote titles are looked up before the transaction
// opens.
func (f *Forum) SubmitStory(ctx context.Context, userID uint, in SubmitStoryInput) (*models.Item, error) {
	story, err := f.prepareStory(ctx, in)
	if err != nil {
		return nil, err
	}

	m := &mutation{
		actorID: userID,
		item: &models.Item{
			Kind:   models.KindStory,
			UserID: userID,
			Text:   in.Text,
			Story:  story,
		},
	}
	err = f.store.Transaction(ctx, func(tx store.Store) error {
		m.tx = tx
		return f.createStory.exec(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	itemsCreated.WithLabelValues(string(models.KindStory)).Inc()
	votesCast.WithLabelValues(effectLabel(m.selfVote.Effective)).Inc()
	if m.canonical != nil {
		duplicatesLinked.Inc()
		log.Printf("story %d is a duplicate of %d", m.item.ID, m.canonical.ID)
	}
	return f.store.GetItem(ctx, m.item.ID)
}

// AddComment adds a comment to a story, as a reply to parentID when set.
// The parent must be a comment of the same story.
func (f *Forum) AddComment(ctx context.Context, userID, storyID uint, parentID *uint, text string) (*models.Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	m := &mutation{actorID: userID}
	err := f.store.Transaction(ctx, func(tx store.Store) error {
		story, err := tx.GetItem(ctx, storyID)
		if err != nil {
			return err
		}
		if !story.IsStory() {
			return fmt.Errorf("%w: item %d is not a story", ErrInvalidParent, storyID)
		}

		if parentID != nil {
			parent, err := tx.GetItem(ctx, *parentID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: comment %d does not exist", ErrInvalidParent, *parentID)
			}
			if err != nil {
				return err
			}
			if !parent.IsComment() || parent.Comment == nil || parent.Comment.ToStoryID != storyID {
				return fmt.Errorf("%w: item %d is not a comment on story %d", ErrInvalidParent, *parentID, storyID)
			}
		}

		m.tx = tx
		m.item = &models.Item{
			Kind:    models.KindComment,
			UserID:  userID,
			Text:    text,
			Comment: &models.Comment{ToStoryID: storyID, ParentID: parentID},
		}
		return f.createComment.exec(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	itemsCreated.WithLabelValues(string(models.KindComment)).Inc()
	votesCast.WithLabelValues(effectLabel(m.selfVote.Effective)).Inc()
	return f.store.GetItem(ctx, m.item.ID)
}

// Reply comments on targetID: a story gets a top-level comment, a comment
// gets a reply in its thread.
func (f *Forum) Reply(ctx context.Context, userID, targetID uint, text string) (*models.Item, error) {
	target, err := f.store.GetItem(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsStory() {
		return f.AddComment(ctx, userID, target.ID, nil, text)
	}
	return f.AddComment(ctx, userID, target.StoryID(), &target.ID, text)
}

// CastVote is the public voting action. Downvotes are disabled and nobody
// may vote on their own item beyond the automatic self-vote.
func (f *Forum) CastVote(ctx context.Context, itemID, voterID uint, sign int) (*models.Vote, error) {
	var vote *models.Vote
	err := f.store.Transaction(ctx, func(tx store.Store) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if sign != 1 {
			return ErrForbiddenSign
		}
		if item.UserID == voterID {
			return ErrAlreadySelf
		}
		vote, err = f.ledger.Cast(ctx, tx, item, voterID, sign)
		return err
	})
	if err != nil {
		return nil, err
	}
	votesCast.WithLabelValues(effectLabel(vote.Effective)).Inc()
	return vote, nil
}

// RetractVote takes back the voter's effective vote on an item together
// with the inert repeats of the same sign, so a later vote counts again.
func (f *Forum) RetractVote(ctx context.Context, itemID, voterID uint) error {
	retracted := 0
	err := f.store.Transaction(ctx, func(tx store.Store) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.UserID == voterID {
			return ErrAlreadySelf
		}
		latest, err := tx.LatestEffectiveVote(ctx, itemID, voterID)
		if err != nil {
			return err
		}
		votes, err := tx.ListUserVotes(ctx, itemID, voterID, latest.Value)
		if err != nil {
			return err
		}

		// inert rows first: the effective one reverts counters last
		var effective []models.Vote
		for i := range votes {
			if votes[i].Effective {
				effective = append(effective, votes[i])
				continue
			}
			if err := f.ledger.Uncast(ctx, tx, item, &votes[i], withdrawAction(votes[i].Value)); err != nil {
				return err
			}
			retracted++
		}
		for i := range effective {
			if err := f.ledger.Uncast(ctx, tx, item, &effective[i], withdrawAction(effective[i].Value)); err != nil {
				return err
			}
			retracted++
		}
		return nil
	})
	if err != nil {
		return err
	}
	votesRetracted.Add(float64(retracted))
	return nil
}

// DeleteItem removes an item its owner may still delete, reverting every
// vote on it first so karma stays in line.
func (f *Forum) DeleteItem(ctx context.Context, itemID, actorID uint) error {
	m := &mutation{actorID: actorID}
	err := f.store.Transaction(ctx, func(tx store.Store) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		m.tx = tx
		m.item = item
		return f.deleteItem.exec(ctx, m)
	})
	if err != nil {
		return err
	}
	itemsDeleted.WithLabelValues(string(m.item.Kind)).Inc()
	log.Printf("deleted %s %d: %d votes reverted, %d duplicates detached", m.item.Kind, itemID, m.uncast, m.detached)
	return nil
}

// EditItem replaces the text of an item. Only text is ever editable; link
// fields of a story never change after submission.
func (f *Forum) EditItem(ctx context.Context, itemID, actorID uint, text string) (*models.Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	err := f.store.Transaction(ctx, func(tx store.Store) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		ok, err := f.policy.CanEdit(ctx, tx, item, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}
		return tx.UpdateItemText(ctx, itemID, text)
	})
	if err != nil {
		return nil, err
	}
	return f.store.GetItem(ctx, itemID)
}

func (f *Forum) GetItem(ctx context.Context, itemID uint) (*models.Item, error) {
	return f.store.GetItem(ctx, itemID)
}

// ListComments returns the whole thread under a story, oldest first.
func (f *Forum) ListComments(ctx context.Context, storyID uint) ([]models.Item, error) {
	return f.store.ListComments(ctx, storyID)
}

// Permissions reports what actorID may do with item right now.
func (f *Forum) Permissions(ctx context.Context, item *models.Item, actorID uint) (canEdit, canDelete bool, err error) {
	if canEdit, err = f.policy.CanEdit(ctx, f.store, item, actorID); err != nil {
		return false, false, err
	}
	if canDelete, err = f.policy.CanDelete(ctx, f.store, item, actorID); err != nil {
		return false, false, err
	}
	return canEdit, canDelete, nil
}

// Story preparation

func (f *Forum) prepareStory(ctx context.Context, in SubmitStoryInput) (*models.Story, error) {
	original := strings.TrimSpace(in.OriginalURL)
	product := strings.TrimSpace(in.ProductURL)
	if original == "" {
		return nil, ErrMissingOriginalURL
	}
	if product == "" {
		return nil, ErrMissingProductURL
	}

	originalDomain, err := f.domainOf(original)
	if err != nil {
		return nil, err
	}
	productDomain, err := f.domainOf(product)
	if err != nil {
		return nil, err
	}

	story := &models.Story{
		OriginalURL:    original,
		ProductURL:     product,
		OriginalDomain: originalDomain,
		ProductDomain:  productDomain,
		Title:          strings.TrimSpace(in.Title),
	}
	if story.Title == "" {
		story.Title = f.lookupTitle(ctx, original)
	}
	story.ProductTitle = f.lookupTitle(ctx, product)
	story.Title = truncateRunes(story.Title, maxTitleRunes)
	story.ProductTitle = truncateRunes(story.ProductTitle, maxTitleRunes)

	lower := strings.ToLower(story.Title)
	story.IsAsk = strings.HasPrefix(lower, "ask")
	story.IsShow = strings.HasPrefix(lower, "show")
	return story, nil
}

func (f *Forum) domainOf(raw string) (string, error) {
	if err := f.validate.Var(raw, "url"); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return strings.ToLower(u.Hostname()), nil
}

func (f *Forum) lookupTitle(ctx context.Context, rawURL string) string {
	if f.titles == nil {
		return rawURL
	}
	return f.titles.Title(ctx, rawURL, rawURL)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Pipeline steps

func (f *Forum) insertItem(ctx context.Context, m *mutation) error {
	if _, err := m.tx.GetUser(ctx, m.item.UserID); err != nil {
		return fmt.Errorf("owner %d: %w", m.item.UserID, err)
	}
	return m.tx.CreateItem(ctx, m.item)
}

func (f *Forum) bootstrapSelfVote(ctx context.Context, m *mutation) error {
	vote, err := f.ledger.Cast(ctx, m.tx, m.item, m.item.UserID, 1)
	if err != nil {
		return err
	}
	m.selfVote = vote
	return nil
}

func (f *Forum) resolveDuplicate(ctx context.Context, m *mutation) error {
	canonical, err := f.duplicates.Resolve(ctx, m.tx, m.item)
	if err != nil {
		return err
	}
	m.canonical = canonical
	return nil
}

func (f *Forum) countNewComment(ctx context.Context, m *mutation) error {
	return f.comments.Propagate(ctx, m.tx, m.item, 1)
}

func (f *Forum) authorizeDelete(ctx context.Context, m *mutation) error {
	ok, err := f.policy.CanDelete(ctx, m.tx, m.item, m.actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (f *Forum) uncastVotes(ctx context.Context, m *mutation) error {
	votes, err := m.tx.ListVotes(ctx, m.item.ID)
	if err != nil {
		return err
	}
	for i := range votes {
		if err := f.ledger.Uncast(ctx, m.tx, m.item, &votes[i], ActionItemDeleted); err != nil {
			return err
		}
		m.uncast++
	}
	return nil
}

func (f *Forum) countRemovedComment(ctx context.Context, m *mutation) error {
	if !m.item.IsComment() {
		return nil
	}
	return f.comments.Propagate(ctx, m.tx, m.item, -1)
}

func (f *Forum) detachDuplicates(ctx context.Context, m *mutation) error {
	if !m.item.IsStory() {
		return nil
	}
	n, err := m.tx.DetachDuplicates(ctx, m.item.ID)
	if err != nil {
		return err
	}
	m.detached = n
	return nil
}

func (f *Forum) removeItem(ctx context.Context, m *mutation) error {
	err := m.tx.DeleteItem(ctx, m.item.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("item %d vanished: %w", m.item.ID, err)
	}
	return err
}
