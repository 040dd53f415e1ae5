package store

import (
	"context"
	"errors"

	"hackergrows/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// UserStore persists accounts and their karma.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// AdjustKarma adds amount to the user's karma and writes a KarmaLog row.
	AdjustKarma(ctx context.Context, userID uint, itemID *uint, amount int, action string) error
	ListKarmaLogs(ctx context.Context, userID uint, limit int) ([]models.KarmaLog, error)
}

// ItemStore persists stories and comments.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	// GetItem loads the item with its owner and its Story or Comment row.
	GetItem(ctx context.Context, id uint) (*models.Item, error)
	// GetItemForUpdate is GetItem holding a row lock until the transaction
	// ends. Every action that reads votes before writing counters takes it.
	GetItemForUpdate(ctx context.Context, id uint) (*models.Item, error)
	UpdateItemText(ctx context.Context, id uint, text string) error
	DeleteItem(ctx context.Context, id uint) error

	AdjustTally(ctx context.Context, itemID uint, delta models.Tally) error
	AdjustNumComments(ctx context.Context, itemID uint, delta int) error

	// FindDuplicateStories returns stories with the same link pair, most
	// recently changed first.
	FindDuplicateStories(ctx context.Context, originalURL, productURL string, excludeID uint) ([]models.Item, error)
	SetDuplicateOf(ctx context.Context, storyID uint, canonicalID *uint) error
	// DetachDuplicates clears duplicate_of on every story pointing at canonicalID.
	DetachDuplicates(ctx context.Context, canonicalID uint) (int64, error)

	ListComments(ctx context.Context, storyID uint) ([]models.Item, error)
	ListChildCommentIDs(ctx context.Context, parentID uint) ([]uint, error)
	CountChildComments(ctx context.Context, parentID uint) (int64, error)
	CountStoryComments(ctx context.Context, storyID uint) (int64, error)
}

// VoteStore persists vote rows.
type VoteStore interface {
	CreateVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, id uint) error
	MarkVoteEffective(ctx context.Context, id uint) error
	// CountOtherVotes counts votes with the same (item, user, value), ignoring excludeID.
	CountOtherVotes(ctx context.Context, itemID, userID uint, value int, excludeID uint) (int64, error)
	ListVotes(ctx context.Context, itemID uint) ([]models.Vote, error)
	LatestEffectiveVote(ctx context.Context, itemID, userID uint) (*models.Vote, error)
	// ListUserVotes returns the user's rows of one sign on an item, oldest first.
	ListUserVotes(ctx context.Context, itemID, userID uint, value int) ([]models.Vote, error)
}

// AccountStore persists the records the mail collaborator reacts to.
type AccountStore interface {
	CreateEmailVerification(ctx context.Context, v *models.EmailVerification) error
	CountEmailVerifications(ctx context.Context, userID uint, email string) (int64, error)
	GetEmailVerification(ctx context.Context, token string) (*models.EmailVerification, error)
	MarkEmailVerified(ctx context.Context, id uint) error
	CreatePasswordResetRequest(ctx context.Context, r *models.PasswordResetRequest) error
	GetPasswordResetRequest(ctx context.Context, token string) (*models.PasswordResetRequest, error)
	DeletePasswordResetRequest(ctx context.Context, id uint) error
}

// AuditStore backs the reconciler.
type AuditStore interface {
	ListItemIDs(ctx context.Context) ([]uint, error)
	ListUserIDs(ctx context.Context) ([]uint, error)
	CountEffectiveVotes(ctx context.Context, itemID uint, value int) (int64, error)
	SumReceivedKarma(ctx context.Context, userID uint) (int64, error)
	OverwriteCounters(ctx context.Context, itemID uint, tally models.Tally, numComments int) error
}

// Store is the transactional entity store the engine runs against.
type Store interface {
	UserStore
	ItemStore
	VoteStore
	AccountStore
	AuditStore

	// Transaction runs fn as one unit of work. The Store handed to fn must be
	// used for every read and write inside it.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
