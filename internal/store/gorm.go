package store

import (
	"context"
	"errors"
	"time"

	"hackergrows/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of GORM. Counter writes use column
// expressions so concurrent updates of the same row never lose increments.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) AdjustKarma(ctx context.Context, userID uint, itemID *uint, amount int, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. ledger row
		entry := models.KarmaLog{
			UserID: userID,
			ItemID: itemID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// 2. balance
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("karma", gorm.Expr("karma + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) ListKarmaLogs(ctx context.Context, userID uint, limit int) ([]models.KarmaLog, error) {
	var logs []models.KarmaLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, translate(err)
}

// Items

func (s *GormStore) CreateItem(ctx context.Context, item *models.Item) error {
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

func (s *GormStore) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Story").Preload("Comment").
		First(&item, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// GetItemForUpdate locks the item row with SELECT ... FOR UPDATE. sqlite
// has no row locks and serializes writers instead.
func (s *GormStore) GetItemForUpdate(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error
	if err != nil {
		return nil, translate(err)
	}
	// detail rows are loaded separately, FOR UPDATE does not mix with preload joins
	return s.GetItem(ctx, item.ID)
}

func (s *GormStore) UpdateItemText(ctx context.Context, id uint, text string) error {
	res := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"text": text, "changed_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem hard deletes the item and its detail row. Votes are the
// engine's business and must be gone already.
func (s *GormStore) DeleteItem(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.Story{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Item{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) AdjustTally(ctx context.Context, itemID uint, delta models.Tally) error {
	res := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumns(map[string]interface{}{
			"upvotes":    gorm.Expr("upvotes + ?", delta.Upvotes),
			"downvotes":  gorm.Expr("downvotes + ?", delta.Downvotes),
			"points":     gorm.Expr("points + ?", delta.Points),
			"changed_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AdjustNumComments(ctx context.Context, itemID uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumns(map[string]interface{}{
			"num_comments": gorm.Expr("num_comments + ?", delta),
			"changed_at":   time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindDuplicateStories(ctx context.Context, originalURL, productURL string, excludeID uint) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Joins("JOIN stories ON stories.item_id = items.id").
		Where("items.kind = ?", models.KindStory).
		Where("stories.original_url = ? AND stories.product_url = ?", originalURL, productURL).
		Where("items.id <> ?", excludeID).
		Order("items.changed_at DESC, items.id DESC").
		Preload("Story").
		Find(&items).Error
	return items, translate(err)
}

func (s *GormStore) SetDuplicateOf(ctx context.Context, storyID uint, canonicalID *uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Story{}).
			Where("item_id = ?", storyID).
			UpdateColumn("duplicate_of_id", canonicalID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Item{}).
			Where("id = ?", storyID).
			UpdateColumn("changed_at", time.Now()).Error
	})
}

func (s *GormStore) DetachDuplicates(ctx context.Context, canonicalID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Story{}).
		Where("duplicate_of_id = ?", canonicalID).
		UpdateColumn("duplicate_of_id", nil)
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) ListComments(ctx context.Context, storyID uint) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Joins("JOIN comments ON comments.item_id = items.id").
		Where("comments.to_story_id = ?", storyID).
		Order("items.created_at ASC, items.id ASC").
		Preload("User").Preload("Comment").
		Find(&items).Error
	return items, translate(err)
}

func (s *GormStore) ListChildCommentIDs(ctx context.Context, parentID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", parentID).
		Order("item_id ASC").
		Pluck("item_id", &ids).Error
	return ids, translate(err)
}

func (s *GormStore) CountChildComments(ctx context.Context, parentID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) CountStoryComments(ctx context.Context, storyID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("to_story_id = ?", storyID).
		Count(&count).Error
	return count, translate(err)
}

// Votes

func (s *GormStore) CreateVote(ctx context.Context, vote *models.Vote) error {
	return translate(s.db.WithContext(ctx).Create(vote).Error)
}

func (s *GormStore) DeleteVote(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Vote{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkVoteEffective(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("id = ?", id).
		UpdateColumn("effective", true).Error)
}

func (s *GormStore) CountOtherVotes(ctx context.Context, itemID, userID uint, value int, excludeID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("item_id = ? AND user_id = ? AND value = ?", itemID, userID, value).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) ListVotes(ctx context.Context, itemID uint) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id ASC").
		Find(&votes).Error
	return votes, translate(err)
}

func (s *GormStore) LatestEffectiveVote(ctx context.Context, itemID, userID uint) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ? AND effective = ?", itemID, userID, true).
		Order("id DESC").
		First(&vote).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

func (s *GormStore) ListUserVotes(ctx context.Context, itemID, userID uint, value int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ? AND value = ?", itemID, userID, value).
		Order("id ASC").
		Find(&votes).Error
	return votes, translate(err)
}

// Accounts

func (s *GormStore) CreateEmailVerification(ctx context.Context, v *models.EmailVerification) error {
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *GormStore) CountEmailVerifications(ctx context.Context, userID uint, email string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.EmailVerification{}).
		Where("user_id = ? AND email = ?", userID, email).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) GetEmailVerification(ctx context.Context, token string) (*models.EmailVerification, error) {
	var v models.EmailVerification
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *GormStore) MarkEmailVerified(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Model(&models.EmailVerification{}).
		Where("id = ?", id).
		UpdateColumn("verified", true).Error)
}

func (s *GormStore) CreatePasswordResetRequest(ctx context.Context, r *models.PasswordResetRequest) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *GormStore) GetPasswordResetRequest(ctx context.Context, token string) (*models.PasswordResetRequest, error) {
	var r models.PasswordResetRequest
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) DeletePasswordResetRequest(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.PasswordResetRequest{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Audit

func (s *GormStore) ListItemIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Item{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, translate(err)
}

func (s *GormStore) ListUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, translate(err)
}

func (s *GormStore) CountEffectiveVotes(ctx context.Context, itemID uint, value int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("item_id = ? AND value = ? AND effective = ?", itemID, value, true).
		Count(&count).Error
	return count, translate(err)
}

// SumReceivedKarma adds up the effective votes other users cast on the
// user's items.
func (s *GormStore) SumReceivedKarma(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("COALESCE(SUM(votes.value), 0)").
		Joins("JOIN items ON items.id = votes.item_id").
		Where("items.user_id = ? AND votes.user_id <> items.user_id AND votes.effective = ?", userID, true).
		Scan(&total).Error
	return total, translate(err)
}

func (s *GormStore) OverwriteCounters(ctx context.Context, itemID uint, tally models.Tally, numComments int) error {
	return translate(s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumns(map[string]interface{}{
			"upvotes":      tally.Upvotes,
			"downvotes":    tally.Downvotes,
			"points":       tally.Points,
			"num_comments": numComments,
		}).Error)
}
