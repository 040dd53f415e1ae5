package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
	"hackergrows/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const minPasswordLen = 6

// Accounts handles sign-up, login and the email verification and password
// reset records. Each new record is handed to the Notifier after commit.
type Accounts struct {
	store    store.Store
	notifier Notifier
	siteURL  string
	validate *validator.Validate
}

func NewAccounts(st store.Store, notifier Notifier, siteURL string) *Accounts {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Accounts{
		store:    st,
		notifier: notifier,
		siteURL:  strings.TrimRight(siteURL, "/"),
		validate: validator.New(),
	}
}

func (a *Accounts) normalizeEmail(email string) (string, error) {
	email = models.NormalizeEmail(email)
	if err := a.validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates an account. The address is stored lowercase and gets a
// verification record.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	email, err := a.normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, Password: hashed}
	var verification *models.EmailVerification
	err = a.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrEmailTaken
			}
			return err
		}
		verification, err = ensureVerification(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.sendVerification(verification)
	return user, nil
}

// Authenticate matches email case-insensitively and checks the password.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangeEmail stores a new address for the user. An address the user had
// before does not get a second verification.
func (a *Accounts) ChangeEmail(ctx context.Context, userID uint, email string) (*models.User, error) {
	email, err := a.normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var (
		user         *models.User
		verification *models.EmailVerification
	)
	err = a.store.Transaction(ctx, func(tx store.Store) error {
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Email == email {
			return nil
		}

		user.Email = email
		if err := tx.SaveUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrEmailTaken
			}
			return err
		}
		verification, err = ensureVerification(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.sendVerification(verification)
	return user, nil
}

// VerifyEmail confirms the address behind token.
func (a *Accounts) VerifyEmail(ctx context.Context, token string) (*models.EmailVerification, error) {
	v, err := a.store.GetEmailVerification(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if err := a.store.MarkEmailVerified(ctx, v.ID); err != nil {
		return nil, err
	}
	v.Verified = true
	return v, nil
}

// RequestPasswordReset records a reset request for the account behind
// email. Unknown addresses are accepted silently.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	req := &models.PasswordResetRequest{UserID: user.ID, Token: uuid.NewString()}
	if err := a.store.CreatePasswordResetRequest(ctx, req); err != nil {
		return err
	}
	a.notifier.NotifyPasswordReset(user.Email, a.siteURL+"/reset/"+req.Token)
	return nil
}

// ResetPassword sets a new password using a reset token. Tokens are single use.
func (a *Accounts) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return a.store.Transaction(ctx, func(tx store.Store) error {
		req, err := tx.GetPasswordResetRequest(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		user.Password = hashed
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}
		return tx.DeletePasswordResetRequest(ctx, req.ID)
	})
}

func (a *Accounts) sendVerification(v *models.EmailVerification) {
	if v == nil {
		return
	}
	a.notifier.NotifyVerification(v.Email, a.siteURL+"/verify/"+v.Token)
}

// ensureVerification creates the verification for the user's current
// address unless one already exists. It returns nil when nothing was created.
func ensureVerification(ctx context.Context, tx store.Store, user *models.User) (*models.EmailVerification, error) {
	if user.Email == "" {
		return nil, nil
	}
	n, err := tx.CountEmailVerifications(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}

	v := &models.EmailVerification{
		UserID: user.ID,
		Email:  user.Email,
		Token:  uuid.NewString(),
	}
	if err := tx.CreateEmailVerification(ctx, v); err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}
	return v, nil
}
