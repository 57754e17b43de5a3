package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/repository/docstore"
)

type userDirectory struct {
	store    repositories.DocumentStore
	accounts libsvc.AccountLookup
	logger   *slog.Logger
}

// NewUserDirectory creates the email directory. accounts may be nil; when set
// it is consulted for emails that have no profile yet.
func NewUserDirectory(store repositories.DocumentStore, accounts libsvc.AccountLookup, logger *slog.Logger) libsvc.UserDirectory {
	return &userDirectory{store: store, accounts: accounts, logger: logger}
}

func (d *userDirectory) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		return &domain.ValidationError{Message: "user id is required"}
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	path := docstore.Join(usersCollection, profile.ID)
	err := d.store.Update(ctx, path, profile.Data())
	if errors.Is(err, domain.ErrNotFound) {
		err = d.store.Set(ctx, path, profile.Data())
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (d *userDirectory) LookupByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	email = models.NormalizeEmail(email)
	docs, err := d.store.Query(ctx, usersCollection, repositories.Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	if len(docs) > 0 {
		return models.DecodeUserProfile(docs[0].ID, docs[0].Data)
	}

	if d.accounts != nil {
		id, err := d.accounts.FindUserByEmail(ctx, email)
		switch {
		case err == nil:
			profile := &models.UserProfile{ID: id, Email: email}
			if err := d.SaveProfile(ctx, profile); err != nil {
				d.logger.Warn("failed to cache account profile", "user_id", id, "error", err)
			}
			return profile, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("lookup %s: %w", email, err)
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("no account for %s", email)}
}
