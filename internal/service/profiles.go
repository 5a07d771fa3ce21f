package service

import (
	"context"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

type Profiles struct {
	store storage.Store
}

type ProfileInput struct {
	UserType    models.UserType
	PhoneNumber *string
	Bio         *string
}

func (p *Profiles) Get(ctx context.Context, userID int64) (*models.UserProfile, error) {
	return p.store.GetUserProfile(ctx, userID)
}

func (p *Profiles) Create(ctx context.Context, userID int64, in ProfileInput) (*models.UserProfile, error) {
	if !in.UserType.Valid() {
		return nil, invalid("userType must be rider, driver or both")
	}
	prof := &models.UserProfile{
		UserID:      userID,
		UserType:    in.UserType,
		PhoneNumber: in.PhoneNumber,
		Bio:         in.Bio,
	}
	if err := p.store.CreateUserProfile(ctx, prof); err != nil {
		return nil, err
	}
	return prof, nil
}

// Update changes the caller-editable fields. Rating and totals are maintained by the
// ride and rating flows.
func (p *Profiles) Update(ctx context.Context, userID int64, upd models.ProfileUpdate) (*models.UserProfile, error) {
	if upd.UserType != nil && !upd.UserType.Valid() {
		return nil, invalid("userType must be rider, driver or both")
	}
	upd.Rating = nil
	if err := p.store.UpdateUserProfile(ctx, userID, upd); err != nil {
		return nil, err
	}
	return p.store.GetUserProfile(ctx, userID)
}
