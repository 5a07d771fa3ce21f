package service

import (
	"context"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

type PaymentMethods struct {
	store storage.Store
}

type PaymentMethodInput struct {
	PaymentType models.PaymentType
	CardLast4   *string
	CardBrand   *string
	IsDefault   bool
}

func (s *PaymentMethods) List(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx, userID)
}

func (s *PaymentMethods) Default(ctx context.Context, userID int64) (*models.PaymentMethod, error) {
	return s.store.DefaultPaymentMethod(ctx, userID)
}

func (s *PaymentMethods) Create(ctx context.Context, userID int64, in PaymentMethodInput) (*models.PaymentMethod, error) {
	if !in.PaymentType.Valid() {
		return nil, invalid("paymentType must be card, wallet or bank_transfer")
	}
	if in.CardLast4 != nil && len(*in.CardLast4) != 4 {
		return nil, invalid("cardLast4 must be 4 characters")
	}
	pm := &models.PaymentMethod{
		UserID:      userID,
		PaymentType: in.PaymentType,
		CardLast4:   in.CardLast4,
		CardBrand:   in.CardBrand,
		IsDefault:   in.IsDefault,
		IsActive:    true,
	}
	if err := s.store.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, err
	}
	if pm.IsDefault {
		if err := s.clearOtherDefaults(ctx, userID, pm.ID); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Update changes one of the caller's methods. Methods of other users read as missing.
func (s *PaymentMethods) Update(ctx context.Context, userID, id int64, upd models.PaymentMethodUpdate) (*models.PaymentMethod, error) {
	pm, err := s.store.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if pm.UserID != userID {
		return nil, storage.ErrNotFound
	}
	if err := s.store.UpdatePaymentMethod(ctx, id, upd); err != nil {
		return nil, err
	}
	if upd.IsDefault != nil && *upd.IsDefault {
		if err := s.clearOtherDefaults(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	return s.store.GetPaymentMethod(ctx, id)
}

func (s *PaymentMethods) clearOtherDefaults(ctx context.Context, userID, keep int64) error {
	methods, err := s.store.ListPaymentMethods(ctx, userID)
	if err != nil {
		return err
	}
	off := false
	for _, m := range methods {
		if m.ID == keep || !m.IsDefault {
			continue
		}
		if err := s.store.UpdatePaymentMethod(ctx, m.ID, models.PaymentMethodUpdate{IsDefault: &off}); err != nil {
			return err
		}
	}
	return nil
}
