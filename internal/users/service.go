package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
)

// Recipient is a resolved notification target.
type Recipient struct {
	ID    uuid.UUID
	Role  enums.RecipientRole
	Email string
	Name  string
}

// Service resolves order parties to contactable recipients.
type Service interface {
	ResolveBuyer(ctx context.Context, buyerID uuid.UUID) (*Recipient, error)
	ResolveSeller(ctx context.Context, sellerID uuid.UUID) (*Recipient, error)
	PushSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	PrunePushSubscription(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a users service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ResolveBuyer(ctx context.Context, buyerID uuid.UUID) (*Recipient, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	profile, err := s.repo.FindProfile(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer profile")
	}
	return &Recipient{
		ID:    profile.ID,
		Role:  enums.RecipientRoleBuyer,
		Email: profile.Email,
		Name:  profile.FullName,
	}, nil
}

func (s *service) ResolveSeller(ctx context.Context, sellerID uuid.UUID) (*Recipient, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	profile, err := s.repo.FindSellerProfile(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	return &Recipient{
		ID:    profile.ID,
		Role:  enums.RecipientRoleSeller,
		Email: profile.Email,
		Name:  profile.ShopName,
	}, nil
}

func (s *service) PushSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	rows, err := s.repo.ListPushSubscriptions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list push subscriptions")
	}
	return rows, nil
}

func (s *service) PrunePushSubscription(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePushSubscription(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete push subscription")
	}
	return nil
}
