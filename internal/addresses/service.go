package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries the fields for a new shipping address.
type CreateInput struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      *string
	City       string
	Region     string
	Country    string
	PostalCode *string
	IsDefault  bool
}

// UpdateInput carries optional address field changes.
type UpdateInput struct {
	Recipient  *string
	Phone      *string
	Line1      *string
	Line2      *string
	City       *string
	Region     *string
	PostalCode *string
	IsDefault  *bool
}

// Service manages buyer-owned shipping addresses. Ownership misses are
// reported as not-found so address ids cannot be probed.
type Service interface {
	Create(ctx context.Context, buyerID uuid.UUID, input CreateInput) (*models.ShippingAddress, error)
	List(ctx context.Context, buyerID uuid.UUID) ([]models.ShippingAddress, error)
	Resolve(ctx context.Context, buyerID, addressID uuid.UUID) (*models.ShippingAddress, error)
	Update(ctx context.Context, buyerID, addressID uuid.UUID, input UpdateInput) (*models.ShippingAddress, error)
	Delete(ctx context.Context, buyerID, addressID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an addresses service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("addresses repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, buyerID uuid.UUID, input CreateInput) (*models.ShippingAddress, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	for field, value := range map[string]string{
		"recipient": input.Recipient,
		"phone":     input.Phone,
		"line1":     input.Line1,
		"city":      input.City,
		"region":    input.Region,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}
	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = "GH"
	}

	address := &models.ShippingAddress{
		BuyerID:    buyerID,
		Recipient:  strings.TrimSpace(input.Recipient),
		Phone:      strings.TrimSpace(input.Phone),
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      input.Line2,
		City:       strings.TrimSpace(input.City),
		Region:     strings.TrimSpace(input.Region),
		Country:    country,
		PostalCode: input.PostalCode,
		IsDefault:  input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if address.IsDefault {
			if err := repo.ClearDefault(ctx, buyerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if _, err := repo.Create(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]models.ShippingAddress, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

func (s *service) Resolve(ctx context.Context, buyerID, addressID uuid.UUID) (*models.ShippingAddress, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, buyerID, addressID uuid.UUID, input UpdateInput) (*models.ShippingAddress, error) {
	address, err := s.Resolve(ctx, buyerID, addressID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setTrimmed := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be empty")
		}
		updates[column] = trimmed
		return nil
	}
	if err := setTrimmed("recipient", input.Recipient); err != nil {
		return nil, err
	}
	if err := setTrimmed("phone", input.Phone); err != nil {
		return nil, err
	}
	if err := setTrimmed("line1", input.Line1); err != nil {
		return nil, err
	}
	if err := setTrimmed("city", input.City); err != nil {
		return nil, err
	}
	if err := setTrimmed("region", input.Region); err != nil {
		return nil, err
	}
	if input.Line2 != nil {
		updates["line2"] = input.Line2
	}
	if input.PostalCode != nil {
		updates["postal_code"] = input.PostalCode
	}
	if input.IsDefault != nil {
		updates["is_default"] = *input.IsDefault
	}
	if len(updates) == 0 {
		return address, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if makeDefault, ok := updates["is_default"].(bool); ok && makeDefault {
			if err := repo.ClearDefault(ctx, buyerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := repo.Update(ctx, address.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, buyerID, addressID)
}

func (s *service) Delete(ctx context.Context, buyerID, addressID uuid.UUID) error {
	address, err := s.Resolve(ctx, buyerID, addressID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, address.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}
