package dispatch

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service fans an order state change out to its parties. Enqueueing is
// transactional with the state change: the log row and the outbox event
// commit or roll back together with the caller's update.
type Service interface {
	Notify(ctx context.Context, tx *gorm.DB, order *models.Order, event enums.OrderEvent) error
}

type service struct {
	repo      Repository
	users     users.Service
	publisher outboxPublisher
	logg      *logger.Logger
}

// NewService builds the dispatch service after validating the routing
// table covers every order event.
func NewService(repo Repository, usersSvc users.Service, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if usersSvc == nil {
		return nil, fmt.Errorf("users service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if _, err := Routes(); err != nil {
		return nil, err
	}
	return &service{repo: repo, users: usersSvc, publisher: publisher, logg: logg}, nil
}

func (s *service) Notify(ctx context.Context, tx *gorm.DB, order *models.Order, event enums.OrderEvent) error {
	byRole, ok := routes[event]
	if !ok {
		return fmt.Errorf("no notification route for event %s", event)
	}
	repo := s.repo.WithTx(tx)

	// Buyer first, then seller, so retried transactions enqueue in a
	// stable order.
	for _, role := range []enums.RecipientRole{enums.RecipientRoleBuyer, enums.RecipientRoleSeller} {
		route, ok := byRole[role]
		if !ok {
			continue
		}
		recipient, err := s.resolveRecipient(ctx, order, role)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "notification recipient missing, skipping")
				continue
			}
			return err
		}
		if recipient == nil {
			continue
		}

		sent, err := repo.ExistsSent(ctx, order.ID, event, recipient.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check notification log")
		}
		if sent {
			continue
		}

		log, err := repo.Create(ctx, &models.OrderEmailLog{
			OrderID:        order.ID,
			Event:          event,
			RecipientRole:  role,
			RecipientEmail: recipient.Email,
			Subject:        route.Subject,
			Status:         enums.EmailLogStatusPending,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification log")
		}

		err = s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   log.ID,
			Data: payloads.NotificationRequestedEvent{
				LogID:          log.ID,
				OrderID:        order.ID,
				Event:          event,
				RecipientRole:  role,
				RecipientEmail: recipient.Email,
				RecipientName:  recipient.Name,
				RecipientID:    recipient.ID,
				Subject:        route.Subject,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) resolveRecipient(ctx context.Context, order *models.Order, role enums.RecipientRole) (*users.Recipient, error) {
	switch role {
	case enums.RecipientRoleBuyer:
		return s.users.ResolveBuyer(ctx, order.BuyerID)
	case enums.RecipientRoleSeller:
		if order.SellerID == nil {
			return nil, nil
		}
		return s.users.ResolveSeller(ctx, *order.SellerID)
	default:
		return nil, fmt.Errorf("unknown recipient role %s", role)
	}
}
