package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/mailer"
	"github.com/winimarket/winimarket-backend/pkg/metrics"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
	"github.com/winimarket/winimarket-backend/pkg/webpush"
)

const deliveryConsumerName = "notification-delivery"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer delivers queued notifications: email with bounded retries,
// push best-effort. Redis idempotency plus the sent-log unique index
// keep redelivered messages from double-sending.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	repo         Repository
	users        users.Service
	sender       mailer.Sender
	pusher       webpush.Pusher
	manager      idempotencyChecker
	delivery     *metrics.DeliveryMetrics
	cfg          config.DispatchConfig
	logg         *logger.Logger
}

// NewConsumer builds the notification delivery consumer.
func NewConsumer(
	subscription *gcppubsub.Subscriber,
	repo Repository,
	usersSvc users.Service,
	sender mailer.Sender,
	pusher webpush.Pusher,
	manager idempotencyChecker,
	delivery *metrics.DeliveryMetrics,
	cfg config.DispatchConfig,
	logg *logger.Logger,
) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("notification subscription is required")
	}
	if repo == nil {
		return nil, errors.New("dispatch repository is required")
	}
	if usersSvc == nil {
		return nil, errors.New("users service is required")
	}
	if sender == nil {
		return nil, errors.New("mail sender is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if delivery == nil {
		return nil, errors.New("delivery metrics are required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.MaxSendAttempts <= 0 {
		return nil, fmt.Errorf("max send attempts must be positive, got %d", cfg.MaxSendAttempts)
	}
	return &Consumer{
		subscription: subscription,
		repo:         repo,
		users:        usersSvc,
		sender:       sender,
		pusher:       pusher,
		manager:      manager,
		delivery:     delivery,
		cfg:          cfg,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes notification messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	if eventType := msg.Attributes["event_type"]; eventType != "" &&
		eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "event not handled by delivery consumer")
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode payload envelope", err)
		return processResult{}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{"event_id": envelope.EventID})

	var request payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &request); err != nil {
		c.logg.Error(logCtx, "failed to decode notification request", err)
		return processResult{}
	}
	logCtx = c.logg.WithOrderID(logCtx, request.OrderID.String())

	already, err := c.manager.CheckAndMarkProcessed(logCtx, deliveryConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "notification already processed")
		return processResult{}
	}

	if err := c.deliver(logCtx, request); err != nil {
		c.logg.Error(logCtx, "notification delivery failed", err)
		_ = c.manager.Delete(logCtx, deliveryConsumerName, eventID)
		return processResult{nack: true}
	}
	return processResult{}
}

// deliver sends the email and marks the log row. Exhausted or permanent
// email failures mark the row failed and are not redelivered.
func (c *Consumer) deliver(ctx context.Context, request payloads.NotificationRequestedEvent) error {
	log, err := c.repo.FindByID(ctx, request.LogID)
	if err != nil {
		return fmt.Errorf("load notification log: %w", err)
	}
	if log.Status == enums.EmailLogStatusSent {
		c.logg.Info(ctx, "notification already sent")
		return nil
	}

	route, ok := RouteFor(request.Event, request.RecipientRole)
	if !ok {
		c.logg.Warn(ctx, "no route for notification, skipping")
		c.delivery.IncSkipped("email", string(request.Event))
		return nil
	}

	html, text, err := RenderEmail(route.Template, TemplateData{
		RecipientName: request.RecipientName,
		OrderRef:      shortOrderRef(request.OrderID),
		Subject:       request.Subject,
		CTA:           route.CTA,
	})
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	message := mailer.Message{
		To:       request.RecipientEmail,
		ToName:   request.RecipientName,
		Subject:  request.Subject,
		HTMLBody: html,
		TextBody: text,
	}

	attempts := 0
	start := time.Now()
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxSendAttempts-1), retry.NewExponential(c.cfg.RetryBaseDelay))
	sendErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := c.sender.Send(ctx, message)
		if err == nil {
			return nil
		}
		if mailer.IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	c.delivery.ObserveDuration("email", time.Since(start))

	if sendErr != nil {
		c.delivery.IncFailed("email", string(request.Event))
		if err := c.repo.MarkFailed(ctx, log.ID, attempts, sendErr); err != nil {
			return fmt.Errorf("mark notification failed: %w", err)
		}
		c.logg.Error(ctx, "notification email exhausted retries", sendErr)
		return nil
	}

	if err := c.repo.MarkSent(ctx, log.ID, attempts); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	c.delivery.IncSent("email", string(request.Event))

	c.push(ctx, request)
	return nil
}

// push is best-effort: failures are logged, dead subscriptions pruned.
func (c *Consumer) push(ctx context.Context, request payloads.NotificationRequestedEvent) {
	if c.pusher == nil || request.RecipientID == uuid.Nil {
		return
	}
	subs, err := c.users.PushSubscriptions(ctx, request.RecipientID)
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "failed to list push subscriptions")
		return
	}

	notification := webpush.Notification{
		Title: request.Subject,
		Body:  fmt.Sprintf("Order %s", shortOrderRef(request.OrderID)),
	}
	start := time.Now()
	for _, sub := range subs {
		err := c.pusher.Push(ctx, webpush.Subscription{
			Endpoint: sub.Endpoint,
			P256DH:   sub.P256DH,
			Auth:     sub.Auth,
		}, notification)
		if err == nil {
			c.delivery.IncSent("push", string(request.Event))
			continue
		}
		if errors.Is(err, webpush.ErrSubscriptionGone) {
			if pruneErr := c.users.PrunePushSubscription(ctx, sub.ID); pruneErr != nil {
				c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": pruneErr.Error()}), "failed to prune push subscription")
			}
			c.delivery.IncSkipped("push", string(request.Event))
			continue
		}
		c.delivery.IncFailed("push", string(request.Event))
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "push delivery failed")
	}
	c.delivery.ObserveDuration("push", time.Since(start))
}

func shortOrderRef(orderID uuid.UUID) string {
	raw := orderID.String()
	if len(raw) >= 8 {
		return "#" + raw[:8]
	}
	return "#" + raw
}
