package dispatch

import (
	"fmt"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// RouteConfig describes the email rendered for one (event, role) pair.
type RouteConfig struct {
	Template string
	Subject  string
	CTA      string
}

// routes is the static notification routing table. An event missing a
// role simply does not notify that party.
var routes = map[enums.OrderEvent]map[enums.RecipientRole]RouteConfig{
	enums.OrderEventCreated: {
		enums.RecipientRoleBuyer: {
			Template: "order_created_buyer",
			Subject:  "Your order has been placed",
			CTA:      "View order",
		},
		enums.RecipientRoleSeller: {
			Template: "order_created_seller",
			Subject:  "You have a new order",
			CTA:      "View order",
		},
	},
	enums.OrderEventPaid: {
		enums.RecipientRoleBuyer: {
			Template: "order_paid_buyer",
			Subject:  "Payment received for your order",
			CTA:      "View order",
		},
		enums.RecipientRoleSeller: {
			Template: "order_paid_seller",
			Subject:  "An order has been paid",
			CTA:      "Start fulfillment",
		},
	},
	enums.OrderEventPaymentFailed: {
		enums.RecipientRoleBuyer: {
			Template: "payment_failed_buyer",
			Subject:  "Your payment did not go through",
			CTA:      "Retry payment",
		},
	},
	enums.OrderEventShipped: {
		enums.RecipientRoleBuyer: {
			Template: "order_shipped_buyer",
			Subject:  "Your order has shipped",
			CTA:      "Track order",
		},
	},
	enums.OrderEventDelivered: {
		enums.RecipientRoleBuyer: {
			Template: "order_delivered_buyer",
			Subject:  "Your order has been delivered",
			CTA:      "Confirm delivery",
		},
	},
	enums.OrderEventCompleted: {
		enums.RecipientRoleBuyer: {
			Template: "order_completed_buyer",
			Subject:  "Order complete",
			CTA:      "View order",
		},
		enums.RecipientRoleSeller: {
			Template: "order_completed_seller",
			Subject:  "Delivery confirmed, funds released",
			CTA:      "View payout",
		},
	},
	enums.OrderEventCancelled: {
		enums.RecipientRoleBuyer: {
			Template: "order_cancelled_buyer",
			Subject:  "Your order was cancelled",
			CTA:      "View order",
		},
		enums.RecipientRoleSeller: {
			Template: "order_cancelled_seller",
			Subject:  "An order was cancelled",
			CTA:      "View order",
		},
	},
}

// Routes returns the routing table after checking it covers every
// known order event.
func Routes() (map[enums.OrderEvent]map[enums.RecipientRole]RouteConfig, error) {
	for _, event := range []enums.OrderEvent{
		enums.OrderEventCreated,
		enums.OrderEventPaid,
		enums.OrderEventPaymentFailed,
		enums.OrderEventShipped,
		enums.OrderEventDelivered,
		enums.OrderEventCompleted,
		enums.OrderEventCancelled,
	} {
		if len(routes[event]) == 0 {
			return nil, fmt.Errorf("no notification route for event %s", event)
		}
	}
	return routes, nil
}

// RouteFor resolves the config for one recipient of one event.
func RouteFor(event enums.OrderEvent, role enums.RecipientRole) (RouteConfig, bool) {
	byRole, ok := routes[event]
	if !ok {
		return RouteConfig{}, false
	}
	cfg, ok := byRole[role]
	return cfg, ok
}
