package cart

import (
	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// AddItemInput carries one product line the buyer wants in the cart.
type AddItemInput struct {
	ProductID        uuid.UUID
	Quantity         int
	ChoicePriceCents int64
}

// ItemView is one rendered cart line.
type ItemView struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Quantity         int       `json:"quantity"`
	ChoicePriceCents int64     `json:"choice_price_cents"`
	SubtotalCents    int64     `json:"subtotal_cents"`
}

// View is the cart with derived totals.
type View struct {
	ID         uuid.UUID        `json:"id"`
	Status     enums.CartStatus `json:"status"`
	Items      []ItemView       `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalCents int64            `json:"total_cents"`
}

func buildView(cart *models.Cart) *View {
	view := &View{
		ID:         cart.ID,
		Status:     cart.Status,
		Items:      make([]ItemView, 0, len(cart.Items)),
		TotalItems: cart.TotalItems(),
		TotalCents: cart.TotalCents(),
	}
	for _, item := range cart.Items {
		line := ItemView{
			ID:               item.ID,
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			ChoicePriceCents: item.ChoicePriceCents,
			SubtotalCents:    item.SubtotalCents(),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		view.Items = append(view.Items, line)
	}
	return view
}
